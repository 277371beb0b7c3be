package syncfile

// Schema is the JSON schema every entries file must satisfy, whatever its
// on-disk format.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["concepts"],
  "properties": {
    "version": {
      "type": "integer",
      "minimum": 1
    },
    "concepts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "kind"],
        "properties": {
          "id": {
            "type": "string",
            "minLength": 1
          },
          "title": {
            "type": "string",
            "minLength": 1
          },
          "kind": {
            "type": "string",
            "enum": ["wisdom", "belief", "term", "file", "decision", "pattern", "failure"]
          },
          "domain": {
            "type": "string"
          },
          "content": {
            "type": "string"
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
