package syncfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/recall/pkg/brain"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of an entries file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported entries file format")

// Record is one concept in an entries file. Content is kept only in memory
// and served to recall through Source; the graph never stores it.
type Record struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Kind    string `json:"kind" yaml:"kind"`
	Domain  string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Document is a parsed entries file.
type Document struct {
	Version  int      `json:"version,omitempty" yaml:"version,omitempty"`
	Concepts []Record `json:"concepts" yaml:"concepts"`
}

// Entries converts the document to brain sync entries, preserving order.
func (d *Document) Entries() []brain.Entry {
	entries := make([]brain.Entry, 0, len(d.Concepts))
	for _, r := range d.Concepts {
		entries = append(entries, brain.Entry{
			ID:     r.ID,
			Title:  r.Title,
			Kind:   brain.Kind(r.Kind),
			Domain: r.Domain,
		})
	}
	return entries
}

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Loader reads and validates entries files.
type Loader struct {
	logger       zerolog.Logger
	schemaLoader gojsonschema.JSONLoader
}

// NewLoader creates a new entries loader
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:       logger.With().Str("component", "syncfile-loader").Logger(),
		schemaLoader: gojsonschema.NewStringLoader(Schema),
	}
}

// Load reads path, validates it and decodes it.
func (l *Loader) Load(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries file: %w", err)
	}

	doc, err := l.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Debug().
		Str("file", filepath.Base(path)).
		Int("concepts", len(doc.Concepts)).
		Msg("Loaded entries file")

	return doc, nil
}

// Parse validates and decodes raw entries data.
func (l *Loader) Parse(data []byte, format Format) (*Document, error) {
	var raw interface{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse entries JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse entries YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := l.validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	var err error
	if format == FormatJSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (l *Loader) validateSchema(raw interface{}) error {
	result, err := gojsonschema.Validate(l.schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// validateDocument rejects duplicate ids, which a schema cannot express.
func validateDocument(doc *Document) error {
	seen := make(map[string]int, len(doc.Concepts))
	for i, r := range doc.Concepts {
		if prev, ok := seen[r.ID]; ok {
			return fmt.Errorf("duplicate concept id %q at entries %d and %d", r.ID, prev, i)
		}
		seen[r.ID] = i
	}
	return nil
}
