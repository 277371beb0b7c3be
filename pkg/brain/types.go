package brain

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags what external store owns a concept's content.
type Kind string

const (
	KindWisdom   Kind = "wisdom"
	KindBelief   Kind = "belief"
	KindTerm     Kind = "term"
	KindFile     Kind = "file"
	KindDecision Kind = "decision"
	KindPattern  Kind = "pattern"
	KindFailure  Kind = "failure"
)

// Kinds lists every valid concept kind.
var Kinds = []Kind{KindWisdom, KindBelief, KindTerm, KindFile, KindDecision, KindPattern, KindFailure}

// ParseKind converts a string into a Kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidConcept, s)
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Concept is a graph node. It carries enough to disambiguate and rank; the
// content itself lives with whichever store created the concept.
type Concept struct {
	ID              string     `json:"id"`
	Index           int        `json:"index"`
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	Domain          string     `json:"domain,omitempty"`
	ActivationCount int        `json:"activation_count"`
	LastActivatedAt *time.Time `json:"last_activated_at,omitempty"`
}

// Edge is a directed weighted link between two concept indices.
type Edge struct {
	Source          int       `json:"source"`
	Target          int       `json:"target"`
	Weight          float64   `json:"weight"`
	LastActivatedAt time.Time `json:"last_activated_at"`
}

// ScoredConcept pairs a concept with its activation score.
type ScoredConcept struct {
	Concept Concept `json:"concept"`
	Score   float64 `json:"score"`
}

// Gap is a pair of strongly co-activated concepts with no edge between them.
type Gap struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// ActivationResult is the outcome of a Spread call.
type ActivationResult struct {
	Activated  []ScoredConcept `json:"activated"`
	Unexpected []ScoredConcept `json:"unexpected"`
	Gaps       []Gap           `json:"gaps"`
	Paths      [][]string      `json:"paths,omitempty"`
	// Skipped counts seed ids that were not in the store.
	Skipped int `json:"skipped,omitempty"`
}

// IDs returns the ids of the activated concepts in rank order.
func (r *ActivationResult) IDs() []string {
	ids := make([]string, 0, len(r.Activated))
	for _, sc := range r.Activated {
		ids = append(ids, sc.Concept.ID)
	}
	return ids
}

// Entry is one row of a bulk sync.
type Entry struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// SyncReport summarizes a Sync call.
type SyncReport struct {
	Added    int `json:"added"`
	Existing int `json:"existing"`
}

// Stats describes the size of the graph.
type Stats struct {
	Concepts   int     `json:"concepts"`
	Edges      int     `json:"edges"`
	Capacity   int     `json:"capacity"`
	NextIndex  int     `json:"next_index"`
	MeanWeight float64 `json:"mean_weight"`
}
