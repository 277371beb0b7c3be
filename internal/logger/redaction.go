package logger

import (
	"fmt"
	"io"
	"regexp"
	"sync"
)

// Mask replaces every redacted match.
const Mask = "[REDACTED]"

// builtinPatterns match credentials that tend to get pasted into prompts and
// from there into concept titles.
var builtinPatterns = []string{
	`sk-[a-zA-Z0-9_-]{20,}`,                             // provider API keys
	`Bearer\s+[a-zA-Z0-9._-]+`,                          // bearer tokens
	`gh[pousr]_[A-Za-z0-9]{30,}`,                        // GitHub tokens
	`AKIA[0-9A-Z]{16}`,                                  // AWS access keys
	`(?i)(password|passwd|secret|token)["\s:=]+[^\s"]+`, // key=value credentials
	`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`,
}

// Redactor masks credentials in log output.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
}

// NewRedactor compiles the built-in patterns followed by extra. An invalid
// extra pattern is reported with its position.
func NewRedactor(extra ...string) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range builtinPatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	for i, p := range extra {
		if err := r.AddPattern(p); err != nil {
			return nil, fmt.Errorf("redact pattern %d: %w", i, err)
		}
	}
	return r, nil
}

func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.patterns = append(r.patterns, re)
	r.mu.Unlock()
	return nil
}

func (r *Redactor) Redact(s string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, re := range r.patterns {
		s = re.ReplaceAllLiteralString(s, Mask)
	}
	return s
}

// Wrap returns a writer that redacts each write before passing it to w.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return redactingWriter{out: w, r: r}
}

type redactingWriter struct {
	out io.Writer
	r   *Redactor
}

// Write reports len(p) on success; the masked output is usually shorter and
// zerolog treats a short count as an error.
func (w redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.out, w.r.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
