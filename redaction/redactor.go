// Package redaction provides an io.Writer that removes secret values from
// everything written through it.
//
// It is intended for internal use by sm-action only.
package redaction

import (
	"io"
	"slices"
	"strings"
	"sync"
)

// Redacted is what replaces a secret in redacted output. It matches what the
// GitHub Actions runner prints for masked values.
const Redacted = "***"

// Redactor replaces any registered secret in writes with Redacted. Each Write
// is redacted independently, so callers must not split a secret across two
// writes; the logger always writes whole lines.
type Redactor struct {
	mu       sync.RWMutex
	output   io.Writer
	needles  []string
	replacer *strings.Replacer
}

// New returns a Redactor writing to output, redacting needles.
func New(output io.Writer, needles ...string) *Redactor {
	r := &Redactor{output: output}
	r.Add(needles...)
	return r
}

// Add registers more values to redact. Multi-line values are also redacted
// line by line, since the lines may be logged separately.
func (r *Redactor) Add(needles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, needle := range needles {
		r.add(needle)
		if strings.ContainsAny(needle, "\r\n") {
			for line := range strings.Lines(needle) {
				r.add(strings.TrimRight(line, "\r\n"))
			}
		}
	}

	// Longer needles go first so a secret containing another secret is
	// replaced as a whole.
	slices.SortFunc(r.needles, func(a, b string) int { return len(b) - len(a) })

	oldnew := make([]string, 0, 2*len(r.needles))
	for _, needle := range r.needles {
		oldnew = append(oldnew, needle, Redacted)
	}
	r.replacer = strings.NewReplacer(oldnew...)
}

func (r *Redactor) add(needle string) {
	if strings.TrimSpace(needle) == "" || slices.Contains(r.needles, needle) {
		return
	}
	r.needles = append(r.needles, needle)
}

// Write redacts p and writes it to the underlying writer. It reports len(p)
// on success, since the redacted output may differ in length.
func (r *Redactor) Write(p []byte) (int, error) {
	r.mu.RLock()
	replacer := r.replacer
	r.mu.RUnlock()

	if replacer == nil {
		return r.output.Write(p)
	}

	if _, err := io.WriteString(r.output, replacer.Replace(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Needles returns a copy of the registered values.
func (r *Redactor) Needles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.needles)
}
