package secrets

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bitwarden/sm-action/logger"
	"github.com/google/uuid"
)

var (
	// ErrInvalidIdentifier is wrapped by every ParseError.
	ErrInvalidIdentifier = errors.New("invalid secret identifier")

	ErrMissingName = errors.New("secret has no name to publish it under, use \"<uuid> > NAME\"")
)

// ParseError reports a secrets line whose identifier is not a UUID.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error occurred when attempting to parse UUID %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidIdentifier, e.Err}
}

// RequestMap maps each requested secret to the name it is published under.
type RequestMap map[uuid.UUID]string

// IDs returns the requested identifiers in a stable order.
func (m RequestMap) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids
}

// CheckNames returns an error wrapping ErrMissingName for the first
// identifier, in IDs order, that has an empty name.
func (m RequestMap) CheckNames() error {
	for _, id := range m.IDs() {
		if m[id] == "" {
			return fmt.Errorf("%w: %s", ErrMissingName, id)
		}
	}
	return nil
}

// ParseRequests parses lines of the form "<uuid> > <name>". Blank lines are
// skipped, and a line without ">" requests the secret under an empty name.
// When an identifier appears twice the later name wins and a warning is
// logged. The first invalid identifier stops parsing.
func ParseRequests(l logger.Logger, lines []string) (RequestMap, error) {
	requests := make(RequestMap, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		rawID, name, _ := strings.Cut(line, ">")
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		name = strings.TrimSpace(name)

		if previous, ok := requests[id]; ok {
			l.Warn("Secret %s is requested more than once; using name %q instead of %q", id, name, previous)
		}
		requests[id] = name
	}

	return requests, nil
}
