// Package env provides a snapshot of the process environment.
//
// It is intended for internal use by sm-action only.
package env

import (
	"runtime"
	"strings"

	"github.com/puzpuzpuz/xsync/v2"
)

// Environment holds environment variables. On Windows names are
// case-insensitive, as they are for the operating system.
type Environment struct {
	vars *xsync.MapOf[string, string]
}

// New returns an empty Environment.
func New() *Environment {
	return &Environment{vars: xsync.NewMapOf[string]()}
}

// FromMap returns an Environment holding m.
func FromMap(m map[string]string) *Environment {
	e := &Environment{vars: xsync.NewMapOfPresized[string](len(m))}
	for name, value := range m {
		e.Set(name, value)
	}
	return e
}

// FromSlice returns an Environment holding the "NAME=value" entries of s,
// as returned by os.Environ. Malformed entries are skipped.
func FromSlice(s []string) *Environment {
	e := &Environment{vars: xsync.NewMapOfPresized[string](len(s))}
	for _, entry := range s {
		if name, value, ok := Split(entry); ok {
			e.Set(name, value)
		}
	}
	return e
}

// Split splits "name=value" at the first '='. Entries with no name, such
// as the "=C:=C:\" ones Windows creates, are rejected.
func Split(entry string) (name, value string, ok bool) {
	name, value, found := strings.Cut(entry, "=")
	if !found || name == "" {
		return "", "", false
	}
	return name, value, true
}

// Get returns the value of name and whether it is set.
func (e *Environment) Get(name string) (string, bool) {
	return e.vars.Load(normalizeName(name))
}

// GetNonEmpty is like Get, but a value that is empty or only whitespace is
// reported as absent. Inputs passed through the runner are always set, even
// when the user left them blank, so this is the lookup to use for them.
func (e *Environment) GetNonEmpty(name string) (string, bool) {
	v, ok := e.Get(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// GetBool returns the boolean value of name, or defaultValue when it is
// unset or not a spelling ParseBool accepts.
func (e *Environment) GetBool(name string, defaultValue bool) bool {
	v, _ := e.Get(name)
	if b, ok := ParseBool(v); ok {
		return b
	}
	return defaultValue
}

// ParseBool interprets on/off, 1/0, enabled/disabled, true/false and yes/no,
// ignoring case and surrounding space. ok is false for anything else.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "enabled", "true", "yes":
		return true, true
	case "off", "0", "disabled", "false", "no":
		return false, true
	default:
		return false, false
	}
}

// Set sets name to value.
func (e *Environment) Set(name, value string) {
	e.vars.Store(normalizeName(name), value)
}

func normalizeName(name string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(name)
	}
	return name
}
