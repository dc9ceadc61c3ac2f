// Package filecommand reads and writes GitHub Actions file commands: the
// KEY<<DELIMITER heredoc records the runner parses out of the files named by
// GITHUB_ENV and GITHUB_OUTPUT once a step finishes.
package filecommand

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// DelimiterPrefix starts every delimiter this package generates.
const DelimiterPrefix = "ghadelimiter_"

const heredocMarker = "<<"

var (
	// ErrNotFound is returned by Find when no record has the requested key.
	ErrNotFound = errors.New("file command not found")

	// ErrUnterminated is returned when a record's closing delimiter is missing.
	ErrUnterminated = errors.New("file command has no closing delimiter")
)

// Record is a single key/value pair framed by a one-off delimiter.
type Record struct {
	Key       string
	Value     string
	Delimiter string
}

// NewDelimiter returns a fresh delimiter. A value can only end a record early
// if it contains this exact string, and the random part makes that
// impossible to arrange in advance.
func NewDelimiter() string {
	return DelimiterPrefix + uuid.NewString()
}

// Write appends a record for key and value to w, then flushes it. If w can be
// synced to stable storage (an *os.File can), it is.
func Write(w io.Writer, key, value string) error {
	_, err := write(w, key, value)
	return err
}

func write(w io.Writer, key, value string) (Record, error) {
	rec := Record{Key: key, Value: value, Delimiter: NewDelimiter()}

	if key == "" {
		return rec, errors.New("file command key must not be empty")
	}
	if strings.ContainsAny(key, "\r\n") {
		return rec, fmt.Errorf("file command key %q must not contain a line break", key)
	}
	if strings.Contains(key, rec.Delimiter) {
		return rec, fmt.Errorf("file command key %q must not contain the delimiter", key)
	}
	if strings.Contains(value, rec.Delimiter) {
		return rec, fmt.Errorf("value for file command %q must not contain the delimiter", key)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%s%s\n", key, heredocMarker, rec.Delimiter)
	bw.WriteString(value)
	bw.WriteString("\n")
	bw.WriteString(rec.Delimiter)
	bw.WriteString("\n")

	if err := bw.Flush(); err != nil {
		return rec, fmt.Errorf("writing file command %q: %w", key, err)
	}

	if s, ok := w.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return rec, fmt.Errorf("syncing file command %q: %w", key, err)
		}
	}

	return rec, nil
}

// File is an append-only file command target, such as the file named by
// GITHUB_OUTPUT.
type File struct {
	path string
	f    *os.File
}

// Open opens an existing file command file for appending. The runner creates
// these files before the step starts, so a missing file is an error.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file command file: %w", err)
	}
	return &File{path: path, f: f}, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

// Set appends a record for key and value and syncs it to disk.
func (f *File) Set(key, value string) error {
	return Write(f.f, key, value)
}

func (f *File) Close() error {
	return f.f.Close()
}
