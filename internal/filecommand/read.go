package filecommand

import (
	"fmt"
	"strings"
)

// Parse returns every record in data, in order. Lines outside a record are
// ignored.
func Parse(data []byte) ([]Record, error) {
	lines := splitLines(string(data))

	var records []Record
	for i := 0; i < len(lines); i++ {
		key, delimiter, ok := strings.Cut(lines[i], heredocMarker)
		delimiter = strings.TrimSuffix(delimiter, "\r")
		if !ok || key == "" || delimiter == "" {
			continue
		}

		rec, end, err := readRecord(lines, i, key, delimiter)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		i = end
	}

	return records, nil
}

// Find returns the first record in data whose key is key.
func Find(data []byte, key string) (Record, error) {
	lines := splitLines(string(data))
	prefix := key + heredocMarker

	for i, line := range lines {
		delimiter, ok := strings.CutPrefix(line, prefix)
		delimiter = strings.TrimSuffix(delimiter, "\r")
		if !ok || delimiter == "" {
			continue
		}
		rec, _, err := readRecord(lines, i, key, delimiter)
		return rec, err
	}

	return Record{}, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// readRecord reads the record whose header is lines[start]. It returns the
// index of the closing delimiter line, which may end in "\r".
func readRecord(lines []string, start int, key, delimiter string) (Record, int, error) {
	for j := start + 1; j < len(lines); j++ {
		if lines[j] == delimiter || lines[j] == delimiter+"\r" {
			return Record{
				Key:       key,
				Value:     strings.Join(lines[start+1:j], "\n"),
				Delimiter: delimiter,
			}, j, nil
		}
	}
	return Record{}, len(lines), fmt.Errorf("%w: %q (delimiter %q)", ErrUnterminated, key, delimiter)
}

// splitLines splits s on "\n", dropping the empty string after a trailing
// newline. Lines are returned untouched so values keep their carriage returns.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
