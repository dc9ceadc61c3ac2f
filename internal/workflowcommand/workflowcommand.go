// Package workflowcommand renders GitHub Actions workflow commands, the
// "::name key=value::message" lines the runner scans a step's stdout for.
package workflowcommand

import (
	"io"
	"sort"
	"strings"
)

var (
	dataEscaper = strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
	)
	propertyEscaper = strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
		":", "%3A",
		",", "%2C",
	)
)

// EscapeData escapes a command message so it fits on a single line.
func EscapeData(s string) string {
	return dataEscaper.Replace(s)
}

// EscapeProperty escapes a command property value.
func EscapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}

// Format renders a workflow command without a trailing newline. Properties
// are written in key order.
func Format(command string, props map[string]string, message string) string {
	var sb strings.Builder
	sb.WriteString("::")
	sb.WriteString(command)

	if len(props) > 0 {
		keys := make([]string, 0, len(props))
		for k, v := range props {
			if v != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for i, k := range keys {
			if i == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(EscapeProperty(props[k]))
		}
	}

	sb.WriteString("::")
	sb.WriteString(EscapeData(message))
	return sb.String()
}

// Issue writes a workflow command line to w.
func Issue(w io.Writer, command string, props map[string]string, message string) error {
	_, err := io.WriteString(w, Format(command, props, message)+"\n")
	return err
}

// AddMask tells the runner to replace value with *** in all subsequent log
// output. Masking is best effort: a nil writer (no runner to talk to) or a
// failed write is ignored, and empty values are skipped since they would
// match everywhere.
func AddMask(w io.Writer, value string) {
	if w == nil || value == "" {
		return
	}
	_ = Issue(w, "add-mask", nil, value)
}
