package workflowcommand

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input, want string
	}{
		{
			input: "percent % percent % cr \r cr \r lf \n lf \n",
			want:  "percent %25 percent %25 cr %0D cr %0D lf %0A lf %0A",
		},
		{
			input: "%25 %25 %0D %0D %0A %0A %3A %3A %2C %2C",
			want:  "%2525 %2525 %250D %250D %250A %250A %253A %253A %252C %252C",
		},
		{
			input: "normal text",
			want:  "normal text",
		},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, EscapeData(tc.input))
	}
}

func TestEscapeProperty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a%3Ab%2Cc%0Ad%25", EscapeProperty("a:b,c\nd%"))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command string
		props   map[string]string
		message string
		want    string
	}{
		{
			name:    "no properties",
			command: "debug",
			message: "hello",
			want:    "::debug::hello",
		},
		{
			name:    "sorted properties",
			command: "error",
			props:   map[string]string{"title": "Oh: no", "file": "a,b.go", "line": ""},
			message: "broken\nthing",
			want:    "::error file=a%2Cb.go,title=Oh%3A no::broken%0Athing",
		},
		{
			name:    "empty message",
			command: "endgroup",
			want:    "::endgroup::",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Format(tc.command, tc.props, tc.message))
		})
	}
}

func TestAddMask(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	AddMask(&buf, "s3cr3t")
	AddMask(&buf, "line one\nline two")
	AddMask(&buf, "")

	assert.Equal(t, "::add-mask::s3cr3t\n::add-mask::line one%0Aline two\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("pipe closed")
}

func TestAddMaskIsBestEffort(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		AddMask(nil, "value")
		AddMask(failingWriter{}, "value")
	})
}
