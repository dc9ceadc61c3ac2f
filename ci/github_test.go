package ci

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitwarden/sm-action/env"
	"github.com/bitwarden/sm-action/internal/filecommand"
	"github.com/bitwarden/sm-action/redaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFiles struct {
	envPath    string
	outputPath string
}

func newRunnerFiles(t *testing.T) runnerFiles {
	t.Helper()

	dir := t.TempDir()
	rf := runnerFiles{
		envPath:    filepath.Join(dir, "github_env"),
		outputPath: filepath.Join(dir, "github_output"),
	}
	for _, p := range []string{rf.envPath, rf.outputPath} {
		require.NoError(t, os.WriteFile(p, nil, 0o600))
	}
	return rf
}

func (rf runnerFiles) environ(extra map[string]string) *env.Environment {
	m := map[string]string{
		"GITHUB_ENV":    rf.envPath,
		"GITHUB_OUTPUT": rf.outputPath,
	}
	for k, v := range extra {
		m[k] = v
	}
	return env.FromMap(m)
}

func TestGitHubActionsWritesFileCommands(t *testing.T) {
	t.Parallel()

	rf := newRunnerFiles(t)
	var stdout bytes.Buffer

	gh, err := NewGitHubActions(rf.environ(nil), &stdout, nil)
	require.NoError(t, err)

	require.NoError(t, gh.SetEnvironment("DB_PASSWORD", "hunter2"))
	require.NoError(t, gh.SetOutput("DB_PASSWORD", "multi\nline"))
	require.NoError(t, gh.Close())

	envData, err := os.ReadFile(rf.envPath)
	require.NoError(t, err)
	rec, err := filecommand.Find(envData, "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", rec.Value)

	outData, err := os.ReadFile(rf.outputPath)
	require.NoError(t, err)
	rec, err = filecommand.Find(outData, "DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "multi\nline", rec.Value)

	assert.Empty(t, stdout.String())
}

func TestGitHubActionsGetInput(t *testing.T) {
	t.Parallel()

	rf := newRunnerFiles(t)
	gh, err := NewGitHubActions(rf.environ(map[string]string{
		"INPUT_ACCESS_TOKEN": "token",
		"INPUT_CLOUD_REGION": "   ",
		"INPUT_SET_ENV":      "",
		"INPUT_MY_INPUT":     "spaced",
	}), &bytes.Buffer{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { gh.Close() })

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{name: "access_token", want: "token", wantOK: true},
		{name: "ACCESS_TOKEN", want: "token", wantOK: true},
		{name: "my input", want: "spaced", wantOK: true},
		{name: "cloud_region"},
		{name: "set_env"},
		{name: "missing"},
	}

	for _, test := range tests {
		got, ok := gh.GetInput(test.name)
		assert.Equal(t, test.wantOK, ok, "input %q", test.name)
		assert.Equal(t, test.want, got, "input %q", test.name)
	}
}

func TestGitHubActionsMaskValue(t *testing.T) {
	t.Parallel()

	rf := newRunnerFiles(t)
	var stdout, logs bytes.Buffer
	r := redaction.New(&logs)

	gh, err := NewGitHubActions(rf.environ(nil), &stdout, r)
	require.NoError(t, err)
	t.Cleanup(func() { gh.Close() })

	gh.MaskValue("first\nsecond")
	assert.Equal(t, "::add-mask::first%0Asecond\n", stdout.String())

	_, err = r.Write([]byte("leaked second here\n"))
	require.NoError(t, err)
	assert.Equal(t, "leaked *** here\n", logs.String())
}

func TestNewGitHubActionsRequiresFileCommands(t *testing.T) {
	t.Parallel()

	rf := newRunnerFiles(t)
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	tests := []struct {
		name    string
		environ map[string]string
		wantErr error
	}{
		{
			name:    "no env file",
			environ: map[string]string{"GITHUB_OUTPUT": rf.outputPath},
			wantErr: ErrMissingFileCommand,
		},
		{
			name:    "no output file",
			environ: map[string]string{"GITHUB_ENV": rf.envPath},
			wantErr: ErrMissingFileCommand,
		},
		{
			name:    "empty output path",
			environ: map[string]string{"GITHUB_ENV": rf.envPath, "GITHUB_OUTPUT": ""},
			wantErr: ErrMissingFileCommand,
		},
		{
			name:    "env file does not exist",
			environ: map[string]string{"GITHUB_ENV": missing, "GITHUB_OUTPUT": rf.outputPath},
			wantErr: os.ErrNotExist,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewGitHubActions(env.FromMap(test.environ), &bytes.Buffer{}, nil)
			assert.True(t, errors.Is(err, test.wantErr), "got %v, want %v", err, test.wantErr)
		})
	}
}
