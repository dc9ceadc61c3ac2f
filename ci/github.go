package ci

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bitwarden/sm-action/env"
	"github.com/bitwarden/sm-action/internal/filecommand"
	"github.com/bitwarden/sm-action/internal/workflowcommand"
	"github.com/bitwarden/sm-action/redaction"
)

const (
	envFileVar    = "GITHUB_ENV"
	outputFileVar = "GITHUB_OUTPUT"
)

// ErrMissingFileCommand is returned when the runner did not provide one of
// the file command paths.
var ErrMissingFileCommand = errors.New("file command path is not set")

// GitHubActions implements CI for GitHub Actions runners.
type GitHubActions struct {
	environ  *env.Environment
	stdout   io.Writer
	redactor *redaction.Redactor

	envFile    *filecommand.File
	outputFile *filecommand.File
}

var _ CI = (*GitHubActions)(nil)

// NewGitHubActions opens the files named by GITHUB_ENV and GITHUB_OUTPUT in
// environ. Workflow commands are written to stdout. If redactor is not nil,
// every masked value is also added to it.
func NewGitHubActions(environ *env.Environment, stdout io.Writer, redactor *redaction.Redactor) (*GitHubActions, error) {
	envPath, ok := environ.GetNonEmpty(envFileVar)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFileCommand, envFileVar)
	}
	outputPath, ok := environ.GetNonEmpty(outputFileVar)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFileCommand, outputFileVar)
	}

	envFile, err := filecommand.Open(envPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envFileVar, err)
	}
	outputFile, err := filecommand.Open(outputPath)
	if err != nil {
		envFile.Close()
		return nil, fmt.Errorf("%s: %w", outputFileVar, err)
	}

	return &GitHubActions{
		environ:    environ,
		stdout:     stdout,
		redactor:   redactor,
		envFile:    envFile,
		outputFile: outputFile,
	}, nil
}

// InputVar returns the environment variable the runner uses for an input.
func InputVar(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

func (g *GitHubActions) GetInput(name string) (string, bool) {
	return g.environ.GetNonEmpty(InputVar(name))
}

func (g *GitHubActions) SetEnvironment(name, value string) error {
	if err := g.envFile.Set(name, value); err != nil {
		return fmt.Errorf("setting environment variable: %w", err)
	}
	return nil
}

func (g *GitHubActions) SetOutput(name, value string) error {
	if err := g.outputFile.Set(name, value); err != nil {
		return fmt.Errorf("setting output: %w", err)
	}
	return nil
}

func (g *GitHubActions) MaskValue(value string) {
	if g.redactor != nil {
		g.redactor.Add(value)
	}
	workflowcommand.AddMask(g.stdout, value)
}

// Close closes both file command files.
func (g *GitHubActions) Close() error {
	return errors.Join(g.envFile.Close(), g.outputFile.Close())
}
