package clicommand

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/bitwarden/sm-action/action"
	"github.com/bitwarden/sm-action/api"
	"github.com/bitwarden/sm-action/ci"
	"github.com/bitwarden/sm-action/cliconfig"
	"github.com/bitwarden/sm-action/env"
	"github.com/bitwarden/sm-action/internal/workflowcommand"
	"github.com/bitwarden/sm-action/logger"
	"github.com/bitwarden/sm-action/redaction"
	"github.com/bitwarden/sm-action/tracetools"
	"github.com/bitwarden/sm-action/version"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
)

const Description = `Usage:

   sm-action [options...]

Description:
   Retrieves secrets from Bitwarden Secrets Manager and makes them available to
   the rest of a GitHub Actions job.

   Inputs are read from INPUT_* environment variables, as set by the runner
   for the step's "with:" block. Every secret is masked in the job log, written
   to GITHUB_OUTPUT and, unless set_env is false, to GITHUB_ENV.

Example step:

   - uses: bitwarden/sm-action@v2
     with:
       access_token: ${{ secrets.SM_ACCESS_TOKEN }}
       secrets: |
         fc3a93f4-2a16-445b-b0c4-aeaf0102f0ff > SECRET_NAME_1
         bdbb16bc-0b9b-472e-99fa-af4101309076 > SECRET_NAME_2`

// ClientFactory builds the Bitwarden client for a run.
type ClientFactory func(l logger.Logger, conf api.Config) action.Client

func newAPIClient(l logger.Logger, conf api.Config) action.Client {
	return api.NewClient(l, conf)
}

// RunAction is the action of the sm-action command.
func RunAction(c *cli.Context) error {
	cfg := GlobalConfig{}
	if err := (&cliconfig.Loader{CLI: c, Config: &cfg}).Load(); err != nil {
		return NewExitError(1, err)
	}

	if cfg.Test {
		fmt.Fprintln(c.App.Writer, "success")
		return nil
	}

	r := &runner{
		stdout:    c.App.Writer,
		stderr:    c.App.ErrWriter,
		environ:   env.FromSlice(os.Environ()),
		newClient: newAPIClient,
	}
	return r.run(context.Background(), cfg)
}

type runner struct {
	stdout    io.Writer
	stderr    io.Writer
	environ   *env.Environment
	newClient ClientFactory
}

func (r *runner) run(ctx context.Context, cfg GlobalConfig) (err error) {
	logFormat, err := resolveLogFormat(cfg.LogFormat, r.environ)
	if err != nil {
		return err
	}

	// All diagnostics go to stderr through the redactor; the runner parses
	// workflow commands there too. stdout only carries ::add-mask::, which
	// must reach the runner unredacted.
	redactor := redaction.New(r.stderr)

	l, err := CreateLogger(cfg, r.environ, redactor)
	if err != nil {
		return err
	}

	defer func() {
		if err == nil {
			return
		}
		if hint := action.Hint(err); hint != "" {
			l.Error("%s", hint)
		}
		if logFormat == LogFormatGitHub {
			_ = workflowcommand.Issue(redactor, "error", nil, err.Error())
		}
	}()

	l.Debug("sm-action %s", version.FullVersion())

	ctx, stopTracing, err := tracetools.Start(ctx, l, cfg.TracingBackend, r.environ)
	if err != nil {
		return err
	}
	defer stopTracing()

	gha, err := ci.NewGitHubActions(r.environ, r.stdout, redactor)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := gha.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	actionCfg, err := action.LoadConfig(gha)
	if err != nil {
		return err
	}

	endpoints, err := action.InferURLs(l, actionCfg)
	if err != nil {
		return err
	}
	l.Debug("Using API URL %s and Identity URL %s", endpoints.APIURL, endpoints.IdentityURL)

	client := r.newClient(l, api.Config{
		APIURL:       endpoints.APIURL,
		IdentityURL:  endpoints.IdentityURL,
		UserAgent:    version.UserAgent(),
		DisableHTTP2: cfg.NoHTTP2,
		TraceHTTP:    cfg.DebugHTTP,
	})

	start := time.Now()
	if err := action.Run(ctx, l, gha, actionCfg, client); err != nil {
		return err
	}
	l.Info("Secrets set in %s", elapsed(start, time.Now()))
	return nil
}

var elapsedMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "under a second", DivBy: time.Second},
	{D: 2 * time.Second, Format: "1 second", DivBy: 1},
	{D: time.Minute, Format: "%d seconds", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute", DivBy: 1},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: math.MaxInt64, Format: "over an hour", DivBy: 1},
}

func elapsed(start, end time.Time) string {
	return humanize.CustomRelTime(start, end, "", "", elapsedMagnitudes)
}
