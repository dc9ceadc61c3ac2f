package clicommand

import (
	"fmt"
	"io"
	"os"

	"github.com/bitwarden/sm-action/env"
	"github.com/bitwarden/sm-action/logger"
	"github.com/bitwarden/sm-action/tracetools"
	"github.com/urfave/cli"
)

const (
	LogFormatAuto   = "auto"
	LogFormatText   = "text"
	LogFormatGitHub = "github"
)

// GlobalConfig holds the process flags. Action inputs are loaded separately
// by action.LoadConfig.
type GlobalConfig struct {
	Test           bool   `cli:"test"`
	Debug          bool   `cli:"debug"`
	DebugHTTP      bool   `cli:"debug-http"`
	LogFormat      string `cli:"log-format" normalize:"trim|lower"`
	NoColor        bool   `cli:"no-color"`
	NoHTTP2        bool   `cli:"no-http2"`
	TracingBackend string `cli:"tracing-backend" normalize:"trim|lower"`
}

var TestFlag = cli.BoolFlag{
	Name:  "test",
	Usage: "Print \"success\" and exit without reading inputs or contacting Bitwarden",
}

var DebugFlag = cli.BoolFlag{
	Name:   "debug",
	Usage:  "Enable debug mode. RUNNER_DEBUG=1 and ACTIONS_RUNNER_DEBUG=true also enable it",
	EnvVar: "SM_ACTION_DEBUG",
}

var DebugHTTPFlag = cli.BoolFlag{
	Name:   "debug-http",
	Usage:  "Log the timings of every HTTP request made to Bitwarden. Bodies are never logged",
	EnvVar: "SM_ACTION_DEBUG_HTTP",
}

var LogFormatFlag = cli.StringFlag{
	Name:   "log-format",
	Value:  LogFormatAuto,
	Usage:  "The format of log output: auto, text or github. auto picks github when running under GitHub Actions",
	EnvVar: "SM_ACTION_LOG_FORMAT",
}

var NoColorFlag = cli.BoolFlag{
	Name:   "no-color",
	Usage:  "Don't show colors in logging",
	EnvVar: "SM_ACTION_NO_COLOR",
}

var NoHTTP2Flag = cli.BoolFlag{
	Name:   "no-http2",
	Usage:  "Disable HTTP2 when communicating with Bitwarden",
	EnvVar: "SM_ACTION_NO_HTTP2",
}

var TracingBackendFlag = cli.StringFlag{
	Name:   "tracing-backend",
	Value:  tracetools.BackendNone,
	Usage:  `Enable tracing of the run with the given backend. Only "opentelemetry" is supported`,
	EnvVar: "SM_ACTION_TRACING_BACKEND",
}

// GlobalFlags returns the flags of the sm-action command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		TestFlag,
		DebugFlag,
		DebugHTTPFlag,
		LogFormatFlag,
		NoColorFlag,
		NoHTTP2Flag,
		TracingBackendFlag,
	}
}

// CreateLogger builds the logger for a run, writing to w. The github format
// renders debug, warning and error lines as workflow commands.
func CreateLogger(cfg GlobalConfig, environ *env.Environment, w io.Writer) (logger.Logger, error) {
	format, err := resolveLogFormat(cfg.LogFormat, environ)
	if err != nil {
		return nil, err
	}

	var printer logger.Printer
	switch format {
	case LogFormatGitHub:
		printer = logger.NewGitHubPrinter(w)
	default:
		p := logger.NewTextPrinter(w)
		if cfg.NoColor {
			p.Colors = false
		}
		printer = p
	}

	l := logger.NewConsoleLogger(printer, os.Exit)
	l.SetLevel(logger.INFO)
	if cfg.Debug || debugRequested(environ) {
		l.SetLevel(logger.DEBUG)
	}
	return l, nil
}

func resolveLogFormat(format string, environ *env.Environment) (string, error) {
	switch format {
	case "", LogFormatAuto:
		if environ.GetBool("GITHUB_ACTIONS", false) {
			return LogFormatGitHub, nil
		}
		return LogFormatText, nil
	case LogFormatText, LogFormatGitHub:
		return format, nil
	default:
		return "", fmt.Errorf("invalid log format %q, must be one of auto, text or github", format)
	}
}

// debugRequested reports whether the workflow was re-run with debug logging.
func debugRequested(environ *env.Environment) bool {
	if v, _ := environ.Get("RUNNER_DEBUG"); v == "1" {
		return true
	}
	return environ.GetBool("ACTIONS_RUNNER_DEBUG", false)
}
