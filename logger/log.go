// Package logger provides a logger abstraction for writing log messages in
// configurable formats to different outputs, such as a console, plain text
// file, or GitHub Actions workflow commands.
//
// It is intended for internal use by sm-action only.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bitwarden/sm-action/internal/workflowcommand"
	"golang.org/x/term"
)

const (
	nocolor   = "0"
	red       = "31"
	green     = "38;5;48"
	yellow    = "33"
	gray      = "38;5;251"
	lightgray = "38;5;243"
	cyan      = "1;36"
)

const DateFormat = "2006-01-02 15:04:05"

var windowsColors bool

// Logger is the interface the rest of sm-action logs through.
type Logger interface {
	Debug(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	Notice(format string, v ...any)
	Warn(format string, v ...any)
	Info(format string, v ...any)

	WithFields(fields ...Field) Logger
	SetLevel(level Level)
	Level() Level
}

// ConsoleLogger filters by level and hands messages to a Printer.
type ConsoleLogger struct {
	level   Level
	exitFn  func(int)
	fields  Fields
	printer Printer
}

// NewConsoleLogger returns a logger that prints at NOTICE and above.
// exitFn is called by Fatal.
func NewConsoleLogger(printer Printer, exitFn func(int)) Logger {
	return &ConsoleLogger{
		level:   NOTICE,
		printer: printer,
		exitFn:  exitFn,
	}
}

// WithFields returns a copy of the logger with the provided fields
func (l *ConsoleLogger) WithFields(fields ...Field) Logger {
	clone := *l
	clone.fields = append(append(Fields{}, l.fields...), fields...)
	return &clone
}

// SetLevel sets the level for the logger
func (l *ConsoleLogger) SetLevel(level Level) {
	l.level = level
}

func (l *ConsoleLogger) Level() Level {
	return l.level
}

func (l *ConsoleLogger) Debug(format string, v ...any) {
	if l.level == DEBUG {
		l.printer.Print(DEBUG, fmt.Sprintf(format, v...), l.fields)
	}
}

func (l *ConsoleLogger) Error(format string, v ...any) {
	l.printer.Print(ERROR, fmt.Sprintf(format, v...), l.fields)
}

func (l *ConsoleLogger) Fatal(format string, v ...any) {
	l.printer.Print(FATAL, fmt.Sprintf(format, v...), l.fields)
	l.exitFn(1)
}

func (l *ConsoleLogger) Notice(format string, v ...any) {
	if l.level <= NOTICE {
		l.printer.Print(NOTICE, fmt.Sprintf(format, v...), l.fields)
	}
}

func (l *ConsoleLogger) Info(format string, v ...any) {
	if l.level <= INFO {
		l.printer.Print(INFO, fmt.Sprintf(format, v...), l.fields)
	}
}

func (l *ConsoleLogger) Warn(format string, v ...any) {
	if l.level <= WARN {
		l.printer.Print(WARN, fmt.Sprintf(format, v...), l.fields)
	}
}

// Printer renders a single log message.
type Printer interface {
	Print(level Level, msg string, fields Fields)
}

// TextPrinter prints timestamped lines, optionally coloured.
type TextPrinter struct {
	Colors bool

	mu     sync.Mutex
	writer io.Writer
}

func NewTextPrinter(w io.Writer) *TextPrinter {
	return &TextPrinter{
		writer: w,
		Colors: ColorsSupported(),
	}
}

func (l *TextPrinter) Print(level Level, msg string, fields Fields) {
	now := time.Now().Format(DateFormat)

	var line string

	if l.Colors {
		levelColor := green
		messageColor := nocolor
		fieldColor := lightgray

		switch level {
		case DEBUG:
			levelColor = gray
			messageColor = gray
		case NOTICE:
			levelColor = cyan
		case WARN:
			levelColor = yellow
		case ERROR:
			levelColor = red
		case FATAL:
			levelColor = red
			messageColor = red
		}

		line = fmt.Sprintf("\x1b[%sm%s %-6s\x1b[0m \x1b[%sm%s\x1b[0m", levelColor, now, level, messageColor, msg)
		for _, field := range fields {
			line += fmt.Sprintf(" \x1b[%sm%s=\x1b[0m\x1b[%sm%s\x1b[0m", fieldColor, field.Key(), messageColor, field.String())
		}
	} else {
		line = fmt.Sprintf("%s %-6s %s", now, level, msg)
		for _, field := range fields {
			line += fmt.Sprintf(" %s=%s", field.Key(), field.String())
		}
	}

	// Make sure we're only outputting a line one at a time
	l.mu.Lock()
	fmt.Fprintln(l.writer, line)
	l.mu.Unlock()
}

// GitHubPrinter prints in the format understood by the GitHub Actions runner:
// debug, warning and error messages become workflow commands so the runner
// can collapse or annotate them, everything else is printed as-is.
type GitHubPrinter struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewGitHubPrinter(w io.Writer) *GitHubPrinter {
	return &GitHubPrinter{writer: w}
}

func (p *GitHubPrinter) Print(level Level, msg string, fields Fields) {
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, field.Key()+"="+field.String())
		}
		msg += " " + strings.Join(parts, " ")
	}

	var line string
	switch level {
	case DEBUG:
		line = workflowcommand.Format("debug", nil, msg)
	case WARN:
		line = workflowcommand.Format("warning", nil, msg)
	case ERROR, FATAL:
		line = workflowcommand.Format("error", nil, msg)
	default:
		line = msg
	}

	p.mu.Lock()
	fmt.Fprintln(p.writer, line)
	p.mu.Unlock()
}

// ColorsSupported reports whether coloured output can be written to stderr.
func ColorsSupported() bool {
	// Color support for windows is set in init
	if runtime.GOOS == "windows" && !windowsColors {
		return false
	}

	// Colors can only be shown if stderr is a terminal
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Discard is a logger that throws everything away.
var Discard = &ConsoleLogger{
	level:   FATAL + 1,
	printer: discardPrinter{},
	exitFn:  func(int) {},
}

type discardPrinter struct{}

func (discardPrinter) Print(Level, string, Fields) {}
