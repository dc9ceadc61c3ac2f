package logger

import (
	"fmt"
	"strings"
)

type Level int

const (
	DEBUG Level = iota
	NOTICE
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = []string{
	"DEBUG",
	"NOTICE",
	"INFO",
	"WARN",
	"ERROR",
	"FATAL",
}

// String returns the string representation of a logging level.
func (l Level) String() string {
	if l < DEBUG || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// LevelFromString takes a string and returns a Level
func LevelFromString(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return WARN, nil
	}
	return -1, fmt.Errorf("invalid log level %q, must be one of %s", s, strings.ToLower(strings.Join(levelNames, ", ")))
}
