// Package cliconfig loads configuration structs from command line flags and
// GitHub Actions inputs, driven by struct tags.
//
// It is intended for internal use by sm-action only.
//
// Supported tags:
//
//	cli:"name"          value of the urfave/cli flag
//	input:"name"        value of the action input
//	default:"value"     used when the input is absent
//	normalize:"a|b"     any of trim, lower, lines
//	validate:"a,b"      any of required, url
//	label:"name"        name used in validation errors
package cliconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bitwarden/sm-action/env"
	"github.com/oleiade/reflections"
	"github.com/urfave/cli"
)

// InputSource provides action inputs. Empty values must be reported as
// absent. ci.CI satisfies it.
type InputSource interface {
	GetInput(name string) (string, bool)
}

type Loader struct {
	// The context that is passed when using a urfave/cli action
	CLI *cli.Context

	// Inputs is where input tags are read from
	Inputs InputSource

	// The struct that the config values will be loaded into
	Config any
}

// ValidationError reports an input or flag with an unusable value.
type ValidationError struct {
	Label   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Label, e.Message)
}

// Load sets every tagged field of Config. It stops at the first invalid
// value.
func (l *Loader) Load() error {
	fields, err := reflections.FieldsDeep(l.Config)
	if err != nil {
		return fmt.Errorf("listing config fields: %w", err)
	}

	for _, fieldName := range fields {
		cliName, _ := reflections.GetFieldTag(l.Config, fieldName, "cli")
		inputName, _ := reflections.GetFieldTag(l.Config, fieldName, "input")

		label, _ := reflections.GetFieldTag(l.Config, fieldName, "label")
		switch {
		case label != "":
		case inputName != "":
			label = inputName
		case cliName != "":
			label = "--" + cliName
		default:
			label = fieldName
		}

		if cliName != "" && l.CLI != nil {
			if err := l.setFieldValueFromCLI(fieldName, cliName); err != nil {
				return fmt.Errorf("setting config field %s: %w", fieldName, err)
			}
		}

		if inputName != "" && l.Inputs != nil {
			if err := l.setFieldValueFromInput(fieldName, inputName, label); err != nil {
				return err
			}
		}

		if normalization, _ := reflections.GetFieldTag(l.Config, fieldName, "normalize"); normalization != "" {
			if err := l.normalizeField(fieldName, normalization); err != nil {
				return fmt.Errorf("normalizing config field %s: %w", fieldName, err)
			}
		}

		if rules, _ := reflections.GetFieldTag(l.Config, fieldName, "validate"); rules != "" {
			if err := l.validateField(fieldName, label, rules); err != nil {
				return err
			}
		}
	}

	return nil
}

func (l *Loader) setFieldValueFromCLI(fieldName, cliName string) error {
	fieldKind, err := reflections.GetFieldKind(l.Config, fieldName)
	if err != nil {
		return fmt.Errorf("getting the kind of struct field %q: %w", fieldName, err)
	}

	var value any
	switch fieldKind {
	case reflect.String:
		value = l.CLI.String(cliName)
	case reflect.Bool:
		value = l.CLI.Bool(cliName)
	case reflect.Slice:
		value = l.CLI.StringSlice(cliName)
	default:
		return fmt.Errorf("unable to handle type: %s", fieldKind)
	}

	return reflections.SetField(l.Config, fieldName, value)
}

func (l *Loader) setFieldValueFromInput(fieldName, inputName, label string) error {
	fieldKind, err := reflections.GetFieldKind(l.Config, fieldName)
	if err != nil {
		return fmt.Errorf("getting the kind of struct field %q: %w", fieldName, err)
	}

	raw, ok := l.Inputs.GetInput(inputName)
	if !ok {
		def, err := reflections.GetFieldTag(l.Config, fieldName, "default")
		if err != nil || def == "" {
			return nil
		}
		raw = def
	}

	var value any
	switch fieldKind {
	case reflect.String:
		value = raw
	case reflect.Bool:
		b, ok := env.ParseBool(raw)
		if !ok {
			return &ValidationError{
				Label:   label,
				Message: fmt.Sprintf("%q is not a boolean, use true or false", strings.TrimSpace(raw)),
			}
		}
		value = b
	case reflect.Slice:
		lines := strings.Split(raw, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSuffix(line, "\r")
		}
		value = lines
	default:
		return fmt.Errorf("unable to handle type: %s", fieldKind)
	}

	if err := reflections.SetField(l.Config, fieldName, value); err != nil {
		return fmt.Errorf("setting value field %q: %w", fieldName, err)
	}
	return nil
}

func (l *Loader) fieldValueIsEmpty(fieldName string) bool {
	value, _ := reflections.GetField(l.Config, fieldName)
	fieldKind, _ := reflections.GetFieldKind(l.Config, fieldName)

	switch fieldKind {
	case reflect.String:
		return value == ""
	case reflect.Slice:
		return reflect.ValueOf(value).Len() == 0
	case reflect.Bool:
		return value == false
	default:
		panic(fmt.Sprintf("Can't determine empty-ness for field type %s", fieldKind))
	}
}

func (l *Loader) validateField(fieldName, label, validationRules string) error {
	for rule := range strings.SplitSeq(validationRules, ",") {
		switch rule {
		case "required":
			if l.fieldValueIsEmpty(fieldName) {
				return &ValidationError{Label: label, Message: "a value is required"}
			}

		case "url":
			value, _ := reflections.GetField(l.Config, fieldName)
			s, _ := value.(string)
			if s != "" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
				return &ValidationError{Label: label, Message: fmt.Sprintf("%q must start with http:// or https://", s)}
			}

		default:
			return fmt.Errorf("unknown config validation rule %q", rule)
		}
	}

	return nil
}

var errNormalizeKind = errors.New("normalization does not apply to this field type")

func (l *Loader) normalizeField(fieldName, normalization string) error {
	value, _ := reflections.GetField(l.Config, fieldName)

	for n := range strings.SplitSeq(normalization, "|") {
		var err error
		switch n {
		case "trim":
			value, err = mapStrings(value, strings.TrimSpace)
		case "lower":
			value, err = mapStrings(value, strings.ToLower)
		case "lines":
			lines, ok := value.([]string)
			if !ok {
				return fmt.Errorf("lines: %w", errNormalizeKind)
			}
			kept := make([]string, 0, len(lines))
			for _, line := range lines {
				if strings.TrimSpace(line) != "" {
					kept = append(kept, line)
				}
			}
			value = kept
		default:
			return fmt.Errorf("unknown normalization %q", n)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", n, err)
		}
	}

	return reflections.SetField(l.Config, fieldName, value)
}

func mapStrings(value any, f func(string) string) (any, error) {
	switch v := value.(type) {
	case string:
		return f(v), nil
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = f(s)
		}
		return out, nil
	default:
		return nil, errNormalizeKind
	}
}
