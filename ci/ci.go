// Package ci abstracts the job runtime the action runs inside.
package ci

// CI is the set of job runtime operations the action needs.
type CI interface {
	// GetInput returns the named action input. Empty and whitespace-only
	// values count as absent.
	GetInput(name string) (string, bool)

	// SetEnvironment exports name=value to the environment of later steps.
	SetEnvironment(name, value string) error

	// SetOutput publishes name=value as a step output.
	SetOutput(name, value string) error

	// MaskValue asks the runtime to redact value from all further log output.
	// It never fails; hosts that cannot mask silently ignore the request.
	MaskValue(value string)
}
