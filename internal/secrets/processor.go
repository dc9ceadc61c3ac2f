package secrets

import (
	"context"

	"github.com/bitwarden/sm-action/ci"
)

// Processor publishes a single secret.
type Processor interface {
	ProcessSecret(ctx context.Context, name, value string) error
}

// MaskProcessor hides the value from all later job log output.
type MaskProcessor struct {
	CI ci.CI
}

func (p *MaskProcessor) ProcessSecret(_ context.Context, _, value string) error {
	p.CI.MaskValue(value)
	return nil
}

// EnvironmentProcessor exports the secret as an environment variable for
// later steps.
type EnvironmentProcessor struct {
	CI ci.CI
}

func (p *EnvironmentProcessor) ProcessSecret(_ context.Context, name, value string) error {
	return p.CI.SetEnvironment(name, value)
}

// OutputProcessor publishes the secret as a step output.
type OutputProcessor struct {
	CI ci.CI
}

func (p *OutputProcessor) ProcessSecret(_ context.Context, name, value string) error {
	return p.CI.SetOutput(name, value)
}

// Pipeline returns the processors every secret goes through, in order. The
// value is always masked before it is written anywhere.
func Pipeline(c ci.CI, setEnv bool) []Processor {
	processors := []Processor{&MaskProcessor{CI: c}}
	if setEnv {
		processors = append(processors, &EnvironmentProcessor{CI: c})
	}
	return append(processors, &OutputProcessor{CI: c})
}
