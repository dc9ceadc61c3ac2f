package ci

import (
	"strings"
	"sync"
)

// Pair is a name/value pair recorded by Fake.
type Pair struct {
	Name  string
	Value string
}

// Fake is an in-memory CI for tests. It records every call in order.
type Fake struct {
	Inputs map[string]string

	// EnvironmentErr and OutputErr, when set, are returned by the matching
	// setter instead of recording the value.
	EnvironmentErr error
	OutputErr      error

	mu          sync.Mutex
	environment []Pair
	outputs     []Pair
	masked      []string
	calls       []string
}

var _ CI = (*Fake)(nil)

// NewFake returns a Fake with the given inputs.
func NewFake(inputs map[string]string) *Fake {
	if inputs == nil {
		inputs = map[string]string{}
	}
	return &Fake{Inputs: inputs}
}

func (f *Fake) GetInput(name string) (string, bool) {
	v, ok := f.Inputs[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (f *Fake) SetEnvironment(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnvironmentErr != nil {
		return f.EnvironmentErr
	}
	f.environment = append(f.environment, Pair{Name: name, Value: value})
	f.calls = append(f.calls, "env "+name)
	return nil
}

func (f *Fake) SetOutput(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OutputErr != nil {
		return f.OutputErr
	}
	f.outputs = append(f.outputs, Pair{Name: name, Value: value})
	f.calls = append(f.calls, "output "+name)
	return nil
}

func (f *Fake) MaskValue(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.masked = append(f.masked, value)
	f.calls = append(f.calls, "mask")
}

// Environment returns the exported variables in the order they were set.
func (f *Fake) Environment() []Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Pair(nil), f.environment...)
}

// Outputs returns the step outputs in the order they were set.
func (f *Fake) Outputs() []Pair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Pair(nil), f.outputs...)
}

// Masked returns every masked value in order.
func (f *Fake) Masked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.masked...)
}

// Calls returns the call journal: "mask", "env NAME" and "output NAME".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
