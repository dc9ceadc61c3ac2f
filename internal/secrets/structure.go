package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Structure selects how a secret value is split into several secrets.
type Structure int

const (
	StructureNone Structure = iota
	StructureJSON
	StructureYAML
)

// Pair is one key/value pair of a structured secret.
type Pair struct {
	Name  string
	Value string
}

var (
	ErrNested       = errors.New("secret contains nested structures, only flat key-value pairs are allowed")
	ErrDuplicateKey = errors.New("duplicate key, secrets must have unique keys")
	ErrNotAnObject  = errors.New("secret is not a key-value object")
)

// Expand splits value into its top-level pairs, in document order.
func (s Structure) Expand(value string) ([]Pair, error) {
	switch s {
	case StructureJSON:
		return expandJSON(value)
	case StructureYAML:
		return expandYAML(value)
	default:
		return []Pair{{Value: value}}, nil
	}
}

func expandJSON(value string) ([]Pair, error) {
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotAnObject
	}

	var pairs []Pair
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		key := tok.(string)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing JSON value of %q: %w", key, err)
		}
		v, err := jsonScalar(key, raw)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Name: key, Value: v})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the closing brace", ErrNotAnObject)
	}
	return pairs, nil
}

func jsonScalar(key string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return "", nil
	case raw[0] == '{' || raw[0] == '[':
		return "", fmt.Errorf("%w: %q", ErrNested, key)
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("parsing JSON value of %q: %w", key, err)
		}
		return s, nil
	default:
		return string(raw), nil
	}
}

func expandYAML(value string) ([]Pair, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrNotAnObject
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotAnObject
	}

	pairs := make([]Pair, 0, len(root.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if seen[k.Value] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, k.Value)
		}
		seen[k.Value] = true
		if v.Kind == yaml.AliasNode {
			v = v.Alias
		}
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %q", ErrNested, k.Value)
		}
		pairs = append(pairs, Pair{Name: k.Value, Value: yamlScalar(v)})
	}
	return pairs, nil
}

// yamlScalar renders non-string scalars the way JSON would.
func yamlScalar(n *yaml.Node) string {
	switch n.ShortTag() {
	case "!!null":
		return "null"
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return fmt.Sprint(b)
		}
	}
	return n.Value
}
