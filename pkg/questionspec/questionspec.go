// Package questionspec loads (target, output_type) question specs and
// sample-program fixtures from YAML, the way pkg/kernel/schema/loader.go
// loads runbook/tool definitions — strict unknown-field rejection, a
// typed struct tree, domain-level validation returned as a slice of
// error messages rather than failing on the first one.
package questionspec

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/algotrace/tracequery/pkg/querycompile"
)

// TargetElement is the YAML-facing twin of querycompile.TargetElement —
// kept as a separate type because the wire/file format uses plain string
// keys (yaml tags) where the compiler's type uses *string/*int pointers
// for optional fields.
type TargetElement struct {
	Type       string `yaml:"type"                  json:"type"`
	Name       string `yaml:"name,omitempty"        json:"name,omitempty"`
	LineNumber int    `yaml:"line_number,omitempty" json:"line_number,omitempty"`
	Modifier   string `yaml:"modifier,omitempty"    json:"modifier,omitempty"`
}

// Compile converts the YAML-facing target chain into the compiler's
// TargetElement slice, only setting the pointer fields that were present.
func (t TargetElement) Compile() querycompile.TargetElement {
	out := querycompile.TargetElement{Type: t.Type, Modifier: t.Modifier}
	if t.Name != "" {
		name := t.Name
		out.Name = &name
	}
	if t.LineNumber != 0 {
		line := t.LineNumber
		out.LineNumber = &line
	}
	return out
}

// Spec is one (target chain, output type) question spec, plus the sample
// program and test data used to exercise it. This is the on-disk shape a
// question-spec YAML file or an inline question-generation request body
// declares.
type Spec struct {
	Name          string          `yaml:"name"                     json:"name"`
	Program       string          `yaml:"program"                  json:"program"`
	EntryFunction string          `yaml:"entry_function,omitempty" json:"entry_function,omitempty"`
	TestData      map[string]any  `yaml:"test_data,omitempty"      json:"test_data,omitempty"`
	Target        []TargetElement `yaml:"target"                   json:"target"`
	OutputType    string          `yaml:"output_type"              json:"output_type"`
}

// Fixtures is a named collection of Specs, the file-level shape a single
// question-spec YAML document holds.
type Fixtures struct {
	Specs []Spec `yaml:"specs" json:"specs"`
}

// LoadFile reads and parses a question-spec fixture file with strict
// unknown-field rejection.
func LoadFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question spec fixture: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a question-spec fixture document from r.
func Load(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode question spec fixture: %w", err)
	}
	return &fx, nil
}

// Validate checks a Spec's structural requirements before it reaches the
// compiler: a non-empty program and target chain, a recognized output
// type, and a recognized element type/modifier at each step of the chain.
func Validate(s Spec) []string {
	var errs []string
	if s.Program == "" {
		errs = append(errs, "program must not be empty")
	}
	if len(s.Target) == 0 {
		errs = append(errs, "target must name at least one element")
	}
	switch querycompile.OutputType(s.OutputType) {
	case querycompile.OutputCount, querycompile.OutputList, querycompile.OutputFirst, querycompile.OutputLast:
	default:
		errs = append(errs, fmt.Sprintf("output_type %q is not one of count, list, first, last", s.OutputType))
	}

	validTypes := map[string]bool{"loop": true, "loop_iteration": true, "function": true, "branch": true, "variable": true}
	validModifiers := map[string]bool{"": true, "arguments": true, "return_value": true, "branch_true": true, "branch_false": true, "loop_iterations": true}
	for i, t := range s.Target {
		if !validTypes[t.Type] {
			errs = append(errs, fmt.Sprintf("target[%d].type %q is not a recognized element type", i, t.Type))
		}
		if !validModifiers[t.Modifier] {
			errs = append(errs, fmt.Sprintf("target[%d].modifier %q is not a recognized modifier", i, t.Modifier))
		}
	}
	return errs
}
