// Package convert holds the conversion registry: a catalog of converter
// node types and the search that turns a capability mismatch into an
// ordered chain of converters bridging it.
package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/machinefabric/capneg-go/constraint"
)

// Step is one converter application inside a conversion path.
type Step struct {
	NodeType string         `json:"node_type" yaml:"node_type"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Path is an ordered, non-empty chain of converter steps that bridges a
// capability mismatch when applied between producer and consumer. An absent
// path is always represented as a nil *Path, never as an empty one.
type Path struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// String renders the chain as "a -> b -> c".
func (p *Path) String() string {
	if p == nil || len(p.Steps) == 0 {
		return "<none>"
	}
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.NodeType
	}
	return strings.Join(names, " -> ")
}

// Definition describes one registered converter node type.
type Definition struct {
	// NodeType is the registry key the scheduler uses to instantiate the
	// converter, e.g. "audio.resample".
	NodeType string `yaml:"node_type"`
	// From and To are the modalities the converter consumes and produces.
	// They are equal for field-level converters and differ for decoders
	// and encoders that change modality wholesale.
	From constraint.Modality `yaml:"from"`
	To   constraint.Modality `yaml:"to"`
	// Fields lists the field paths (of the To modality) the converter can
	// narrow to arbitrary target values. Empty for cross-modality
	// converters that fix nothing beyond the modality itself.
	Fields []string `yaml:"fields,omitempty"`
	// ParamsSchema optionally carries a JSON schema that every synthesized
	// parameter set for this converter must satisfy.
	ParamsSchema map[string]any `yaml:"params_schema,omitempty"`
	// DefaultParams seed the params of every synthesized step.
	DefaultParams map[string]any `yaml:"default_params,omitempty"`
	Description   string         `yaml:"description,omitempty"`
}

// signature is the direct-lookup key: modalities plus the sorted
// mismatched-field set the converter resolves in one step.
func (d Definition) signature() string {
	return signatureKey(d.From, d.To, d.Fields)
}

func signatureKey(from, to constraint.Modality, fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s|%s|%s", from, to, strings.Join(sorted, ","))
}

// RegistrationError reports an invalid converter definition.
type RegistrationError struct {
	NodeType string
	Message  string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("converter %q: %s", e.NodeType, e.Message)
}
