package capneg

import (
	"fmt"

	"github.com/machinefabric/capneg-go/constraint"
	"github.com/machinefabric/capneg-go/convert"
)

// Pseudo field paths for failures that are not a single field's
// disagreement. Keeping them in the same Mismatch shape gives callers one
// error surface to inspect.
const (
	// FieldModality reports producer and consumer declaring different
	// media types entirely. It aliases the constraint package's path so
	// Intersect's modality mismatches and the resolver's reports agree.
	FieldModality = constraint.FieldModality
	// FieldPassthrough reports a passthrough node that cannot determine a
	// unique upstream output.
	FieldPassthrough = "<passthrough>"
	// FieldAdaptiveOutput reports an adaptive node whose downstream
	// consumers have no common intersection.
	FieldAdaptiveOutput = "<adaptive-output>"
	// FieldFactory reports a node type whose registry entry is unusable:
	// unknown type, factory missing the interface its behavior requires,
	// or parameter-dependent capability computation failing.
	FieldFactory = "<factory>"
)

// Severity distinguishes when a mismatch can first be observed.
type Severity string

const (
	// SeverityResolve marks mismatches found during the forward/reverse
	// passes of Resolve.
	SeverityResolve Severity = "resolve"
	// SeverityRuntime marks mismatches found by Revalidate after a
	// runtime-discovered node finished initializing. These surface later
	// than resolve-time errors by construction.
	SeverityRuntime Severity = "runtime"
)

// Mismatch is one accumulated capability failure. Expected and Actual
// carry the rendered constraint values of the consumer requirement and the
// producer offering. SuggestedPath, when set, names a converter chain that
// would bridge the mismatch but was not applied.
type Mismatch struct {
	AtNode        NodeID        `json:"at_node"`
	FieldPath     string        `json:"field_path"`
	Expected      string        `json:"expected"`
	Actual        string        `json:"actual"`
	SuggestedPath *convert.Path `json:"suggested_path,omitempty"`
	Severity      Severity      `json:"severity"`
}

// String renders a one-line operator-readable report.
func (m Mismatch) String() string {
	s := fmt.Sprintf("node %s: %s expected %s, got %s", m.AtNode, m.FieldPath, m.Expected, m.Actual)
	if m.SuggestedPath != nil {
		s += fmt.Sprintf(" (convertible via %s)", m.SuggestedPath)
	}
	if m.Severity == SeverityRuntime {
		s += " [post-initialization]"
	}
	return s
}

// same reports whether two mismatches describe the identical failure,
// ignoring the suggested path. Used to keep revalidation idempotent.
func (m Mismatch) same(other Mismatch) bool {
	return m.AtNode == other.AtNode &&
		m.FieldPath == other.FieldPath &&
		m.Expected == other.Expected &&
		m.Actual == other.Actual &&
		m.Severity == other.Severity
}
