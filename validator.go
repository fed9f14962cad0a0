package capneg

import (
	"github.com/machinefabric/capneg-go/constraint"
)

// ValidateConnection checks a producer's output constraints against a
// consumer's input constraints. On success it returns the field-wise
// intersection: the edge's effective, narrowed capability. On failure it
// returns every field-level mismatch in one pass (a modality disagreement
// is a single mismatch with no per-field detail).
//
// The returned mismatches carry no node attribution or severity; the
// resolver stamps those before accumulating them.
func ValidateConnection(producerOutput, consumerInput constraint.MediaConstraints) (constraint.MediaConstraints, []Mismatch) {
	narrowed, fieldMisses := constraint.Intersect(producerOutput, consumerInput)
	if len(fieldMisses) == 0 {
		return narrowed, nil
	}

	misses := make([]Mismatch, len(fieldMisses))
	for i, fm := range fieldMisses {
		misses[i] = Mismatch{
			FieldPath: fm.Path,
			Expected:  fm.Consumer,
			Actual:    fm.Producer,
		}
	}
	return constraint.MediaConstraints{}, misses
}
