// Package constraint defines the constraint value algebra and the
// per-modality media constraint records used during capability negotiation.
//
// A Value restricts one field of a media-format description to an exact
// value, a closed numeric range, an enumerated set, or leaves it
// unrestricted. Overlaps computes the tightest intersection of two values,
// which is the single primitive every higher layer (validation, adaptive
// resolution, conversion planning) is built on.
package constraint

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	// KindAny places no restriction on the field. The zero Value is Any,
	// so an unset field in a constraint record means "accepts anything".
	KindAny Kind = iota
	// KindExact restricts the field to a single value.
	KindExact
	// KindRange restricts the field to a closed interval [Min, Max].
	KindRange
	// KindSet restricts the field to an enumerated, non-empty set of values.
	KindSet
)

// String returns the lowercase variant name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindExact:
		return "exact"
	case KindRange:
		return "range"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// ValueError represents an invalid constraint value construction.
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return e.Message
}

// Value is a constraint on a single field of semantic type T.
// The zero Value is Any.
type Value[T cmp.Ordered] struct {
	kind  Kind
	exact T
	min   T
	max   T
	set   []T
}

// Any returns the unrestricted constraint.
func Any[T cmp.Ordered]() Value[T] {
	return Value[T]{kind: KindAny}
}

// Exact returns a constraint admitting only v.
func Exact[T cmp.Ordered](v T) Value[T] {
	return Value[T]{kind: KindExact, exact: v}
}

// Range returns a constraint admitting every value in [min, max].
// min > max is a construction error, never a silently-empty constraint.
func Range[T cmp.Ordered](min, max T) (Value[T], error) {
	if min > max {
		return Value[T]{}, &ValueError{
			Message: fmt.Sprintf("range min %v exceeds max %v", min, max),
		}
	}
	return Value[T]{kind: KindRange, min: min, max: max}, nil
}

// MustRange is Range for statically known bounds. Panics on min > max.
func MustRange[T cmp.Ordered](min, max T) Value[T] {
	v, err := Range(min, max)
	if err != nil {
		panic(err)
	}
	return v
}

// Set returns a constraint admitting exactly the given values.
// Values are deduplicated and stored sorted so equal sets compare equal.
// An empty set is a construction error: "no valid values" must be modeled
// as a failed intersection, not as a Value.
func Set[T cmp.Ordered](values ...T) (Value[T], error) {
	if len(values) == 0 {
		return Value[T]{}, &ValueError{Message: "constraint set cannot be empty"}
	}
	s := slices.Clone(values)
	slices.Sort(s)
	s = slices.Compact(s)
	return Value[T]{kind: KindSet, set: s}, nil
}

// MustSet is Set for statically known members. Panics on an empty set.
func MustSet[T cmp.Ordered](values ...T) Value[T] {
	v, err := Set(values...)
	if err != nil {
		panic(err)
	}
	return v
}

// Kind returns the variant of the value.
func (v Value[T]) Kind() Kind {
	return v.kind
}

// IsAny reports whether the value places no restriction.
func (v Value[T]) IsAny() bool {
	return v.kind == KindAny
}

// ExactValue returns the exact value and true when Kind is KindExact.
func (v Value[T]) ExactValue() (T, bool) {
	return v.exact, v.kind == KindExact
}

// Bounds returns the inclusive range bounds and true when Kind is KindRange.
func (v Value[T]) Bounds() (min, max T, ok bool) {
	return v.min, v.max, v.kind == KindRange
}

// Members returns the sorted set members and true when Kind is KindSet.
// The returned slice is a copy.
func (v Value[T]) Members() ([]T, bool) {
	if v.kind != KindSet {
		return nil, false
	}
	return slices.Clone(v.set), true
}

// Contains reports whether x is admitted by the constraint.
func (v Value[T]) Contains(x T) bool {
	switch v.kind {
	case KindAny:
		return true
	case KindExact:
		return v.exact == x
	case KindRange:
		return v.min <= x && x <= v.max
	case KindSet:
		_, found := slices.BinarySearch(v.set, x)
		return found
	default:
		return false
	}
}

// Equal reports structural equality of two values.
func (v Value[T]) Equal(other Value[T]) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindAny:
		return true
	case KindExact:
		return v.exact == other.exact
	case KindRange:
		return v.min == other.min && v.max == other.max
	case KindSet:
		return slices.Equal(v.set, other.set)
	default:
		return false
	}
}

// String renders the value in a compact diagnostic form:
// "any", "=16000", "[8000..48000]", "{1,2,6}".
func (v Value[T]) String() string {
	switch v.kind {
	case KindAny:
		return "any"
	case KindExact:
		return fmt.Sprintf("=%v", v.exact)
	case KindRange:
		return fmt.Sprintf("[%v..%v]", v.min, v.max)
	case KindSet:
		parts := make([]string, len(v.set))
		for i, m := range v.set {
			parts[i] = fmt.Sprintf("%v", m)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "invalid"
	}
}

// Overlaps returns the tightest Value describing the intersection of a and
// b, and false when the two constraints are disjoint. It is pure,
// commutative, and Any is its identity element.
func Overlaps[T cmp.Ordered](a, b Value[T]) (Value[T], bool) {
	// Any is the identity: the other operand passes through unchanged.
	if a.kind == KindAny {
		return b, true
	}
	if b.kind == KindAny {
		return a, true
	}

	// Normalize so the switch below only handles the upper triangle;
	// kinds are ordered Exact < Range < Set.
	if a.kind > b.kind {
		a, b = b, a
	}

	switch {
	case a.kind == KindExact && b.kind == KindExact:
		if a.exact == b.exact {
			return a, true
		}
	case a.kind == KindExact && b.kind == KindRange:
		if b.Contains(a.exact) {
			return a, true
		}
	case a.kind == KindExact && b.kind == KindSet:
		if b.Contains(a.exact) {
			return a, true
		}
	case a.kind == KindRange && b.kind == KindRange:
		lo := max(a.min, b.min)
		hi := min(a.max, b.max)
		if lo <= hi {
			return Value[T]{kind: KindRange, min: lo, max: hi}, true
		}
	case a.kind == KindRange && b.kind == KindSet:
		var kept []T
		for _, m := range b.set {
			if a.Contains(m) {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			return Value[T]{kind: KindSet, set: kept}, true
		}
	case a.kind == KindSet && b.kind == KindSet:
		var kept []T
		for _, m := range a.set {
			if b.Contains(m) {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			return Value[T]{kind: KindSet, set: kept}, true
		}
	}

	return Value[T]{}, false
}
