package capneg

import (
	"github.com/machinefabric/capneg-go/constraint"
)

// NodeFactory is the opaque handle the node registry returns for a node
// type. The resolver asserts the behavior-specific interface below that
// matches the type's declared Behavior; a factory that does not implement
// it is reported as a "<factory>" mismatch, not a panic.
type NodeFactory interface{}

// StaticFactory is implemented by factories of BehaviorStatic node types.
type StaticFactory interface {
	MediaCapabilities() constraint.MediaCapabilities
}

// ConfiguredFactory is implemented by factories of BehaviorConfigured node
// types; capabilities are a pure function of the node's declared params.
type ConfiguredFactory interface {
	MediaCapabilitiesFor(params map[string]any) (constraint.MediaCapabilities, error)
}

// AdaptiveFactory is implemented by factories of BehaviorAdaptive node
// types. DeclaredCapabilities returns the template the reverse pass
// narrows: its input is used as-declared and its output fields are
// intersected with every downstream consumer's input requirements.
type AdaptiveFactory interface {
	DeclaredCapabilities() constraint.MediaCapabilities
}

// DiscoveredFactory is implemented by factories of
// BehaviorRuntimeDiscovered node types. PotentialCapabilities returns the
// broad provisional declaration used for optimistic forward-pass
// validation; ActualCapabilities is only meaningful after the node's
// external initialization completes and is what callers pass to
// Resolver.Revalidate.
type DiscoveredFactory interface {
	PotentialCapabilities() constraint.MediaCapabilities
	ActualCapabilities() constraint.MediaCapabilities
}

// BehaviorLookup is the node-registry surface the resolver consumes: the
// declared behavior and factory for each node type named by the graph.
type BehaviorLookup interface {
	BehaviorOf(nodeType string) (Behavior, error)
	FactoryOf(nodeType string) (NodeFactory, error)
}
