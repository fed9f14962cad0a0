package capneg

// Behavior is the closed set of capability resolution strategies a node
// type can declare. Keeping it a tagged constant (not an open interface
// hierarchy) lets the resolver's forward and reverse passes be single
// exhaustive switches the compiler can audit.
type Behavior uint8

const (
	// BehaviorStatic marks capabilities fixed at factory-definition time.
	BehaviorStatic Behavior = iota
	// BehaviorConfigured marks capabilities that are a pure function of
	// the node's declared parameters.
	BehaviorConfigured
	// BehaviorPassthrough marks nodes whose output equals their single
	// upstream node's resolved output.
	BehaviorPassthrough
	// BehaviorAdaptive marks nodes whose output is chosen to satisfy
	// their downstream consumers, requiring the reverse pass.
	BehaviorAdaptive
	// BehaviorRuntimeDiscovered marks nodes whose true capabilities are
	// unknown until their external initialization completes.
	BehaviorRuntimeDiscovered
)

// String returns the lowercase strategy name.
func (b Behavior) String() string {
	switch b {
	case BehaviorStatic:
		return "static"
	case BehaviorConfigured:
		return "configured"
	case BehaviorPassthrough:
		return "passthrough"
	case BehaviorAdaptive:
		return "adaptive"
	case BehaviorRuntimeDiscovered:
		return "runtime-discovered"
	default:
		return "unknown"
	}
}
