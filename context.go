package capneg

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/machinefabric/capneg-go/constraint"
)

// ResolutionState is a node's position in the resolution state machine.
type ResolutionState uint8

const (
	// StateResolved is terminal: the node's capabilities are settled.
	StateResolved ResolutionState = iota
	// StateNeedsReverse marks an adaptive node awaiting the reverse pass,
	// or one whose downstream intersection was empty and is unresolved.
	StateNeedsReverse
	// StateProvisional marks a runtime-discovered node validated only
	// against its broad potential capabilities.
	StateProvisional
)

func (s ResolutionState) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateNeedsReverse:
		return "needs-reverse"
	case StateProvisional:
		return "provisional"
	default:
		return "unknown"
	}
}

// CapabilitySource records which strategy produced a resolved value, for
// diagnostics.
type CapabilitySource uint8

const (
	SourceStatic CapabilitySource = iota
	SourceConfigured
	SourcePassthrough
	SourceAdaptive
	SourceDiscovered
)

func (s CapabilitySource) String() string {
	switch s {
	case SourceStatic:
		return "static"
	case SourceConfigured:
		return "configured"
	case SourcePassthrough:
		return "passthrough"
	case SourceAdaptive:
		return "adaptive"
	case SourceDiscovered:
		return "discovered"
	default:
		return "unknown"
	}
}

// ResolvedCapabilities is the per-node outcome of resolution.
type ResolvedCapabilities struct {
	Capabilities constraint.MediaCapabilities
	Source       CapabilitySource
	State        ResolutionState
}

// InsertedNode is a converter node synthesized during resolution. Edge
// identifies the original connection the converter was spliced into;
// Ordinal is the node's position in that edge's chain.
type InsertedNode struct {
	ID       NodeID         `json:"id"`
	NodeType string         `json:"node_type"`
	Params   map[string]any `json:"params,omitempty"`
	Edge     Connection     `json:"edge"`
	Ordinal  int            `json:"ordinal"`
}

// Context is the outcome of one Resolve invocation: per-node resolved
// capabilities, the synthesized converter nodes, the effective routing
// overlay, and every accumulated mismatch. A fresh context is created per
// pipeline construction and is never reused.
//
// Resolve itself is single-threaded, but Revalidate may be called
// concurrently for different runtime-discovered nodes; one coarse lock
// guards the whole mutation surface, which is cheap because revalidation
// happens at most once per discovered node per pipeline lifetime.
type Context struct {
	mu sync.Mutex
	// revalMu serializes whole Revalidate calls so two nodes sharing an
	// edge never interleave their read-compute-write cycles.
	revalMu  sync.Mutex
	graph    Graph
	resolved map[NodeID]ResolvedCapabilities
	inserted []InsertedNode
	errors   []Mismatch
	routing  map[Connection][]NodeID
}

func newContext(graph Graph) *Context {
	return &Context{
		graph:    graph,
		resolved: make(map[NodeID]ResolvedCapabilities),
		routing:  make(map[Connection][]NodeID),
	}
}

// HasErrors reports whether any mismatch was accumulated. Callers must
// check this before handing the graph to a scheduler.
func (c *Context) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// ResolvedCapabilities returns the outcome for a node id. The second
// return is false for nodes resolution never settled (e.g. an ambiguous
// passthrough, which is excluded from the schedulable graph).
func (c *Context) ResolvedCapabilities(id NodeID) (ResolvedCapabilities, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc, ok := c.resolved[id]
	return rc, ok
}

// InsertedNodes returns the synthesized converter nodes in insertion order.
func (c *Context) InsertedNodes() []InsertedNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]InsertedNode(nil), c.inserted...)
}

// Errors returns every accumulated mismatch in discovery order.
func (c *Context) Errors() []Mismatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Mismatch(nil), c.errors...)
}

// Routing returns the effective routing for an original edge: the ordered
// inserted-node chain the edge's data must pass through, or nil when the
// edge is direct. The original edge list is never mutated; the scheduler
// consumes this overlay.
func (c *Context) Routing(edge Connection) []NodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]NodeID(nil), c.routing[edge]...)
}

// Graph returns the original manifest-derived graph the context was
// resolved against, unmodified.
func (c *Context) Graph() Graph {
	return c.graph
}

// Digest returns a stable SHA-256 hash over the context's read surface.
// Two resolutions of the same graph and params produce the same digest,
// making it usable as a determinism check or a compiled-pipeline cache key.
func (c *Context) Digest() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make(map[string]any, len(c.resolved))
	for id, rc := range c.resolved {
		resolved[string(id)] = map[string]any{
			"fingerprint": rc.Capabilities.Fingerprint(),
			"source":      rc.Source.String(),
			"state":       rc.State.String(),
		}
	}

	inserted := make([]any, len(c.inserted))
	for i, n := range c.inserted {
		inserted[i] = map[string]any{
			"node_type": n.NodeType,
			"params":    n.Params,
			"edge":      n.Edge.String(),
			"ordinal":   n.Ordinal,
		}
	}

	errs := make([]string, len(c.errors))
	for i, e := range c.errors {
		errs[i] = e.String()
	}

	routing := make(map[string]any, len(c.routing))
	for edge, chain := range c.routing {
		hops := make([]string, len(chain))
		for i, id := range chain {
			hops[i] = string(id)
		}
		routing[edge.String()] = hops
	}

	data, err := constraint.CanonicalBytes(map[string]any{
		"resolved": resolved,
		"inserted": inserted,
		"errors":   errs,
		"routing":  routing,
	})
	if err != nil {
		panic(fmt.Sprintf("context digest encode: %v", err))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// Mutation surface below. Every write goes through these so Resolve and
// concurrent Revalidate calls share one consistent locking discipline.

func (c *Context) setResolved(id NodeID, rc ResolvedCapabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved[id] = rc
}

func (c *Context) getResolved(id NodeID) (ResolvedCapabilities, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc, ok := c.resolved[id]
	return rc, ok
}

// appendError accumulates a mismatch, dropping exact duplicates so
// re-validated edges and repeated revalidations never double-report.
func (c *Context) appendError(m Mismatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.errors {
		if existing.same(m) {
			return
		}
	}
	c.errors = append(c.errors, m)
}

func (c *Context) insertChain(edge Connection, nodes []InsertedNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chain := make([]NodeID, len(nodes))
	for i, n := range nodes {
		chain[i] = n.ID
	}
	c.inserted = append(c.inserted, nodes...)
	c.routing[edge] = chain
}

// chainTypes returns the node types of the converter chain routed over an
// edge, in order.
func (c *Context) chainTypes(edge Connection) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	chain := c.routing[edge]
	if len(chain) == 0 {
		return nil
	}
	byID := make(map[NodeID]string, len(c.inserted))
	for _, n := range c.inserted {
		byID[n.ID] = n.NodeType
	}
	types := make([]string, len(chain))
	for i, id := range chain {
		types[i] = byID[id]
	}
	return types
}

func (c *Context) hasRouting(edge Connection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.routing[edge]
	return ok
}
