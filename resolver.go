// Package capneg is the capability negotiation and resolution engine of
// the pipeline runtime. Given the manifest layer's acyclic node graph and
// the node registry's declared behaviors, it assigns resolved media
// capabilities to every node, validates every edge, splices converter
// nodes over mismatched edges where the conversion registry can bridge
// them, and accumulates everything it could not repair into one uniform
// mismatch list for the pipeline-construction layer to inspect.
package capneg

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/machinefabric/capneg-go/constraint"
	"github.com/machinefabric/capneg-go/convert"
)

// converterNamespace seeds the deterministic (version 5) UUIDs assigned to
// synthesized converter nodes, so resolving the same graph twice yields
// identical inserted-node ids.
var converterNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("capneg/converter"))

// Resolver walks a pipeline graph and produces a Context. It is stateless
// across invocations; every Resolve call creates a fresh Context.
type Resolver struct {
	lookup     BehaviorLookup
	converters *convert.Registry
	log        zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a structured logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a resolver over the given node registry surface and
// converter catalog.
func NewResolver(lookup BehaviorLookup, converters *convert.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:     lookup,
		converters: converters,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve performs the two-pass capability resolution over the graph.
//
// It never aborts on a capability mismatch: every failure is accumulated
// in the returned Context, and callers decide what to do with a context
// whose HasErrors is true. The only error return is a caller-contract
// violation: a graph whose edges contain a cycle, which the manifest layer
// was required to reject before this point.
func (r *Resolver) Resolve(graph Graph) (*Context, error) {
	order, err := graph.topoOrder()
	if err != nil {
		return nil, err
	}

	ctx := newContext(graph)
	adaptive := make(map[NodeID]bool)

	// Forward pass: strategy-specific assignment in topological order,
	// validating each node's incoming edges as soon as its input side is
	// known.
	for _, id := range order {
		spec, _ := graph.Node(id)

		behavior, factory, ok := r.lookupNode(ctx, spec)
		if !ok {
			continue
		}

		r.log.Debug().
			Str("node", string(id)).
			Str("type", spec.Type).
			Stringer("behavior", behavior).
			Msg("resolving node")

		switch behavior {
		case BehaviorStatic:
			f, ok := factory.(StaticFactory)
			if !ok {
				r.factoryMismatch(ctx, spec, "factory does not implement StaticFactory")
				continue
			}
			ctx.setResolved(id, ResolvedCapabilities{
				Capabilities: f.MediaCapabilities(),
				Source:       SourceStatic,
				State:        StateResolved,
			})

		case BehaviorConfigured:
			f, ok := factory.(ConfiguredFactory)
			if !ok {
				r.factoryMismatch(ctx, spec, "factory does not implement ConfiguredFactory")
				continue
			}
			caps, err := f.MediaCapabilitiesFor(spec.Params)
			if err != nil {
				r.factoryMismatch(ctx, spec, fmt.Sprintf("capabilities for params: %v", err))
				continue
			}
			ctx.setResolved(id, ResolvedCapabilities{
				Capabilities: caps,
				Source:       SourceConfigured,
				State:        StateResolved,
			})

		case BehaviorPassthrough:
			if !r.resolvePassthrough(ctx, graph, spec) {
				continue
			}

		case BehaviorAdaptive:
			if _, ok := factory.(AdaptiveFactory); !ok {
				r.factoryMismatch(ctx, spec, "factory does not implement AdaptiveFactory")
				continue
			}
			adaptive[id] = true
			// Edges touching this node are validated after the reverse
			// pass makes its output concrete.
			continue

		case BehaviorRuntimeDiscovered:
			f, ok := factory.(DiscoveredFactory)
			if !ok {
				r.factoryMismatch(ctx, spec, "factory does not implement DiscoveredFactory")
				continue
			}
			ctx.setResolved(id, ResolvedCapabilities{
				Capabilities: f.PotentialCapabilities(),
				Source:       SourceDiscovered,
				State:        StateProvisional,
			})
		}

		for _, e := range graph.Edges {
			if e.To == id {
				r.validateEdge(ctx, e, true, SeverityResolve)
			}
		}
	}

	// Reverse pass: adaptive nodes, consumers before producers.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if !adaptive[id] {
			continue
		}
		r.resolveAdaptive(ctx, graph, id)
	}

	return ctx, nil
}

// Revalidate replaces a runtime-discovered node's provisional capabilities
// with the actual ones reported after its external initialization, and
// re-validates only the edges directly touching the node. Newly visible
// conflicts are appended as SeverityRuntime mismatches.
//
// The call is idempotent: repeating it with the same actual capabilities
// changes nothing. Decisions already made from the provisional result
// (inserted converter chains) are never reopened; an actual capability
// that would have demanded a different chain surfaces as a new mismatch
// instead.
//
// Revalidate is safe to call concurrently for different node ids.
func (r *Resolver) Revalidate(ctx *Context, id NodeID, actual constraint.MediaCapabilities) error {
	ctx.revalMu.Lock()
	defer ctx.revalMu.Unlock()

	rc, ok := ctx.getResolved(id)
	if !ok {
		return fmt.Errorf("revalidate %s: node not part of this resolution", id)
	}
	if rc.Source != SourceDiscovered {
		return fmt.Errorf("revalidate %s: node is %s, not runtime-discovered", id, rc.Source)
	}
	if rc.State == StateResolved && rc.Capabilities.Fingerprint() == actual.Fingerprint() {
		return nil
	}

	ctx.setResolved(id, ResolvedCapabilities{
		Capabilities: actual,
		Source:       SourceDiscovered,
		State:        StateResolved,
	})
	r.log.Debug().Str("node", string(id)).Msg("revalidating with actual capabilities")

	for _, e := range ctx.graph.adjacentEdges(id) {
		r.validateEdge(ctx, e, false, SeverityRuntime)
	}
	return nil
}

// lookupNode fetches behavior and factory for a node type, reporting a
// factory mismatch (and returning false) when the registry cannot serve it.
func (r *Resolver) lookupNode(ctx *Context, spec NodeSpec) (Behavior, NodeFactory, bool) {
	behavior, err := r.lookup.BehaviorOf(spec.Type)
	if err != nil {
		r.factoryMismatch(ctx, spec, fmt.Sprintf("behavior lookup: %v", err))
		return 0, nil, false
	}
	factory, err := r.lookup.FactoryOf(spec.Type)
	if err != nil {
		r.factoryMismatch(ctx, spec, fmt.Sprintf("factory lookup: %v", err))
		return 0, nil, false
	}
	return behavior, factory, true
}

func (r *Resolver) factoryMismatch(ctx *Context, spec NodeSpec, detail string) {
	r.log.Warn().Str("node", string(spec.ID)).Str("type", spec.Type).Msg(detail)
	ctx.appendError(Mismatch{
		AtNode:    spec.ID,
		FieldPath: FieldFactory,
		Expected:  spec.Type,
		Actual:    detail,
		Severity:  SeverityResolve,
	})
}

// resolvePassthrough assigns a passthrough node the output of its single
// upstream producer. Zero upstream edges, or more than one structurally
// distinct resolved upstream output, is an ambiguous passthrough: the node
// is left unresolved and excluded from the schedulable graph.
func (r *Resolver) resolvePassthrough(ctx *Context, graph Graph, spec NodeSpec) bool {
	ups := graph.upstream(spec.ID)

	var distinct []constraint.MediaConstraints
	seen := make(map[string]bool)
	for _, up := range ups {
		rc, ok := ctx.getResolved(up)
		if !ok || rc.Capabilities.Output == nil {
			continue
		}
		out := *rc.Capabilities.Output
		fp := out.Fingerprint()
		if !seen[fp] {
			seen[fp] = true
			distinct = append(distinct, out)
		}
	}

	if len(distinct) != 1 {
		ctx.appendError(Mismatch{
			AtNode:    spec.ID,
			FieldPath: FieldPassthrough,
			Expected:  "exactly one resolved upstream output",
			Actual:    fmt.Sprintf("%d upstream edges, %d distinct resolved outputs", len(ups), len(distinct)),
			Severity:  SeverityResolve,
		})
		return false
	}

	out := distinct[0]
	ctx.setResolved(spec.ID, ResolvedCapabilities{
		Capabilities: constraint.MediaCapabilities{Input: &out, Output: &out},
		Source:       SourcePassthrough,
		State:        StateResolved,
	})
	return true
}

// resolveAdaptive computes an adaptive node's output as the left-fold
// intersection of its downstream consumers' input requirements, starting
// from the factory's declared template.
func (r *Resolver) resolveAdaptive(ctx *Context, graph Graph, id NodeID) {
	spec, _ := graph.Node(id)
	factory, err := r.lookup.FactoryOf(spec.Type)
	if err != nil {
		return // already reported in the forward pass
	}
	template := factory.(AdaptiveFactory).DeclaredCapabilities()

	if template.Output == nil {
		// A sink has nothing to adapt; the declaration stands.
		ctx.setResolved(id, ResolvedCapabilities{
			Capabilities: template,
			Source:       SourceAdaptive,
			State:        StateResolved,
		})
		r.revalidateAdjacent(ctx, graph, id)
		return
	}

	acc := *template.Output
	conflict := false
	for _, consumer := range graph.downstream(id) {
		rc, ok := ctx.getResolved(consumer)
		if !ok || rc.Capabilities.Input == nil {
			continue
		}
		in := *rc.Capabilities.Input
		if in.Modality != acc.Modality {
			// The modality clash is reported by edge validation below.
			continue
		}
		narrowed, misses := constraint.Intersect(acc, in)
		if len(misses) > 0 {
			ctx.appendError(Mismatch{
				AtNode:    id,
				FieldPath: FieldAdaptiveOutput,
				Expected:  in.String(),
				Actual:    acc.String(),
				Severity:  SeverityResolve,
			})
			conflict = true
			break
		}
		acc = narrowed
	}

	if conflict {
		// No common intersection: fall back to the widest constraint and
		// leave the node unresolved.
		wide := constraint.AnyOf(acc.Modality)
		ctx.setResolved(id, ResolvedCapabilities{
			Capabilities: constraint.MediaCapabilities{Input: template.Input, Output: &wide},
			Source:       SourceAdaptive,
			State:        StateNeedsReverse,
		})
	} else {
		ctx.setResolved(id, ResolvedCapabilities{
			Capabilities: constraint.MediaCapabilities{Input: template.Input, Output: &acc},
			Source:       SourceAdaptive,
			State:        StateResolved,
		})
		r.log.Debug().Str("node", string(id)).Str("output", acc.String()).Msg("adaptive output resolved")
	}

	r.revalidateAdjacent(ctx, graph, id)
}

func (r *Resolver) revalidateAdjacent(ctx *Context, graph Graph, id NodeID) {
	for _, e := range graph.adjacentEdges(id) {
		r.validateEdge(ctx, e, true, SeverityResolve)
	}
}

// validateEdge checks one edge whose endpoints are both known. On a
// mismatch it queries the conversion registry; with allowConvert it
// splices the found chain into the routing overlay, otherwise (the
// revalidation path) a found chain is only attached to the reported
// mismatches as a suggestion. Fields the registry can individually narrow
// but not assemble into a complete chain are not reported; only genuinely
// unconvertible fields become errors.
func (r *Resolver) validateEdge(ctx *Context, e Connection, allowConvert bool, severity Severity) {
	prod, ok := ctx.getResolved(e.From)
	if !ok {
		return
	}
	cons, ok := ctx.getResolved(e.To)
	if !ok {
		return
	}
	out := prod.Capabilities.Output
	in := cons.Capabilities.Input
	if out == nil || in == nil {
		// Source/sink sides impose no requirement on this edge.
		return
	}

	if ctx.hasRouting(e) {
		if severity == SeverityRuntime {
			r.recheckRoutedEdge(ctx, e, *out, *in)
		}
		return
	}

	_, misses := ValidateConnection(*out, *in)
	if len(misses) == 0 {
		return
	}

	path, uncovered := r.converters.FindPath(*out, *in)
	if path != nil {
		if allowConvert {
			ctx.insertChain(e, r.synthesizeNodes(e, path))
			r.log.Debug().
				Stringer("edge", e).
				Str("chain", path.String()).
				Msg("converter chain inserted")
			return
		}
		// Revalidation never performs graph surgery; surface the repair
		// as a suggestion on the new mismatches instead.
		for _, m := range misses {
			m.AtNode = e.To
			m.Severity = severity
			m.SuggestedPath = path
			ctx.appendError(m)
		}
		return
	}

	for _, m := range misses {
		if !fieldUncovered(uncovered, m.FieldPath) {
			continue
		}
		m.AtNode = e.To
		m.Severity = severity
		ctx.appendError(m)
	}
}

// recheckRoutedEdge re-examines an edge that already has a converter chain
// from the provisional pass. The chain stands if the registry would choose
// the same converters for the actual capabilities; anything else is a new
// runtime-fatal mismatch, never graph surgery.
func (r *Resolver) recheckRoutedEdge(ctx *Context, e Connection, out, in constraint.MediaConstraints) {
	_, misses := ValidateConnection(out, in)
	if len(misses) == 0 {
		// The chain became redundant but harmless.
		return
	}
	path, _ := r.converters.FindPath(out, in)
	if path != nil && sameChain(path, ctx.chainTypes(e)) {
		return
	}
	for _, m := range misses {
		m.AtNode = e.To
		m.Severity = SeverityRuntime
		m.SuggestedPath = path
		ctx.appendError(m)
	}
}

// synthesizeNodes materializes a conversion path as inserted nodes with
// deterministic ids.
func (r *Resolver) synthesizeNodes(e Connection, path *convert.Path) []InsertedNode {
	nodes := make([]InsertedNode, len(path.Steps))
	for i, step := range path.Steps {
		seed := fmt.Sprintf("%s|%d|%s", e, i, step.NodeType)
		id := uuid.NewSHA1(converterNamespace, []byte(seed))
		nodes[i] = InsertedNode{
			ID:       NodeID(id.String()),
			NodeType: step.NodeType,
			Params:   step.Params,
			Edge:     e,
			Ordinal:  i,
		}
	}
	return nodes
}

func sameChain(path *convert.Path, chainTypes []string) bool {
	if len(path.Steps) != len(chainTypes) {
		return false
	}
	for i, step := range path.Steps {
		if step.NodeType != chainTypes[i] {
			return false
		}
	}
	return true
}

func fieldUncovered(uncovered []string, field string) bool {
	for _, u := range uncovered {
		if u == field {
			return true
		}
	}
	return false
}
