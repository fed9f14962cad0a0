package convert

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/machinefabric/capneg-go/constraint"
)

// MaxSearchDepth bounds the converter chain search so conversion insertion
// cannot grow the compiled graph unboundedly.
const MaxSearchDepth = 3

// Registry is the catalog of known converter node types. It is populated
// at startup and read-only during resolution; Register swaps the lookup
// tables copy-on-write under a lock so an in-flight FindPath never observes
// a partially updated catalog.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	byType  map[string]Definition
	direct  map[string]Definition
	ordered []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a structured logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates an empty converter registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:    zerolog.Nop(),
		byType: make(map[string]Definition),
		direct: make(map[string]Definition),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a converter definition to the catalog. The definition is
// validated up front: node type and modalities must be set, a declared
// params schema must compile, and default params must satisfy it. Duplicate
// node types are rejected.
func (r *Registry) Register(def Definition) error {
	if def.NodeType == "" {
		return &RegistrationError{Message: "node type is required"}
	}
	if def.From == "" || def.To == "" {
		return &RegistrationError{NodeType: def.NodeType, Message: "from and to modalities are required"}
	}
	if def.From == def.To && len(def.Fields) == 0 {
		return &RegistrationError{NodeType: def.NodeType, Message: "same-modality converter must declare the fields it transforms"}
	}

	if def.ParamsSchema != nil {
		loader := gojsonschema.NewGoLoader(def.ParamsSchema)
		if _, err := gojsonschema.NewSchema(loader); err != nil {
			return &RegistrationError{NodeType: def.NodeType, Message: fmt.Sprintf("params schema does not compile: %v", err)}
		}
		if def.DefaultParams != nil {
			// Defaults are a partial seed: the converter's target fields are
			// synthesized at path-build time, so required fields are only
			// enforced on the complete params there, not here.
			relaxed, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(withoutRequired(def.ParamsSchema)))
			if err != nil {
				return &RegistrationError{NodeType: def.NodeType, Message: fmt.Sprintf("params schema does not compile: %v", err)}
			}
			if err := validateParams(relaxed, def.DefaultParams); err != nil {
				return &RegistrationError{NodeType: def.NodeType, Message: fmt.Sprintf("default params rejected by schema: %v", err)}
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[def.NodeType]; exists {
		return &RegistrationError{NodeType: def.NodeType, Message: "already registered"}
	}
	sig := def.signature()
	if prior, exists := r.direct[sig]; exists {
		return &RegistrationError{
			NodeType: def.NodeType,
			Message:  fmt.Sprintf("signature collides with %q", prior.NodeType),
		}
	}

	// Copy-on-write so concurrent FindPath calls keep a consistent view.
	byType := make(map[string]Definition, len(r.byType)+1)
	for k, v := range r.byType {
		byType[k] = v
	}
	byType[def.NodeType] = def

	direct := make(map[string]Definition, len(r.direct)+1)
	for k, v := range r.direct {
		direct[k] = v
	}
	direct[sig] = def

	ordered := make([]string, 0, len(byType))
	for k := range byType {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	r.byType = byType
	r.direct = direct
	r.ordered = ordered

	r.log.Debug().
		Str("node_type", def.NodeType).
		Str("from", string(def.From)).
		Str("to", string(def.To)).
		Strs("fields", def.Fields).
		Msg("converter registered")
	return nil
}

// Definition returns the registered converter for a node type.
func (r *Registry) Definition(nodeType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byType[nodeType]
	return def, ok
}

// Definitions returns all registered converters sorted by node type.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.ordered))
	for _, name := range r.ordered {
		defs = append(defs, r.byType[name])
	}
	return defs
}

// FindPath proposes a converter chain bridging the producer's output
// constraints into the consumer's input constraints.
//
// Lookup runs in two tiers: a direct lookup of a single converter
// registered for the exact (from-modality, to-modality, mismatched-field)
// signature, then a breadth-first search over registered converters bounded
// by MaxSearchDepth, returning the shortest chain. Ties are broken by
// lexicographic node-type order, which keeps resolution deterministic.
//
// The returned path is nil when the constraints already overlap (nothing to
// convert) or when no chain exists. In the latter case the second return
// lists the mismatched field paths no registered converter can narrow
// (FieldModality when the modalities themselves disagree and no decoder
// chain reaches the target modality).
func (r *Registry) FindPath(from, to constraint.MediaConstraints) (*Path, []string) {
	_, misses := constraint.Intersect(from, to)
	if len(misses) == 0 {
		return nil, nil
	}

	crossModality := len(misses) == 1 && misses[0].Path == constraint.FieldModality
	var mismatched []string
	if crossModality {
		// After a modality conversion every constrained target field must
		// still be met; the converter's declared fields count toward that.
		mismatched = to.ConstrainedFields()
	} else {
		for _, m := range misses {
			mismatched = append(mismatched, m.Path)
		}
	}

	r.mu.RLock()
	byType, direct, ordered := r.byType, r.direct, r.ordered
	r.mu.RUnlock()

	// Tier 1: single converter registered for the exact signature.
	if def, ok := direct[signatureKey(from.Modality, to.Modality, mismatched)]; ok {
		if path := r.buildPath([]Definition{def}, to); path != nil {
			r.log.Debug().Str("path", path.String()).Msg("direct converter found")
			return path, nil
		}
	}

	// Tier 2: bounded breadth-first search for the shortest chain.
	if chain := searchChains(byType, ordered, from.Modality, to.Modality, mismatched, crossModality); chain != nil {
		if path := r.buildPath(chain, to); path != nil {
			r.log.Debug().Str("path", path.String()).Msg("converter chain found")
			return path, nil
		}
	}

	uncovered := r.uncoveredFields(byType, from.Modality, to.Modality, mismatched, crossModality)
	r.log.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Strs("uncovered", uncovered).
		Msg("no conversion path")
	return nil, uncovered
}

// searchChains finds the shortest converter chain turning the source
// modality plus mismatched-field set into the target. States are
// (modality, sorted remaining fields); the remaining set is only meaningful
// once the chain has reached the target modality.
func searchChains(byType map[string]Definition, ordered []string, fromMod, toMod constraint.Modality, mismatched []string, crossModality bool) []Definition {
	type state struct {
		modality  constraint.Modality
		remaining []string
		chain     []Definition
	}

	initial := state{modality: fromMod, remaining: sortedCopy(mismatched)}
	if crossModality {
		initial.remaining = nil // not at target modality yet
	}

	queue := []state{initial}
	visited := map[string]bool{stateKey(initial.modality, initial.remaining): true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.chain) >= MaxSearchDepth {
			continue
		}

		for _, name := range ordered {
			def := byType[name]
			if def.From != cur.modality {
				continue
			}

			var next state
			next.modality = def.To
			next.chain = append(append([]Definition(nil), cur.chain...), def)

			if def.From == def.To {
				if cur.modality != toMod {
					continue // field converters only help at the target modality
				}
				next.remaining = subtract(cur.remaining, def.Fields)
				if len(next.remaining) == len(cur.remaining) {
					continue // must make progress
				}
			} else if def.To == toMod {
				next.remaining = subtract(sortedCopy(mismatched), def.Fields)
			} else {
				next.remaining = nil // intermediate modality
			}

			if next.modality == toMod && len(next.remaining) == 0 {
				return next.chain
			}

			key := stateKey(next.modality, next.remaining)
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, next)
		}
	}
	return nil
}

// buildPath synthesizes step params from the target constraints and
// validates them against each converter's declared schema. A schema
// rejection invalidates the chain.
func (r *Registry) buildPath(chain []Definition, to constraint.MediaConstraints) *Path {
	steps := make([]Step, 0, len(chain))
	for _, def := range chain {
		params := map[string]any{}
		for k, v := range def.DefaultParams {
			params[k] = v
		}
		for _, field := range def.Fields {
			if target, ok := to.FieldTarget(field); ok {
				params[field] = target
			}
		}
		if len(params) == 0 {
			params = nil
		}

		if def.ParamsSchema != nil && params != nil {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.ParamsSchema))
			if err == nil {
				if err := validateParams(schema, params); err != nil {
					r.log.Warn().
						Str("node_type", def.NodeType).
						Err(err).
						Msg("synthesized params rejected by converter schema")
					return nil
				}
			}
		}

		steps = append(steps, Step{NodeType: def.NodeType, Params: params})
	}
	if len(steps) == 0 {
		return nil
	}
	return &Path{Steps: steps}
}

// uncoveredFields reports which mismatched fields no registered converter
// can narrow. For a modality disagreement with no reachable decoder chain
// the whole mismatch is uncovered.
func (r *Registry) uncoveredFields(byType map[string]Definition, fromMod, toMod constraint.Modality, mismatched []string, crossModality bool) []string {
	if crossModality {
		return []string{constraint.FieldModality}
	}
	var uncovered []string
	for _, field := range mismatched {
		covered := false
		for _, def := range byType {
			if def.From == toMod && def.To == toMod && contains(def.Fields, field) {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, field)
		}
	}
	if len(uncovered) == 0 {
		// Every field has a converter but no chain assembled within the
		// depth bound; surface the full set so the caller reports something.
		uncovered = sortedCopy(mismatched)
	}
	sort.Strings(uncovered)
	return uncovered
}

func validateParams(schema *gojsonschema.Schema, params map[string]any) error {
	// Round-trip through JSON so yaml-decoded values (e.g. int) compare the
	// way the schema engine expects.
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate params: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid params: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// withoutRequired copies a schema document minus its top-level "required"
// list, for validating partial parameter sets.
func withoutRequired(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if k == "required" {
			continue
		}
		out[k] = v
	}
	return out
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func subtract(from, remove []string) []string {
	var out []string
	for _, f := range from {
		if !contains(remove, f) {
			out = append(out, f)
		}
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func stateKey(m constraint.Modality, remaining []string) string {
	return string(m) + "|" + strings.Join(remaining, ",")
}
