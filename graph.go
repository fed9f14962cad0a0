package capneg

import "fmt"

// NodeID uniquely identifies a node within one pipeline graph.
type NodeID string

// NodeSpec is one node of the manifest-derived pipeline graph.
type NodeSpec struct {
	ID     NodeID         `json:"id"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Connection is one directed edge of the pipeline graph.
type Connection struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

func (c Connection) String() string {
	return fmt.Sprintf("%s->%s", c.From, c.To)
}

// Graph is the pipeline graph handed in by the manifest layer. The manifest
// layer guarantees acyclicity; this package does not re-validate it beyond
// failing a topological sort that cannot complete.
type Graph struct {
	Nodes []NodeSpec   `json:"nodes"`
	Edges []Connection `json:"edges"`
}

// Node returns the NodeSpec for an id.
func (g Graph) Node(id NodeID) (NodeSpec, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// upstream returns the producer ids feeding id, in edge order.
func (g Graph) upstream(id NodeID) []NodeID {
	var ids []NodeID
	for _, e := range g.Edges {
		if e.To == id {
			ids = append(ids, e.From)
		}
	}
	return ids
}

// downstream returns the consumer ids fed by id, in edge order.
func (g Graph) downstream(id NodeID) []NodeID {
	var ids []NodeID
	for _, e := range g.Edges {
		if e.From == id {
			ids = append(ids, e.To)
		}
	}
	return ids
}

// adjacentEdges returns every edge touching id, in edge order.
func (g Graph) adjacentEdges(id NodeID) []Connection {
	var edges []Connection
	for _, e := range g.Edges {
		if e.From == id || e.To == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// topoOrder returns the node ids in topological order using Kahn's
// algorithm. Ties are broken by manifest position, which makes the walk --
// and therefore the whole resolution -- deterministic for a given graph.
// An error is returned if the edges contain a cycle, which violates the
// manifest layer's contract.
func (g Graph) topoOrder() ([]NodeID, error) {
	position := make(map[NodeID]int, len(g.Nodes))
	for i, n := range g.Nodes {
		position[n.ID] = i
	}

	indegree := make(map[NodeID]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		if _, known := position[e.To]; known {
			indegree[e.To]++
		}
	}

	// ready holds processable nodes ordered by manifest position.
	var ready []NodeID
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	order := make([]NodeID, 0, len(g.Nodes))
	for len(ready) > 0 {
		// Pick the earliest manifest position among ready nodes.
		best := 0
		for i := 1; i < len(ready); i++ {
			if position[ready[i]] < position[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, id)

		for _, consumer := range g.downstream(id) {
			if _, known := position[consumer]; !known {
				continue
			}
			indegree[consumer]--
			if indegree[consumer] == 0 {
				ready = append(ready, consumer)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("graph contains a cycle: %d of %d nodes orderable", len(order), len(g.Nodes))
	}
	return order, nil
}
