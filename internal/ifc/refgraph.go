package ifc

import (
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// ReferenceGraph is the directed "points to" graph of a Store: an edge
// runs from every entity to each entity one of its attributes references.
// References to ids that were never parsed are dropped.
type ReferenceGraph struct {
	g            graph.Graph[int, int]
	predecessors map[int]map[int]graph.Edge[int]
}

// NewReferenceGraph builds the reference graph of the store. With no
// targetTypes every entity and reference is included. Otherwise only
// references into entities of those types become edges, and only their
// endpoints become vertices, which keeps the graph to a fraction of a large
// model. Construction and lookups are iterative, so cyclic references are
// harmless.
func NewReferenceGraph(s *Store, targetTypes ...string) *ReferenceGraph {
	g := graph.New(graph.IntHash, graph.Directed())

	var targets map[string]bool
	if len(targetTypes) > 0 {
		targets = make(map[string]bool, len(targetTypes))
		for _, t := range targetTypes {
			targets[strings.ToUpper(t)] = true
		}
	}

	ids := s.IDs()
	if targets == nil {
		for _, id := range ids {
			_ = g.AddVertex(id)
		}
	}
	for _, id := range ids {
		e, _ := s.Get(id)
		for _, ref := range e.References() {
			target, ok := s.Get(ref)
			if !ok {
				continue
			}
			if targets != nil {
				if !targets[target.Type] {
					continue
				}
				// ErrVertexAlreadyExists for shared endpoints
				_ = g.AddVertex(id)
				_ = g.AddVertex(ref)
			}
			// duplicate edges (same reference twice) are expected and ignored
			_ = g.AddEdge(id, ref)
		}
	}

	preds, err := g.PredecessorMap()
	if err != nil {
		preds = map[int]map[int]graph.Edge[int]{}
	}

	return &ReferenceGraph{g: g, predecessors: preds}
}

// Referrers returns the ids of entities that reference id, ascending.
func (r *ReferenceGraph) Referrers(id int) []int {
	edges := r.predecessors[id]
	if len(edges) == 0 {
		return nil
	}
	ids := make([]int, 0, len(edges))
	for from := range edges {
		ids = append(ids, from)
	}
	sort.Ints(ids)
	return ids
}

// References returns the ids id points to, ascending.
func (r *ReferenceGraph) References(id int) []int {
	adj, err := r.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	ids := make([]int, 0, len(adj[id]))
	for to := range adj[id] {
		ids = append(ids, to)
	}
	sort.Ints(ids)
	return ids
}

// Size returns the vertex and edge counts.
func (r *ReferenceGraph) Size() (vertices, edges int) {
	order, err := r.g.Order()
	if err != nil {
		return 0, 0
	}
	size, err := r.g.Size()
	if err != nil {
		return order, 0
	}
	return order, size
}
