// The graph package defines the node and edge types shared by the dataset
// generation, partitioning and scoring pipelines.
package graph

import (
	"errors"
	"fmt"
)

var (
	ErrSelfLoop         = errors.New("graph: self-loops are not allowed")
	ErrDuplicateEdge    = errors.New("graph: duplicate edge")
	ErrInvalidEndpoint  = errors.New("graph: edge endpoint is not a valid node")
	ErrInvalidNodeCount = errors.New("graph: node count must be positive")
)

// ID identifies a node within one graph generation. IDs are assigned
// sequentially from 0 during synthesis and are immutable thereafter.
type ID int

// Edge is an undirected citation between two nodes, stored in canonical
// form (Source < Target).
type Edge struct {
	Source ID
	Target ID
}

// NewEdge returns the canonical form of the edge between a and b.
func NewEdge(a, b ID) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{Source: a, Target: b}
}

// Touches returns whether node is one of the edge endpoints.
func (e Edge) Touches(node ID) bool {
	return e.Source == node || e.Target == node
}

// Graph is a set of nodes 0..NumNodes-1 plus a set of undirected edges.
type Graph struct {
	NumNodes int
	Edges    []Edge
}

// Degrees returns the degree of each node, indexed by ID.
func (g Graph) Degrees() []int {
	degrees := make([]int, g.NumNodes)
	for _, e := range g.Edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}
	return degrees
}

// Neighbors returns the adjacency lists of the graph, indexed by ID.
func (g Graph) Neighbors() [][]ID {
	neighbors := make([][]ID, g.NumNodes)
	for _, e := range g.Edges {
		neighbors[e.Source] = append(neighbors[e.Source], e.Target)
		neighbors[e.Target] = append(neighbors[e.Target], e.Source)
	}
	return neighbors
}

// Validate checks the structural invariants of the graph: positive node count,
// endpoints within range, no self-loops and no duplicate edges.
// A violation is a generation-time defect and is never corrected silently.
func (g Graph) Validate() error {
	if g.NumNodes <= 0 {
		return ErrInvalidNodeCount
	}

	seen := make(map[Edge]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if e.Source == e.Target {
			return fmt.Errorf("%w: (%d,%d)", ErrSelfLoop, e.Source, e.Target)
		}

		if !g.contains(e.Source) || !g.contains(e.Target) {
			return fmt.Errorf("%w: (%d,%d) with %d nodes", ErrInvalidEndpoint, e.Source, e.Target, g.NumNodes)
		}

		canonical := NewEdge(e.Source, e.Target)
		if _, ok := seen[canonical]; ok {
			return fmt.Errorf("%w: (%d,%d)", ErrDuplicateEdge, e.Source, e.Target)
		}
		seen[canonical] = struct{}{}
	}

	return nil
}

func (g Graph) contains(node ID) bool {
	return node >= 0 && int(node) < g.NumNodes
}
