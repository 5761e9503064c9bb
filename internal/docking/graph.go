// Package docking models molecular interaction graphs for pose optimization.
//
// A docking instance is a graph whose nodes are candidate contact points
// between two molecules, weighted by interaction strength. A pose is a node
// subset, and the best pose is a maximum-weight clique: pairs that cannot
// coexist are recorded as non-edges and penalized by the cost Hamiltonian.
package docking

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph tags every graph validation failure so callers can match
// the whole class with errors.Is.
var ErrInvalidGraph = errors.New("invalid interaction graph")

// Graph is a docking interaction graph. Weights carries one interaction
// strength per node, aligned with Nodes. NonEdges lists incompatible pairs
// (u, v) with u < v: the complement of the contact edges over all distinct
// node pairs. Qubit i of the encoded Hamiltonian corresponds to Nodes[i].
type Graph struct {
	Nodes    []int     `json:"nodes"`
	Weights  []float64 `json:"weights"`
	NonEdges [][2]int  `json:"non_edges"`
}

// NumNodes returns the node count, which is also the qubit count of the
// encoded Hamiltonian.
func (g Graph) NumNodes() int { return len(g.Nodes) }

// Validate checks the structural invariants of the graph: one weight per
// node, distinct node ids, and non-edges that reference known nodes, carry
// no self-pairs, are ordered u < v, and appear at most once. Violations are
// reported loudly rather than coerced.
func (g Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}
	if len(g.Weights) != len(g.Nodes) {
		return fmt.Errorf("%w: %d nodes but %d weights", ErrInvalidGraph, len(g.Nodes), len(g.Weights))
	}

	known := make(map[int]struct{}, len(g.Nodes))
	for _, id := range g.Nodes {
		if _, dup := known[id]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidGraph, id)
		}
		known[id] = struct{}{}
	}

	seen := make(map[[2]int]struct{}, len(g.NonEdges))
	for _, pair := range g.NonEdges {
		u, v := pair[0], pair[1]
		if u == v {
			return fmt.Errorf("%w: self-pair (%d,%d) in non-edges", ErrInvalidGraph, u, v)
		}
		if u > v {
			return fmt.Errorf("%w: non-edge (%d,%d) not ordered u < v", ErrInvalidGraph, u, v)
		}
		if _, ok := known[u]; !ok {
			return fmt.Errorf("%w: non-edge references unknown node %d", ErrInvalidGraph, u)
		}
		if _, ok := known[v]; !ok {
			return fmt.Errorf("%w: non-edge references unknown node %d", ErrInvalidGraph, v)
		}
		if _, dup := seen[pair]; dup {
			return fmt.Errorf("%w: duplicate non-edge (%d,%d)", ErrInvalidGraph, u, v)
		}
		seen[pair] = struct{}{}
	}

	return nil
}

// NonEdgesFromEdges computes the complement of an edge set over all distinct
// node pairs, producing the non-edge list the Hamiltonian encoder consumes.
// Edge orientation is ignored and edges mentioning unknown nodes are skipped.
// Returned pairs are ordered u < v.
func NonEdgesFromEdges(nodes []int, edges [][2]int) [][2]int {
	present := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		u, v := e[0], e[1]
		if u > v {
			u, v = v, u
		}
		present[[2]int{u, v}] = struct{}{}
	}

	var non [][2]int
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			u, v := nodes[i], nodes[j]
			if u > v {
				u, v = v, u
			}
			if _, ok := present[[2]int{u, v}]; !ok {
				non = append(non, [2]int{u, v})
			}
		}
	}
	return non
}

// Candidate is one measured docking configuration: the node subset selected
// by a bitstring together with its quality under the graph.
type Candidate struct {
	Bitstring   string   `json:"bitstring"`
	Nodes       []int    `json:"nodes"`
	TotalWeight float64  `json:"total_weight"`
	Violations  [][2]int `json:"violations,omitempty"`
}

// Feasible reports whether the candidate is a clique, i.e. violates no
// non-edge.
func (c Candidate) Feasible() bool { return len(c.Violations) == 0 }

// Decode interprets a measured bitstring against the graph. Character i of
// the bitstring corresponds to Nodes[i]; '1' selects the node. The returned
// candidate lists the selected nodes, their total weight, and any non-edges
// with both endpoints selected.
func (g Graph) Decode(bitstring string) (Candidate, error) {
	if len(bitstring) != len(g.Nodes) {
		return Candidate{}, fmt.Errorf("bitstring length %d does not match %d graph nodes", len(bitstring), len(g.Nodes))
	}

	cand := Candidate{Bitstring: bitstring}
	selected := make(map[int]struct{}, len(g.Nodes))
	for i := 0; i < len(bitstring); i++ {
		switch bitstring[i] {
		case '1':
			cand.Nodes = append(cand.Nodes, g.Nodes[i])
			cand.TotalWeight += g.Weights[i]
			selected[g.Nodes[i]] = struct{}{}
		case '0':
		default:
			return Candidate{}, fmt.Errorf("bitstring has non-binary character %q at position %d", bitstring[i], i)
		}
	}

	for _, pair := range g.NonEdges {
		if _, u := selected[pair[0]]; u {
			if _, v := selected[pair[1]]; v {
				cand.Violations = append(cand.Violations, pair)
			}
		}
	}
	return cand, nil
}
