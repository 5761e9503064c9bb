package hamiltonian

import (
	"fmt"

	"github.com/copyleftdev/QDOCK/internal/docking"
)

// EncodeMaxClique builds the weighted maximum-clique cost Hamiltonian for a
// docking graph:
//
//	H = 1/2 Σ_i w_i (Z_i − I) + P/4 Σ_{(u,v)} (Z_u Z_v − Z_u − Z_v + I)
//
// where the second sum runs over the graph's non-edges and P is the penalty
// scalar. Minimizing H over computational-basis states selects the
// maximum-weight clique: each selected node lowers the energy by its weight
// while any selected incompatible pair costs P. Contributions to the same
// Pauli word accumulate into a single coefficient; coefficients are complex
// with zero imaginary part, matching the evaluator boundary.
//
// The graph is validated on entry and the penalty must be positive.
func EncodeMaxClique(g docking.Graph, penalty float64) (*Hamiltonian, error) {
	if penalty <= 0 {
		return nil, fmt.Errorf("max-clique encoding: penalty must be positive, got %g", penalty)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("max-clique encoding: %w", err)
	}

	n := g.NumNodes()
	pos := make(map[int]int, n)
	for i, id := range g.Nodes {
		pos[id] = i
	}

	h := New(n)
	for i, w := range g.Weights {
		h.Add(SingleZ(n, i), complex(0.5*w, 0))
		h.Add(Identity(n), complex(-0.5*w, 0))
	}
	p4 := penalty / 4
	for _, pair := range g.NonEdges {
		u, v := pos[pair[0]], pos[pair[1]]
		h.Add(DoubleZ(n, u, v), complex(p4, 0))
		h.Add(SingleZ(n, u), complex(-p4, 0))
		h.Add(SingleZ(n, v), complex(-p4, 0))
		h.Add(Identity(n), complex(p4, 0))
	}
	return h, nil
}
