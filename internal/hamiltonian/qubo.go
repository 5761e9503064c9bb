package hamiltonian

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/QDOCK/internal/docking"
)

// QUBO is a quadratic unconstrained binary objective E(x) = xᵀQx over binary
// variables x_i ∈ {0, 1}, stored as a symmetric matrix. Because Q is
// symmetric, an off-diagonal entry Q_ij contributes 2·Q_ij·x_i·x_j to the
// objective.
type QUBO struct {
	q *mat.SymDense
}

// NewQUBO returns a zero QUBO over n binary variables.
func NewQUBO(n int) *QUBO {
	return &QUBO{q: mat.NewSymDense(n, nil)}
}

// Size returns the number of binary variables.
func (q *QUBO) Size() int { return q.q.SymmetricDim() }

// SetLinear sets the diagonal entry Q_ii, the coefficient of x_i.
func (q *QUBO) SetLinear(i int, v float64) { q.q.SetSym(i, i, v) }

// SetQuadratic sets the symmetric off-diagonal entry Q_ij. The pair x_i·x_j
// then carries the combined coefficient 2·Q_ij.
func (q *QUBO) SetQuadratic(i, j int, v float64) { q.q.SetSym(i, j, v) }

// At returns Q_ij.
func (q *QUBO) At(i, j int) float64 { return q.q.At(i, j) }

// Matrix exposes the underlying symmetric matrix.
func (q *QUBO) Matrix() *mat.SymDense { return q.q }

// ToIsing rewrites the binary objective as a diagonal Pauli sum under the
// substitution x_i = (I − Z_i)/2, so a measured '1' (Z eigenvalue −1) means
// the variable is set. Zero matrix entries produce no terms. Diagonal
// entries are converted first, then off-diagonal pairs in row-major upper
// triangle order, fixing the construction order of the result.
func (q *QUBO) ToIsing() *Hamiltonian {
	n := q.Size()
	h := New(n)

	for i := 0; i < n; i++ {
		v := q.q.At(i, i)
		if v == 0 {
			continue
		}
		// v·x_i = v/2·I − v/2·Z_i
		h.Add(SingleZ(n, i), complex(-0.5*v, 0))
		h.Add(Identity(n), complex(0.5*v, 0))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := q.q.At(i, j)
			if v == 0 {
				continue
			}
			// 2v·x_i·x_j = v/2·(I − Z_i − Z_j + Z_i·Z_j)
			h.Add(DoubleZ(n, i, j), complex(0.5*v, 0))
			h.Add(SingleZ(n, i), complex(-0.5*v, 0))
			h.Add(SingleZ(n, j), complex(-0.5*v, 0))
			h.Add(Identity(n), complex(0.5*v, 0))
		}
	}
	return h
}

// MaxCliqueQUBO expresses the weighted maximum-clique objective of a docking
// graph as a QUBO: minimize −Σ w_i·x_i + P·Σ x_u·x_v over non-edges (u, v).
// Its ToIsing image carries the same coefficients as EncodeMaxClique on the
// same instance.
func MaxCliqueQUBO(g docking.Graph, penalty float64) (*QUBO, error) {
	if penalty <= 0 {
		return nil, fmt.Errorf("max-clique qubo: penalty must be positive, got %g", penalty)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("max-clique qubo: %w", err)
	}

	n := g.NumNodes()
	pos := make(map[int]int, n)
	for i, id := range g.Nodes {
		pos[id] = i
	}

	q := NewQUBO(n)
	for i, w := range g.Weights {
		q.SetLinear(i, -w)
	}
	for _, pair := range g.NonEdges {
		// Split the pair penalty across the two symmetric entries.
		q.SetQuadratic(pos[pair[0]], pos[pair[1]], penalty/2)
	}
	return q, nil
}
