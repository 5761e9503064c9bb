// Package qaoa drives digitized-counterdiabatic QAOA optimization of docking
// Hamiltonians: the ansatz parameter layout, the cost function closed over a
// flattened Hamiltonian, and a derivative-free minimization driver. The
// quantum expectation itself is computed by an external Evaluator; nothing
// in this package simulates state evolution.
package qaoa

import (
	"context"
	"errors"
	"time"
)

// ErrDimensionMismatch tags parameter vectors whose length disagrees with
// the ansatz layout. Evaluation fails fast on it; parameters are never
// padded or truncated.
var ErrDimensionMismatch = errors.New("parameter dimension mismatch")

// Evaluator computes the expectation value of the flattened Hamiltonian
// under the ansatz state at the given parameters. Implementations live at
// the backend boundary; they must treat the ansatz and parameters as
// read-only.
type Evaluator interface {
	Observe(ctx context.Context, ansatz *Ansatz, params []float64) (float64, error)
}

// Result is the outcome of one optimization run. BestCost and
// BestParameters are the lowest expectation found and its parameters,
// returned even when the run stopped on a budget rather than convergence.
type Result struct {
	BestCost       float64
	BestParameters []float64
	History        []float64
	Iterations     int
	Evaluations    int
	Runtime        time.Duration
	Converged      bool
}
