package qaoa

import (
	"context"
	"math"
	"testing"

	"github.com/copyleftdev/QDOCK/internal/hamiltonian"
)

// sumSquaresEvaluator stands in for a quantum backend with a classical
// objective: the sum of squared parameters. Its minimum at the origin is
// known, which makes convergence checkable without any simulator.
type sumSquaresEvaluator struct {
	evaluations int
}

func (e *sumSquaresEvaluator) Observe(_ context.Context, _ *Ansatz, params []float64) (float64, error) {
	e.evaluations++
	sum := 0.0
	for _, v := range params {
		sum += v * v
	}
	return sum, nil
}

// failingEvaluator succeeds allowed times, then returns err on every call.
type failingEvaluator struct {
	allowed int
	calls   int
	err     error
}

func (e *failingEvaluator) Observe(_ context.Context, _ *Ansatz, params []float64) (float64, error) {
	e.calls++
	if e.calls > e.allowed {
		return 0, e.err
	}
	sum := 0.0
	for _, v := range params {
		sum += v * v
	}
	return sum, nil
}

// cancellingEvaluator cancels the run's context after allowed calls, the
// way an HTTP client would observe a shutdown mid-optimization.
type cancellingEvaluator struct {
	allowed int
	calls   int
	cancel  context.CancelFunc
}

func (e *cancellingEvaluator) Observe(_ context.Context, _ *Ansatz, params []float64) (float64, error) {
	e.calls++
	if e.calls == e.allowed {
		e.cancel()
	}
	sum := 0.0
	for _, v := range params {
		sum += v * v
	}
	return sum, nil
}

// twoQubitAnsatz is the smallest layout used across the package tests:
// two qubits, one ZI and one ZZ term.
func twoQubitAnsatz(t *testing.T, numLayers int) *Ansatz {
	t.Helper()
	ansatz, err := NewAnsatz(2, numLayers,
		[]complex128{complex(2.0, 0), complex(0.5, 0)},
		[]hamiltonian.Word{"ZI", "ZZ"},
	)
	if err != nil {
		t.Fatalf("building test ansatz: %v", err)
	}
	return ansatz
}

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}
