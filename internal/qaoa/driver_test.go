package qaoa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/QDOCK/internal/hamiltonian"
)

func newTestDriver(t *testing.T, evaluator Evaluator, cfg DriverConfig) *Driver {
	t.Helper()
	cost, err := NewCost(twoQubitAnsatz(t, 1), evaluator)
	require.NoError(t, err)
	driver, err := NewDriver(cost, cfg)
	require.NoError(t, err)
	return driver
}

func TestNewDriverValidation(t *testing.T) {
	_, err := NewDriver(nil, DriverConfig{})
	assert.Error(t, err)
}

func TestDriverInitialParameters(t *testing.T) {
	driver := newTestDriver(t, &sumSquaresEvaluator{}, DriverConfig{Seed: 42})

	first := driver.InitialParameters()
	assert.Len(t, first, 6)

	// Successive draws advance the generator.
	second := driver.InitialParameters()
	assert.NotEqual(t, first, second)
}

func TestDriverOptimizeQuadratic(t *testing.T) {
	evaluator := &sumSquaresEvaluator{}
	driver := newTestDriver(t, evaluator, DriverConfig{Seed: 42})

	result, err := driver.Optimize(context.Background(), driver.InitialParameters())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Converged)
	assert.Less(t, result.BestCost, 1e-3)
	for i, p := range result.BestParameters {
		assert.InDelta(t, 0.0, p, 0.05, "parameter %d", i)
	}

	// Every successful evaluation lands in the history, and the reported
	// best cost is the lowest value ever seen, not merely the last.
	assert.Equal(t, evaluator.evaluations, len(result.History))
	assert.Equal(t, result.Evaluations, len(result.History))
	assert.InDelta(t, floats.Min(result.History), result.BestCost, 1e-12)

	assert.Greater(t, result.Iterations, 0)
	assert.Greater(t, result.Runtime, time.Duration(0))
}

func TestDriverSeedReproducibility(t *testing.T) {
	run := func() *Result {
		driver := newTestDriver(t, &sumSquaresEvaluator{}, DriverConfig{Seed: 42})
		result, err := driver.Optimize(context.Background(), driver.InitialParameters())
		require.NoError(t, err)
		return result
	}

	a := run()
	b := run()

	// Identical seeds walk identical trajectories, bit for bit.
	assert.Equal(t, a.BestCost, b.BestCost)
	assert.Equal(t, a.BestParameters, b.BestParameters)
	assert.Equal(t, a.History, b.History)
}

func TestDriverBudgetExhaustion(t *testing.T) {
	evaluator := &sumSquaresEvaluator{}
	driver := newTestDriver(t, evaluator, DriverConfig{Seed: 42, MaxEvaluations: 10})

	result, err := driver.Optimize(context.Background(), driver.InitialParameters())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Exhaustion is a normal outcome: the best point so far comes back,
	// flagged as not converged.
	assert.False(t, result.Converged)
	assert.LessOrEqual(t, result.Evaluations, 10)
	assert.Greater(t, result.Evaluations, 0)
	assert.Len(t, result.BestParameters, 6)
}

func TestDriverOptimizeDimensionMismatch(t *testing.T) {
	driver := newTestDriver(t, &sumSquaresEvaluator{}, DriverConfig{Seed: 42})

	result, err := driver.Optimize(context.Background(), []float64{0.1, 0.2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Nil(t, result)
}

func TestDriverEvaluatorFailureAborts(t *testing.T) {
	backendDown := errors.New("backend unreachable")
	evaluator := &failingEvaluator{allowed: 3, err: backendDown}
	driver := newTestDriver(t, evaluator, DriverConfig{Seed: 42})

	result, err := driver.Optimize(context.Background(), driver.InitialParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, backendDown)
	assert.Nil(t, result)
}

func TestDriverContextCancelledBeforeStart(t *testing.T) {
	evaluator := &sumSquaresEvaluator{}
	driver := newTestDriver(t, evaluator, DriverConfig{Seed: 42})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := driver.Optimize(ctx, driver.InitialParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Zero(t, evaluator.evaluations)
}

func TestDriverContextCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evaluator := &cancellingEvaluator{allowed: 5, cancel: cancel}
	driver := newTestDriver(t, evaluator, DriverConfig{Seed: 42})

	result, err := driver.Optimize(ctx, driver.InitialParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)

	// The evaluation that triggered cancellation completes; nothing runs
	// after it.
	assert.Equal(t, 5, evaluator.calls)
}

// BenchmarkOptimizeQuadratic measures a complete bounded driver run on the
// classical quadratic objective.
func BenchmarkOptimizeQuadratic(b *testing.B) {
	ansatz, err := NewAnsatz(2, 1,
		[]complex128{complex(2.0, 0), complex(0.5, 0)},
		[]hamiltonian.Word{"ZI", "ZZ"},
	)
	if err != nil {
		b.Fatalf("building ansatz: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cost, err := NewCost(ansatz, &sumSquaresEvaluator{})
		if err != nil {
			b.Fatalf("building cost: %v", err)
		}
		driver, err := NewDriver(cost, DriverConfig{Seed: 42, MaxEvaluations: 200})
		if err != nil {
			b.Fatalf("building driver: %v", err)
		}
		if _, err := driver.Optimize(context.Background(), driver.InitialParameters()); err != nil {
			b.Fatalf("optimize: %v", err)
		}
	}
}
