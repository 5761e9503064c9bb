package qaoa

import (
	"context"
	"fmt"
)

// Cost adapts an expectation evaluator into a scalar objective over the flat
// ansatz parameter vector, recording every evaluation. Evaluations are
// serial: a single optimizer owns the cost function and issues one call at
// a time.
type Cost struct {
	ansatz    *Ansatz
	evaluator Evaluator
	history   []float64
}

// NewCost binds an ansatz to its evaluator.
func NewCost(ansatz *Ansatz, evaluator Evaluator) (*Cost, error) {
	if ansatz == nil {
		return nil, fmt.Errorf("cost function needs an ansatz")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("cost function needs an evaluator")
	}
	return &Cost{ansatz: ansatz, evaluator: evaluator}, nil
}

// Ansatz returns the circuit family this cost function evaluates.
func (c *Cost) Ansatz() *Ansatz { return c.ansatz }

// Evaluate computes the expectation at params and appends it to the history.
// A parameter vector of the wrong length fails before the evaluator is
// invoked. Evaluator failures propagate and leave the history untouched.
func (c *Cost) Evaluate(ctx context.Context, params []float64) (float64, error) {
	if want := c.ansatz.ParameterCount(); len(params) != want {
		return 0, fmt.Errorf("%w: got %d parameters, ansatz consumes %d",
			ErrDimensionMismatch, len(params), want)
	}

	value, err := c.evaluator.Observe(ctx, c.ansatz, params)
	if err != nil {
		return 0, fmt.Errorf("expectation evaluation: %w", err)
	}
	c.history = append(c.history, value)
	return value, nil
}

// History returns the cost trajectory, one entry per successful Evaluate
// call in invocation order. The slice is live; callers must not read it
// while an optimization run is appending.
func (c *Cost) History() []float64 { return c.history }
