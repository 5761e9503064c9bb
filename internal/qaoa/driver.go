package qaoa

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/QDOCK/internal/errors"
)

// DriverConfig controls one Nelder-Mead search. Zero budgets mean
// "unbounded": the run then stops on function convergence alone.
type DriverConfig struct {
	// MaxIterations caps optimizer major iterations.
	MaxIterations int
	// MaxEvaluations caps cost-function calls.
	MaxEvaluations int
	// MaxRuntime bounds the wall-clock time of the search.
	MaxRuntime time.Duration
	// Tolerance is the absolute and relative function-convergence
	// threshold. Defaults to 1e-6.
	Tolerance float64
	// Seed fixes the initial-parameter generator for reproducible runs.
	// Zero seeds from the clock.
	Seed int64
	// InitialSpread is the standard deviation of the normal draw behind
	// InitialParameters. Defaults to 1.
	InitialSpread float64
	// Logger receives per-run debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Driver minimizes a docking cost function with gonum's Nelder-Mead
// simplex. Evaluations are issued serially; the evaluator is never called
// concurrently.
type Driver struct {
	cfg    DriverConfig
	cost   *Cost
	rng    *rand.Rand
	logger *zap.Logger
}

// NewDriver builds a driver around a cost function, normalizing config
// defaults and seeding the parameter generator.
func NewDriver(cost *Cost, cfg DriverConfig) (*Driver, error) {
	if cost == nil {
		return nil, errors.New("driver needs a cost function").WithComponent("qaoa")
	}

	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-6
	}
	if cfg.InitialSpread <= 0 {
		cfg.InitialSpread = 1.0
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		cfg:    cfg,
		cost:   cost,
		rng:    rng,
		logger: logger.Named("docking_driver"),
	}, nil
}

// InitialParameters draws a fresh starting vector of ansatz length from
// N(0, spread²) using the driver's seeded generator. Successive calls
// advance the generator.
func (d *Driver) InitialParameters() []float64 {
	params := make([]float64, d.cost.Ansatz().ParameterCount())
	for i := range params {
		params[i] = d.rng.NormFloat64() * d.cfg.InitialSpread
	}
	return params
}

// Optimize minimizes the cost function from the given starting parameters.
// Budget exhaustion is not an error: the best cost and parameters found are
// returned with Converged false. Evaluator failures abort the run with the
// underlying error; context cancellation aborts between evaluations.
func (d *Driver) Optimize(ctx context.Context, initial []float64) (*Result, error) {
	const op = "Driver.Optimize"

	if want := d.cost.Ansatz().ParameterCount(); len(initial) != want {
		return nil, errors.Wrapf(ErrDimensionMismatch, "initial vector has %d parameters, ansatz consumes %d", len(initial), want).
			WithOperation(op).WithComponent("qaoa")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.logger.Debug("Starting docking optimization",
		zap.Int("dimension", len(initial)),
		zap.Int("max_iterations", d.cfg.MaxIterations),
		zap.Int("max_evaluations", d.cfg.MaxEvaluations),
		zap.Duration("max_runtime", d.cfg.MaxRuntime),
		zap.Int64("seed", d.cfg.Seed),
	)

	// gonum's objective cannot return an error, so the first evaluator
	// failure is latched and every later call short-circuits to +Inf until
	// the method winds down.
	var evalErr error
	cancelled := false
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil || cancelled {
				return math.Inf(1)
			}
			select {
			case <-ctx.Done():
				cancelled = true
				return math.Inf(1)
			default:
			}
			value, err := d.cost.Evaluate(ctx, x)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return value
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   d.cfg.Tolerance,
			Relative:   d.cfg.Tolerance,
			Iterations: 100,
		},
		MajorIterations: d.cfg.MaxIterations,
		FuncEvaluations: d.cfg.MaxEvaluations,
		Runtime:         d.cfg.MaxRuntime,
	}
	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: 0.2,
	}

	start := append([]float64(nil), initial...)
	res, err := optimize.Minimize(problem, start, settings, method)

	if cancelled {
		return nil, ctx.Err()
	}
	if evalErr != nil {
		return nil, errors.Wrap(evalErr, "cost evaluation failed").
			WithOperation(op).WithComponent("qaoa")
	}
	if err != nil {
		return nil, errors.Wrap(err, "nelder-mead failed").
			WithOperation(op).WithComponent("qaoa")
	}

	converged := false
	switch res.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge:
		converged = true
	}

	d.logger.Debug("Optimization finished",
		zap.Float64("best_cost", res.F),
		zap.String("status", res.Status.String()),
		zap.Int("iterations", res.Stats.MajorIterations),
		zap.Int("evaluations", res.Stats.FuncEvaluations),
		zap.Duration("runtime", res.Stats.Runtime),
	)

	return &Result{
		BestCost:       res.F,
		BestParameters: append([]float64(nil), res.X...),
		History:        d.cost.History(),
		Iterations:     res.Stats.MajorIterations,
		Evaluations:    res.Stats.FuncEvaluations,
		Runtime:        res.Stats.Runtime,
		Converged:      converged,
	}, nil
}
