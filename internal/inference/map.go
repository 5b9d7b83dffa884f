package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// stationaryGradient is the largest finite-difference gradient, in max norm,
// at which the starting point already counts as an optimum
const stationaryGradient = 1e-10

// FindMAP returns the maximum a posteriori estimate of every variable and
// deterministic. A line search that stalls or an exhausted iteration budget
// ends the search with a warning and the best location found so far. Any
// other optimiser failure, including context cancellation, is returned.
func FindMAP(ctx context.Context, m *Model, opts Options) (*PointTrace, error) {
	opts = opts.withDefaults()
	u, stats, err := m.mode(ctx, opts, false)
	if err != nil {
		return nil, err
	}
	p, err := m.point(u)
	if err != nil {
		return nil, err
	}
	return newPointTrace(m, p, stats), nil
}

// mode minimises the negative log density and returns the optimum in
// unconstrained space
func (m *Model) mode(ctx context.Context, opts Options, jacobian bool) ([]float64, Stats, error) {
	if m.dim == 0 {
		return nil, Stats{}, ErrEmptyModel
	}

	objective := func(u []float64) float64 {
		lp := m.logDensity(u, jacobian)
		if math.IsNaN(lp) {
			return math.Inf(1)
		}
		return -lp
	}

	init := m.unconstrained()
	if f := objective(init); math.IsInf(f, 0) {
		return nil, Stats{}, fmt.Errorf("%w at initial point", ErrNonFinite)
	}

	grad := &fd.Settings{
		Formula:    fd.Central,
		Step:       opts.GradientStep,
		Concurrent: opts.Concurrent,
	}

	// A stationary start leaves L-BFGS without a descent direction.
	g0 := make([]float64, len(init))
	fd.Gradient(g0, objective, init, grad)
	if floats.Norm(g0, math.Inf(1)) < stationaryGradient {
		stats := Stats{
			Status:       optimize.GradientThreshold.String(),
			Evaluations:  1,
			LogPosterior: -objective(init),
		}
		opts.Logger.Debug("Initial point is stationary",
			"log_posterior", stats.LogPosterior)
		return init, stats, nil
	}

	problem := optimize.Problem{
		Func: objective,
		Grad: func(dst, u []float64) {
			fd.Gradient(dst, objective, u, grad)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Iterations: 20,
		},
	}

	res, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if res == nil {
		return nil, Stats{}, err
	}

	stats := Stats{
		Status:       res.Status.String(),
		Iterations:   res.Stats.MajorIterations,
		Evaluations:  res.Stats.FuncEvaluations,
		Runtime:      res.Stats.Runtime,
		LogPosterior: -res.F,
	}

	if err == nil {
		err = res.Status.Err()
	}
	if err != nil {
		if !softStop(res.Status, err) {
			return nil, stats, err
		}
		opts.Logger.Warn("Optimiser stopped early, using best location",
			"status", stats.Status,
			"iterations", stats.Iterations,
			"error", err)
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, stats, ErrNonFinite
	}

	opts.Logger.Debug("Optimiser finished",
		"status", stats.Status,
		"iterations", stats.Iterations,
		"evaluations", stats.Evaluations,
		"runtime", stats.Runtime,
		"log_posterior", stats.LogPosterior)

	return res.X, stats, nil
}

func softStop(status optimize.Status, err error) bool {
	if errors.Is(err, optimize.ErrNoProgress) ||
		errors.Is(err, optimize.ErrLinesearcherFailure) ||
		errors.Is(err, optimize.ErrNonDescentDirection) {
		return true
	}
	switch status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit:
		return true
	}
	return false
}
