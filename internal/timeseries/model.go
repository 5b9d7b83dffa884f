// Package timeseries composes structural components into a Bayesian
// decomposition model and owns its fit/predict lifecycle.
//
// A model is a tree: leaves are LinearTrend, LogisticGrowth,
// FourierSeasonality, RBFSeasonality, Regressor and Constant; inner nodes
// are built with Add, Mul and Sum. Fit scales the inputs, lets every leaf
// register its priors on one shared inference model, attaches the
// likelihood and runs inference. Predict evaluates the same mean functions
// against every draw of the resulting trace.
package timeseries

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/decompose/internal/frame"
	"github.com/soltixdb/decompose/internal/inference"
	"github.com/soltixdb/decompose/internal/likelihood"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/scaler"
	"gonum.org/v1/gonum/mat"
)

// FitConfig selects scalers, likelihood and inference method
type FitConfig struct {
	XScaler    scaler.Kind
	YScaler    scaler.Kind
	Likelihood likelihood.Likelihood
	// UseMCMC draws posterior samples instead of a single MAP estimate
	UseMCMC bool
	// Inference is passed through to the inference engine unchanged
	Inference inference.Options
}

// DefaultFitConfig scales time onto [0, 1], standardizes the target and
// finds the MAP estimate under Gaussian noise
func DefaultFitConfig() FitConfig {
	return FitConfig{
		XScaler:    scaler.KindMinMax,
		YScaler:    scaler.KindStandardize,
		Likelihood: likelihood.NewGaussian(),
		Inference:  inference.DefaultOptions(),
	}
}

// Model is the fit/predict orchestrator around a component tree. A model
// can be fitted once; create a new one to refit.
type Model struct {
	root    Component
	xScaler scaler.Scaler
	yScaler scaler.Scaler
	trace   inference.Trace
	started bool
	logger  *logging.Logger
}

// NewModel wraps a component tree
func NewModel(root Component) *Model {
	return &Model{
		root:   root,
		logger: logging.Global(),
	}
}

// SetLogger replaces the logger used by Fit and Predict
func (m *Model) SetLogger(logger *logging.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Root returns the component tree
func (m *Model) Root() Component { return m.root }

// Trace returns the inference result, nil before Fit
func (m *Model) Trace() inference.Trace { return m.trace }

// Fitted reports whether Fit completed
func (m *Model) Fitted() bool { return m.trace != nil }

// Leaves returns the structural components of the tree, left to right
func (m *Model) Leaves() []Component {
	if m.root == nil {
		return nil
	}
	return m.root.leaves()
}

// Fit scales X and y, defines the model and runs inference. X must be
// ordered by time. Inference errors are returned as they are.
func (m *Model) Fit(ctx context.Context, X *frame.Frame, y []float64, cfg FitConfig) error {
	if m.started {
		return ErrAlreadyFitted
	}
	if err := m.validateFit(X, y); err != nil {
		return err
	}
	if cfg.Likelihood == nil {
		cfg.Likelihood = likelihood.NewGaussian()
	}
	if cfg.XScaler == "" {
		cfg.XScaler = scaler.KindMinMax
	}
	if cfg.YScaler == "" {
		cfg.YScaler = scaler.KindStandardize
	}
	if cfg.Inference.Logger == nil {
		cfg.Inference.Logger = m.logger
	}

	xScaler, err := scaler.New(cfg.XScaler)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	yScaler, err := scaler.New(cfg.YScaler)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	m.started = true
	start := time.Now()

	tScaled, err := xScaler.FitTransform(scaler.Column(X.Seconds()))
	if err != nil {
		return fmt.Errorf("scale time: %w", err)
	}
	factor, err := xScaler.ScaleFactor()
	if err != nil {
		return err
	}
	yScaled, err := yScaler.FitTransform(scaler.Column(y))
	if err != nil {
		return fmt.Errorf("scale target: %w", err)
	}

	d := newDesign(X, mat.Col(nil, 0, tScaled), factor[0], yScaler)

	im := inference.NewModel()
	mu, err := m.root.define(im, d)
	if err != nil {
		return err
	}
	if err := cfg.Likelihood.Observe(im, mu, mat.Col(nil, 0, yScaled)); err != nil {
		return err
	}

	m.logger.Debug("Fitting model",
		"rows", X.Len(),
		"components", len(m.root.leaves()),
		"parameters", im.Dim(),
		"likelihood", cfg.Likelihood.Name(),
		"mcmc", cfg.UseMCMC)

	var trace inference.Trace
	if cfg.UseMCMC {
		trace, err = inference.Sample(ctx, im, cfg.Inference)
	} else {
		trace, err = inference.FindMAP(ctx, im, cfg.Inference)
	}
	if err != nil {
		return err
	}

	m.xScaler = xScaler
	m.yScaler = yScaler
	m.trace = trace

	m.logger.Debug("Model fitted",
		"trace", string(trace.Kind()),
		"draws", trace.NumDraws(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (m *Model) validateFit(X *frame.Frame, y []float64) error {
	if m.root == nil {
		return fmt.Errorf("%w: model has no components", ErrValidation)
	}
	if X == nil || X.Len() == 0 {
		return fmt.Errorf("%w: no rows", ErrValidation)
	}
	if len(y) != X.Len() {
		return fmt.Errorf("%w: %d targets for %d rows", ErrValidation, len(y), X.Len())
	}
	if !X.IsMonotonic() {
		return fmt.Errorf("%w: time column is not monotonically non-decreasing", ErrValidation)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: target at row %d is not finite", ErrValidation, i)
		}
	}

	seen := make(map[string]bool)
	for _, leaf := range m.root.leaves() {
		if seen[leaf.Name()] {
			return fmt.Errorf("%w: component name %q is used twice", inference.ErrDuplicateVariable, leaf.Name())
		}
		seen[leaf.Name()] = true
	}
	return nil
}

// design scales X with the fitted time scaler
func (m *Model) design(X *frame.Frame) (*design, error) {
	if m.trace == nil {
		return nil, ErrNotFitted
	}
	if X == nil || X.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrValidation)
	}
	t, err := m.xScaler.Transform(scaler.Column(X.Seconds()))
	if err != nil {
		return nil, err
	}
	factor, err := m.xScaler.ScaleFactor()
	if err != nil {
		return nil, err
	}
	return newDesign(X, mat.Col(nil, 0, t), factor[0], m.yScaler), nil
}

// Predict returns the mean prediction across draws for every row of X, in
// target units, plus the requested percentiles (0-100) of the draws. The
// spread reflects parameter uncertainty only; observation noise is not
// added to the draws.
func (m *Model) Predict(X *frame.Frame, percentiles ...float64) (*Prediction, error) {
	for _, p := range percentiles {
		if !(p >= 0 && p <= 100) {
			return nil, fmt.Errorf("%w: percentile %g outside [0, 100]", ErrValidation, p)
		}
	}
	d, err := m.design(X)
	if err != nil {
		return nil, err
	}

	scaled, err := m.root.predict(m.trace, d)
	if err != nil {
		return nil, err
	}
	draws, err := m.yScaler.InvTransform(scaled)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Predicted", "rows", X.Len(), "draws", m.trace.NumDraws())
	return newPrediction(X.Times(), draws, percentiles), nil
}

// PredictDraws returns the n x draws prediction matrix in target units
func (m *Model) PredictDraws(X *frame.Frame) (*mat.Dense, error) {
	d, err := m.design(X)
	if err != nil {
		return nil, err
	}
	scaled, err := m.root.predict(m.trace, d)
	if err != nil {
		return nil, err
	}
	return m.yScaler.InvTransform(scaled)
}

// Decomposition is the mean contribution of every leaf to the scaled target
type Decomposition struct {
	Time       []time.Time
	Components []string
	Values     map[string][]float64
}

// Decompose evaluates every leaf on its own and averages over draws. Values
// are in scaled target units, where the additive and multiplicative laws
// apply directly.
func (m *Model) Decompose(X *frame.Frame) (*Decomposition, error) {
	d, err := m.design(X)
	if err != nil {
		return nil, err
	}

	out := &Decomposition{
		Time:   append([]time.Time(nil), X.Times()...),
		Values: make(map[string][]float64),
	}
	for _, leaf := range m.root.leaves() {
		pred, err := leaf.predict(m.trace, d)
		if err != nil {
			return nil, err
		}
		out.Components = append(out.Components, leaf.Name())
		out.Values[leaf.Name()] = rowMeans(pred)
	}
	return out, nil
}
