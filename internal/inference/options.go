package inference

import (
	"github.com/soltixdb/decompose/internal/logging"
)

// Options configures FindMAP and Sample
type Options struct {
	// MaxIterations bounds the L-BFGS major iterations
	MaxIterations int
	// Tolerance is the absolute objective improvement below which the
	// optimiser counts an iteration as stalled
	Tolerance float64
	// GradientStep is the finite-difference step; zero uses the formula default
	GradientStep float64
	// Draws is the number of posterior draws kept by Sample
	Draws int
	// Warmup is the number of draws Sample discards while it rescales the
	// chain; zero uses half of Draws with a floor of 100
	Warmup int
	// StepSize is the leapfrog step of the sampler in rescaled coordinates
	StepSize float64
	// Seed places the start of the chain around the mode. The sampler's own
	// moves use the process-wide random source.
	Seed uint64
	// Concurrent evaluates finite differences on all CPUs
	Concurrent bool
	Logger     *logging.Logger
}

// DefaultOptions returns the options used when a field is left zero
func DefaultOptions() Options {
	return Options{
		MaxIterations: 1000,
		Tolerance:     1e-10,
		Draws:         500,
		StepSize:      0.2,
		Seed:          1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	if o.GradientStep < 0 {
		o.GradientStep = 0
	}
	if o.Draws <= 0 {
		o.Draws = def.Draws
	}
	if o.Warmup <= 0 {
		o.Warmup = max(o.Draws/2, 100)
	}
	if o.StepSize <= 0 {
		o.StepSize = def.StepSize
	}
	if o.Logger == nil {
		o.Logger = logging.Global()
	}
	return o
}
