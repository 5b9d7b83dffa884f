package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

// RBFConfig configures an RBFSeasonality
type RBFConfig struct {
	Name string
	// Peaks are offsets within the period at which a kernel is centred
	Peaks []time.Duration
	// Period of the seasonality, Year when zero
	Period time.Duration
	// Sigma is the kernel width on the scaled time axis, 0.015 when zero
	Sigma float64
	// Scale is the prior standard deviation of beta, 1 when zero
	Scale float64
	Pool  Pooling
}

// RBFSeasonality is a periodic basis of Gaussian bumps centred on fixed
// peaks, with circular distance within the period
type RBFSeasonality struct {
	cfg    RBFConfig
	peaks  []float64
	period float64
	groups *groups
}

// PeriodicPeaks returns n peaks spaced evenly over one period, starting at 0
func PeriodicPeaks(n int, period time.Duration) ([]time.Duration, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: peak count %d is negative", ErrValidation, n)
	}
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = time.Duration(float64(period) * float64(i) / float64(n))
	}
	return out, nil
}

// NewRBFSeasonality creates an RBF seasonality
func NewRBFSeasonality(cfg RBFConfig) *RBFSeasonality {
	if cfg.Period <= 0 {
		cfg.Period = Year
	}
	if cfg.Sigma <= 0 {
		cfg.Sigma = 0.015
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("RBFSeasonality(peaks=%d, period=%s, sigma=%g)", len(cfg.Peaks), formatDays(cfg.Period), cfg.Sigma)
	}
	return &RBFSeasonality{cfg: cfg}
}

func (c *RBFSeasonality) Name() string { return c.cfg.Name }

func (c *RBFSeasonality) String() string {
	return fmt.Sprintf("RBFSeasonality(peaks=%d, period=%s, sigma=%g, scale=%g)",
		len(c.cfg.Peaks), formatDays(c.cfg.Period), c.cfg.Sigma, c.cfg.Scale)
}

func (c *RBFSeasonality) leaves() []Component { return []Component{c} }

func (c *RBFSeasonality) param(p string) string { return paramName(c.cfg.Name, p) }

func (c *RBFSeasonality) define(m *inference.Model, d *design) (inference.Expr, error) {
	if len(c.cfg.Peaks) == 0 {
		return nil, fmt.Errorf("%w: rbf seasonality needs at least one peak", ErrValidation)
	}
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.groups = g
	c.period = c.cfg.Period.Seconds() / d.timeScale
	c.peaks = make([]float64, len(c.cfg.Peaks))
	for i, p := range c.cfg.Peaks {
		c.peaks[i] = p.Seconds() / d.timeScale
	}

	if err := declarePooled(m, c.cfg.Name, "beta", c.cfg.Pool, normalPrior, c.cfg.Scale, g.size(), len(c.peaks)); err != nil {
		return nil, err
	}

	basis := c.basis(d.t)
	return func(p inference.Point) []float64 {
		return weigh(basis, p[c.param("beta")], rows)
	}, nil
}

func (c *RBFSeasonality) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if c.groups == nil {
		return nil, ErrNotFitted
	}
	rows, err := c.groups.assign(d)
	if err != nil {
		return nil, err
	}
	basis := c.basis(d.t)
	return evalDraws(tr, d.n, []string{c.param("beta")}, func(p inference.Point) []float64 {
		return weigh(basis, p[c.param("beta")], rows)
	})
}

// basis evaluates exp(-d^2 / (2 sigma^2)) where d is the distance of t to
// each peak, wrapped around the period
func (c *RBFSeasonality) basis(t []float64) *mat.Dense {
	out := mat.NewDense(len(t), len(c.peaks), nil)
	twoSigma2 := 2 * c.cfg.Sigma * c.cfg.Sigma
	for i, ti := range t {
		phase := math.Mod(ti, c.period)
		if phase < 0 {
			phase += c.period
		}
		for j, peak := range c.peaks {
			left := math.Abs(phase - peak)
			right := math.Abs(c.period - left)
			dist := math.Min(left, right)
			out.Set(i, j, math.Exp(-dist*dist/twoSigma2))
		}
	}
	return out
}
