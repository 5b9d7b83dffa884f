package timeseries

import (
	"fmt"
	"math"

	"github.com/soltixdb/decompose/internal/inference"
	"github.com/soltixdb/decompose/internal/scaler"
	"gonum.org/v1/gonum/mat"
)

// LogisticGrowth is a saturating trend bounded by a capacity. It shares the
// changepoint mechanics of LinearTrend but passes the piecewise growth
// through a logistic link. Use a Max or Identity target scaler so that the
// output stays within [0, capacity] in the original units.
type LogisticGrowth struct {
	cfg       TrendConfig
	capacity  float64
	capScaled float64
	s         []float64
	groups    *groups
}

// NewLogisticGrowth creates a logistic trend with the given capacity in
// target units
func NewLogisticGrowth(capacity float64, cfg TrendConfig) *LogisticGrowth {
	return &LogisticGrowth{
		cfg:      cfg.withDefaults("LogisticGrowth"),
		capacity: capacity,
	}
}

func (c *LogisticGrowth) Name() string { return c.cfg.Name }

func (c *LogisticGrowth) String() string {
	return fmt.Sprintf("LogisticGrowth(capacity=%g, n_changepoints=%d, changepoints_prior_scale=%g, growth_prior_scale=%g)",
		c.capacity, c.cfg.NChangepoints, c.cfg.ChangepointsPriorScale, c.cfg.GrowthPriorScale)
}

func (c *LogisticGrowth) leaves() []Component { return []Component{c} }

// Capacity returns the capacity in target units
func (c *LogisticGrowth) Capacity() float64 { return c.capacity }

func (c *LogisticGrowth) param(p string) string { return paramName(c.cfg.Name, p) }

func (c *LogisticGrowth) define(m *inference.Model, d *design) (inference.Expr, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}
	if !(c.capacity > 0) || math.IsInf(c.capacity, 0) {
		return nil, fmt.Errorf("%w: capacity must be positive and finite, got %g", ErrValidation, c.capacity)
	}
	capScaled, err := d.target.Transform(scaler.Scalar(c.capacity))
	if err != nil {
		return nil, fmt.Errorf("scale capacity: %w", err)
	}
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.capScaled = capScaled.At(0, 0)
	c.groups = g
	c.s = changepoints(c.cfg.NChangepoints, d.maxT())

	if err := declareTrendPriors(m, c.cfg, g.size()); err != nil {
		return nil, err
	}
	// a zero rate leaves the logistic flat and the gamma recursion undefined
	if err := initPooled(m, c.cfg.Name, "k", c.cfg.Pool, 1); err != nil {
		return nil, err
	}

	t := d.t
	nGroups := g.size()
	return func(p inference.Point) []float64 {
		return c.mean(p, t, rows, nGroups)
	}, nil
}

func (c *LogisticGrowth) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if c.groups == nil {
		return nil, ErrNotFitted
	}
	rows, err := c.groups.assign(d)
	if err != nil {
		return nil, err
	}
	t := d.t
	nGroups := c.groups.size()
	return evalDraws(tr, d.n, trendParams(c.cfg), func(p inference.Point) []float64 {
		return c.mean(p, t, rows, nGroups)
	})
}

// gammas computes the offset adjustments that keep the logistic curve
// continuous at every changepoint. gamma_j depends on every earlier gamma,
// so the scan is sequential:
//
//	gamma_j = (s_j - m - sum_{i<j} gamma_i) * (1 - rate_{j-1} / rate_j)
//
// where rate_j = k + sum_{i<=j} delta_i. A zero rate yields gamma_j = 0.
func (c *LogisticGrowth) gammas(k, m, delta []float64, nGroups int) []float64 {
	n := len(c.s)
	out := make([]float64, nGroups*n)
	for g := 0; g < nGroups; g++ {
		rate := k[g]
		sum := 0.0
		for j, s := range c.s {
			prev := rate
			rate += delta[g*n+j]
			gamma := 0.0
			if rate != 0 {
				gamma = (s - m[g] - sum) * (1 - prev/rate)
			}
			out[g*n+j] = gamma
			sum += gamma
		}
	}
	return out
}

func (c *LogisticGrowth) mean(p inference.Point, t []float64, rows []int, nGroups int) []float64 {
	k, m, delta := p[c.param("k")], p[c.param("m")], p[c.param("delta")]
	gamma := c.gammas(k, m, delta, nGroups)
	n := len(c.s)

	out := make([]float64, len(t))
	for i, ti := range t {
		g := rows[i]
		rate, offset := k[g], m[g]
		for j, s := range c.s {
			if ti > s {
				rate += delta[g*n+j]
				offset += gamma[g*n+j]
			}
		}
		out[i] = c.capScaled / (1 + math.Exp(-rate*(ti-offset)))
	}
	return out
}
