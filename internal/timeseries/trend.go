package timeseries

import (
	"fmt"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultChangepointsPriorScale = 0.05
	defaultGrowthPriorScale       = 1.0
	offsetPriorSigma              = 5.0
)

// TrendConfig holds the hyperparameters shared by LinearTrend and
// LogisticGrowth. Zero scales fall back to the defaults.
type TrendConfig struct {
	Name                   string
	NChangepoints          int
	ChangepointsPriorScale float64
	GrowthPriorScale       float64
	Pool                   Pooling
}

func (c TrendConfig) withDefaults(kind string) TrendConfig {
	if c.ChangepointsPriorScale <= 0 {
		c.ChangepointsPriorScale = defaultChangepointsPriorScale
	}
	if c.GrowthPriorScale <= 0 {
		c.GrowthPriorScale = defaultGrowthPriorScale
	}
	if c.Name == "" {
		c.Name = fmt.Sprintf("%s(n_changepoints=%d)", kind, c.NChangepoints)
	}
	return c
}

func (c TrendConfig) validate() error {
	if c.NChangepoints < 0 {
		return fmt.Errorf("%w: negative changepoint count %d", ErrValidation, c.NChangepoints)
	}
	return c.Pool.validate()
}

// changepoints returns n locations evenly spaced on [0, maxT], endpoints excluded
func changepoints(n int, maxT float64) []float64 {
	s := make([]float64, n)
	for j := range s {
		s[j] = maxT * float64(j+1) / float64(n+1)
	}
	return s
}

// LinearTrend is a piecewise-linear trend. The growth rate k changes by
// delta_j after changepoint s_j; the offset is adjusted by -s_j*delta_j so
// the trend stays continuous.
type LinearTrend struct {
	cfg    TrendConfig
	s      []float64
	groups *groups
}

// NewLinearTrend creates a piecewise-linear trend
func NewLinearTrend(cfg TrendConfig) *LinearTrend {
	return &LinearTrend{cfg: cfg.withDefaults("LinearTrend")}
}

func (c *LinearTrend) Name() string { return c.cfg.Name }

func (c *LinearTrend) String() string {
	return fmt.Sprintf("LinearTrend(n_changepoints=%d, changepoints_prior_scale=%g, growth_prior_scale=%g)",
		c.cfg.NChangepoints, c.cfg.ChangepointsPriorScale, c.cfg.GrowthPriorScale)
}

func (c *LinearTrend) leaves() []Component { return []Component{c} }

// Changepoints returns the changepoint locations fixed at fit time, in
// scaled time
func (c *LinearTrend) Changepoints() []float64 {
	return append([]float64(nil), c.s...)
}

// Groups returns the pool group names fixed at fit time
func (c *LinearTrend) Groups() []string {
	if c.groups == nil {
		return nil
	}
	return append([]string(nil), c.groups.names...)
}

func (c *LinearTrend) param(p string) string { return paramName(c.cfg.Name, p) }

func (c *LinearTrend) define(m *inference.Model, d *design) (inference.Expr, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.groups = g
	c.s = changepoints(c.cfg.NChangepoints, d.maxT())

	nGroups := g.size()
	if err := declareTrendPriors(m, c.cfg, nGroups); err != nil {
		return nil, err
	}

	t := d.t
	return func(p inference.Point) []float64 {
		return c.mean(p, t, rows)
	}, nil
}

func (c *LinearTrend) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if c.groups == nil {
		return nil, ErrNotFitted
	}
	rows, err := c.groups.assign(d)
	if err != nil {
		return nil, err
	}
	t := d.t
	return evalDraws(tr, d.n, trendParams(c.cfg), func(p inference.Point) []float64 {
		return c.mean(p, t, rows)
	})
}

// mean evaluates (k + sum_j a_j delta_j) t + (m - sum_j a_j s_j delta_j)
// with a_j = 1 once t passes s_j
func (c *LinearTrend) mean(p inference.Point, t []float64, rows []int) []float64 {
	k, m, delta := p[c.param("k")], p[c.param("m")], p[c.param("delta")]
	n := len(c.s)
	out := make([]float64, len(t))
	for i, ti := range t {
		g := rows[i]
		rate, offset := k[g], m[g]
		for j, s := range c.s {
			if ti > s {
				dj := delta[g*n+j]
				rate += dj
				offset -= s * dj
			}
		}
		out[i] = rate*ti + offset
	}
	return out
}

// declareTrendPriors registers k, m and delta for linear and logistic trends
func declareTrendPriors(m *inference.Model, cfg TrendConfig, nGroups int) error {
	if err := declarePooled(m, cfg.Name, "k", cfg.Pool, normalPrior, cfg.GrowthPriorScale, nGroups); err != nil {
		return err
	}
	if cfg.NChangepoints > 0 {
		if err := declarePooled(m, cfg.Name, "delta", cfg.Pool, laplacePrior, cfg.ChangepointsPriorScale, nGroups, cfg.NChangepoints); err != nil {
			return err
		}
	}
	return m.Add(paramName(cfg.Name, "m"), inference.Normal{Mu: 0, Sigma: offsetPriorSigma}, nGroups)
}

// trendParams lists the trace entries a trend reads; delta exists only
// when there are changepoints
func trendParams(cfg TrendConfig) []string {
	names := []string{paramName(cfg.Name, "k"), paramName(cfg.Name, "m")}
	if cfg.NChangepoints > 0 {
		names = append(names, paramName(cfg.Name, "delta"))
	}
	return names
}
