package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

// Year is the default seasonal period
const Year = time.Duration(365.25 * 24 * float64(time.Hour))

// FourierConfig configures a FourierSeasonality
type FourierConfig struct {
	Name string
	// N is the number of harmonics; the basis has 2N columns
	N int
	// Period of the seasonality in wall-clock time, Year when zero
	Period time.Duration
	// Scale is the prior standard deviation of beta, 1 when zero
	Scale float64
	Pool  Pooling
}

// FourierSeasonality is a periodic basis of N cosine and N sine harmonics
// weighted by beta
type FourierSeasonality struct {
	cfg    FourierConfig
	period float64
	groups *groups
}

// NewFourierSeasonality creates a Fourier seasonality
func NewFourierSeasonality(cfg FourierConfig) *FourierSeasonality {
	if cfg.Period <= 0 {
		cfg.Period = Year
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("FourierSeasonality(n=%d, period=%s)", cfg.N, formatDays(cfg.Period))
	}
	return &FourierSeasonality{cfg: cfg}
}

func (c *FourierSeasonality) Name() string { return c.cfg.Name }

func (c *FourierSeasonality) String() string {
	return fmt.Sprintf("FourierSeasonality(n=%d, period=%s, scale=%g)", c.cfg.N, formatDays(c.cfg.Period), c.cfg.Scale)
}

func (c *FourierSeasonality) leaves() []Component { return []Component{c} }

func (c *FourierSeasonality) param(p string) string { return paramName(c.cfg.Name, p) }

func (c *FourierSeasonality) define(m *inference.Model, d *design) (inference.Expr, error) {
	if c.cfg.N <= 0 {
		return nil, fmt.Errorf("%w: fourier seasonality needs at least one harmonic", ErrValidation)
	}
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.groups = g
	c.period = c.cfg.Period.Seconds() / d.timeScale

	if err := declarePooled(m, c.cfg.Name, "beta", c.cfg.Pool, normalPrior, c.cfg.Scale, g.size(), 2*c.cfg.N); err != nil {
		return nil, err
	}

	basis := c.basis(d.t)
	return func(p inference.Point) []float64 {
		return weigh(basis, p[c.param("beta")], rows)
	}, nil
}

func (c *FourierSeasonality) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
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

// basis returns the n x 2N design [cos(2 pi k t / p) ..., sin(2 pi k t / p) ...]
func (c *FourierSeasonality) basis(t []float64) *mat.Dense {
	n := c.cfg.N
	out := mat.NewDense(len(t), 2*n, nil)
	for i, ti := range t {
		for k := 0; k < n; k++ {
			x := 2 * math.Pi * float64(k+1) * ti / c.period
			out.Set(i, k, math.Cos(x))
			out.Set(i, n+k, math.Sin(x))
		}
	}
	return out
}

// weigh returns row i of the basis dotted with the coefficients of row i's
// group; coef is laid out groups x columns
func weigh(basis *mat.Dense, coef []float64, rows []int) []float64 {
	n, cols := basis.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := basis.RawRowView(i)
		w := coef[rows[i]*cols : (rows[i]+1)*cols]
		sum := 0.0
		for j, x := range row {
			sum += x * w[j]
		}
		out[i] = sum
	}
	return out
}

func formatDays(d time.Duration) string {
	return fmt.Sprintf("%gd", d.Hours()/24)
}
