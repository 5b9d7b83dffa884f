package timeseries

import (
	"fmt"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

// ConstantConfig configures a Constant
type ConstantConfig struct {
	Name string
	// Scale is the prior standard deviation of c, 1 when zero
	Scale float64
	Pool  Pooling
}

// Constant is a per-group intercept
type Constant struct {
	cfg    ConstantConfig
	groups *groups
}

// NewConstant creates an intercept component
func NewConstant(cfg ConstantConfig) *Constant {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Name == "" {
		cfg.Name = "Constant"
	}
	return &Constant{cfg: cfg}
}

func (c *Constant) Name() string { return c.cfg.Name }

func (c *Constant) String() string {
	return fmt.Sprintf("Constant(scale=%g, pool_type=%s)", c.cfg.Scale, c.cfg.Pool.kind())
}

func (c *Constant) leaves() []Component { return []Component{c} }

func (c *Constant) define(m *inference.Model, d *design) (inference.Expr, error) {
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.groups = g
	if err := declarePooled(m, c.cfg.Name, "c", c.cfg.Pool, normalPrior, c.cfg.Scale, g.size()); err != nil {
		return nil, err
	}
	name := paramName(c.cfg.Name, "c")
	return func(p inference.Point) []float64 {
		return intercepts(p[name], rows)
	}, nil
}

func (c *Constant) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if c.groups == nil {
		return nil, ErrNotFitted
	}
	rows, err := c.groups.assign(d)
	if err != nil {
		return nil, err
	}
	name := paramName(c.cfg.Name, "c")
	return evalDraws(tr, d.n, []string{name}, func(p inference.Point) []float64 {
		return intercepts(p[name], rows)
	})
}

func intercepts(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, g := range rows {
		out[i] = values[g]
	}
	return out
}
