package timeseries

import (
	"fmt"
	"strings"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

// RegressorConfig configures a Regressor
type RegressorConfig struct {
	Name string
	// On lists the numeric feature columns, used unscaled
	On []string
	// Scale is the prior standard deviation of k, 1 when zero
	Scale float64
	Pool  Pooling
}

// Regressor is a linear combination of feature columns with coefficients k
type Regressor struct {
	cfg    RegressorConfig
	groups *groups
}

// NewRegressor creates a linear regressor
func NewRegressor(cfg RegressorConfig) *Regressor {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	cfg.On = append([]string(nil), cfg.On...)
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("LinearRegressor(on=[%s], scale=%g)", strings.Join(cfg.On, ","), cfg.Scale)
	}
	return &Regressor{cfg: cfg}
}

func (c *Regressor) Name() string { return c.cfg.Name }

func (c *Regressor) String() string {
	pool := c.cfg.Pool.kind()
	return fmt.Sprintf("LinearRegressor(on=[%s], pool_cols=%q, pool_type=%s)", strings.Join(c.cfg.On, ","), c.cfg.Pool.Column, pool)
}

func (c *Regressor) leaves() []Component { return []Component{c} }

// Features returns the regressed feature columns
func (c *Regressor) Features() []string {
	return append([]string(nil), c.cfg.On...)
}

func (c *Regressor) param(p string) string { return paramName(c.cfg.Name, p) }

func (c *Regressor) define(m *inference.Model, d *design) (inference.Expr, error) {
	if len(c.cfg.On) == 0 {
		return nil, fmt.Errorf("%w: regressor needs at least one feature", ErrValidation)
	}
	X, err := c.features(d)
	if err != nil {
		return nil, err
	}
	g, rows, err := fitGroups(c.cfg.Pool, d)
	if err != nil {
		return nil, err
	}
	c.groups = g

	if err := declarePooled(m, c.cfg.Name, "k", c.cfg.Pool, normalPrior, c.cfg.Scale, g.size(), len(c.cfg.On)); err != nil {
		return nil, err
	}
	return func(p inference.Point) []float64 {
		return weigh(X, p[c.param("k")], rows)
	}, nil
}

func (c *Regressor) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if c.groups == nil {
		return nil, ErrNotFitted
	}
	X, err := c.features(d)
	if err != nil {
		return nil, err
	}
	rows, err := c.groups.assign(d)
	if err != nil {
		return nil, err
	}
	return evalDraws(tr, d.n, []string{c.param("k")}, func(p inference.Point) []float64 {
		return weigh(X, p[c.param("k")], rows)
	})
}

// features gathers the regressed columns into an n x F matrix
func (c *Regressor) features(d *design) (*mat.Dense, error) {
	X := mat.NewDense(d.n, len(c.cfg.On), nil)
	for j, name := range c.cfg.On {
		col, err := d.feature(name)
		if err != nil {
			return nil, err
		}
		X.SetCol(j, col)
	}
	return X, nil
}

// Indicator is a regressor over 0/1 flag columns: each coefficient is the
// effect of its flag being set
type Indicator struct {
	reg *Regressor
}

// NewIndicator creates an indicator regressor
func NewIndicator(cfg RegressorConfig) *Indicator {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("Indicator(on=[%s], scale=%g)", strings.Join(cfg.On, ","), cfg.Scale)
	}
	return &Indicator{reg: NewRegressor(cfg)}
}

func (c *Indicator) Name() string { return c.reg.Name() }

func (c *Indicator) String() string {
	cfg := c.reg.cfg
	return fmt.Sprintf("Indicator(on=[%s], pool_cols=%q, pool_type=%s)", strings.Join(cfg.On, ","), cfg.Pool.Column, cfg.Pool.kind())
}

func (c *Indicator) leaves() []Component { return []Component{c} }

// Features returns the flag columns
func (c *Indicator) Features() []string { return c.reg.Features() }

func (c *Indicator) define(m *inference.Model, d *design) (inference.Expr, error) {
	if err := c.checkFlags(d); err != nil {
		return nil, err
	}
	return c.reg.define(m, d)
}

func (c *Indicator) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	if err := c.checkFlags(d); err != nil {
		return nil, err
	}
	return c.reg.predict(tr, d)
}

func (c *Indicator) checkFlags(d *design) error {
	for _, name := range c.reg.cfg.On {
		col, err := d.feature(name)
		if err != nil {
			return err
		}
		for i, v := range col {
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: indicator column %s has %g at row %d, want 0 or 1", ErrValidation, name, v, i)
			}
		}
	}
	return nil
}
