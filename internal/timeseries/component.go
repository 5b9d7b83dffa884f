package timeseries

import (
	"fmt"

	"github.com/soltixdb/decompose/internal/inference"
	"gonum.org/v1/gonum/mat"
)

// Component is a node of a model tree. Leaves are structural components
// (trend, growth, seasonality, regressors, constants); inner nodes are the
// Additive and Multiplicative composites. The set of variants is closed.
type Component interface {
	// Name namespaces the parameters of a leaf as "{name}-{param}"
	Name() string
	String() string

	// define registers the priors of the node on m and returns its mean as
	// an expression of the free variables. It runs once per fit.
	define(m *inference.Model, d *design) (inference.Expr, error)
	// predict evaluates the mean for every row of d and every draw of tr,
	// returning an n x draws matrix
	predict(tr inference.Trace, d *design) (*mat.Dense, error)
	// leaves lists the structural components below the node, left to right
	leaves() []Component
}

// Additive is left + right
type Additive struct {
	Left  Component
	Right Component
}

// Multiplicative is left * (1 + right): the right operand acts as a
// fractional modifier of the left baseline
type Multiplicative struct {
	Left  Component
	Right Component
}

// Add composes two components additively
func Add(left, right Component) *Additive {
	return &Additive{Left: left, Right: right}
}

// Mul composes two components multiplicatively
func Mul(left, right Component) *Multiplicative {
	return &Multiplicative{Left: left, Right: right}
}

// Sum folds components left to right with Add. It returns nil for no
// components and the component itself for one.
func Sum(components ...Component) Component {
	if len(components) == 0 {
		return nil
	}
	out := components[0]
	for _, c := range components[1:] {
		out = Add(out, c)
	}
	return out
}

func (a *Additive) Name() string { return a.String() }

func (a *Additive) String() string {
	return fmt.Sprintf("Additive(left=%s, right=%s)", a.Left, a.Right)
}

func (a *Additive) leaves() []Component {
	return childLeaves(a.Left, a.Right)
}

func (a *Additive) define(m *inference.Model, d *design) (inference.Expr, error) {
	left, right, err := defineChildren(m, d, a.Left, a.Right)
	if err != nil {
		return nil, err
	}
	return func(p inference.Point) []float64 {
		l, r := left(p), right(p)
		out := make([]float64, len(l))
		for i := range out {
			out[i] = l[i] + r[i]
		}
		return out
	}, nil
}

func (a *Additive) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	l, r, err := predictChildren(tr, d, a.Left, a.Right)
	if err != nil {
		return nil, err
	}
	return combine(l, r, func(x, y float64) float64 { return x + y })
}

func (c *Multiplicative) Name() string { return c.String() }

func (c *Multiplicative) String() string {
	return fmt.Sprintf("Multiplicative(left=%s, right=%s)", c.Left, c.Right)
}

func (c *Multiplicative) leaves() []Component {
	return childLeaves(c.Left, c.Right)
}

func (c *Multiplicative) define(m *inference.Model, d *design) (inference.Expr, error) {
	left, right, err := defineChildren(m, d, c.Left, c.Right)
	if err != nil {
		return nil, err
	}
	return func(p inference.Point) []float64 {
		l, r := left(p), right(p)
		out := make([]float64, len(l))
		for i := range out {
			out[i] = l[i] * (1 + r[i])
		}
		return out
	}, nil
}

func (c *Multiplicative) predict(tr inference.Trace, d *design) (*mat.Dense, error) {
	l, r, err := predictChildren(tr, d, c.Left, c.Right)
	if err != nil {
		return nil, err
	}
	return combine(l, r, func(x, y float64) float64 { return x * (1 + y) })
}

func childLeaves(children ...Component) []Component {
	var out []Component
	for _, c := range children {
		if c != nil {
			out = append(out, c.leaves()...)
		}
	}
	return out
}

func defineChildren(m *inference.Model, d *design, left, right Component) (inference.Expr, inference.Expr, error) {
	if left == nil || right == nil {
		return nil, nil, fmt.Errorf("%w: composite with a nil child", ErrValidation)
	}
	l, err := left.define(m, d)
	if err != nil {
		return nil, nil, err
	}
	r, err := right.define(m, d)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func predictChildren(tr inference.Trace, d *design, left, right Component) (*mat.Dense, *mat.Dense, error) {
	l, err := left.predict(tr, d)
	if err != nil {
		return nil, nil, err
	}
	r, err := right.predict(tr, d)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// combine applies op elementwise. Row counts must agree; a single draw
// column broadcasts against any number of draws.
func combine(l, r *mat.Dense, op func(x, y float64) float64) (*mat.Dense, error) {
	lr, lc := l.Dims()
	rr, rc := r.Dims()
	if lr != rr {
		return nil, fmt.Errorf("%w: %d rows vs %d rows", ErrShapeMismatch, lr, rr)
	}
	cols := lc
	if lc != rc {
		switch {
		case lc == 1:
			cols = rc
		case rc != 1:
			return nil, fmt.Errorf("%w: %d draws vs %d draws", ErrShapeMismatch, lc, rc)
		}
	}

	out := mat.NewDense(lr, cols, nil)
	for i := 0; i < lr; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, op(l.At(i, min(j, lc-1)), r.At(i, min(j, rc-1))))
		}
	}
	return out, nil
}

// evalDraws evaluates mean once per draw of tr, reading only the named
// entries, and stacks the results as columns of an n x draws matrix
func evalDraws(tr inference.Trace, n int, names []string, mean func(p inference.Point) []float64) (*mat.Dense, error) {
	draws := make(map[string]*mat.Dense, len(names))
	for _, name := range names {
		d, err := tr.Draws(name)
		if err != nil {
			return nil, err
		}
		draws[name] = d
	}

	out := mat.NewDense(n, tr.NumDraws(), nil)
	p := make(inference.Point, len(names))
	for j := 0; j < tr.NumDraws(); j++ {
		for name, d := range draws {
			p[name] = d.RawRowView(j)
		}
		out.SetCol(j, mean(p))
	}
	return out, nil
}
