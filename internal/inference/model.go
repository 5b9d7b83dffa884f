// Package inference is a small probabilistic modelling context on top of
// gonum. A Model collects named random variables with priors, deterministic
// expressions of those variables and observed log-likelihood terms. FindMAP
// returns a point estimate, Sample returns posterior draws from an infergo
// NUTS chain started at the mode. Both results satisfy the Trace interface.
package inference

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDuplicateVariable is returned when a name is registered twice
	ErrDuplicateVariable = errors.New("duplicate variable")
	// ErrUnknownVariable is returned when a name was never registered
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrInvalidShape is returned for non-positive dimensions or expressions
	// whose length disagrees with their declared shape
	ErrInvalidShape = errors.New("invalid shape")
	// ErrEmptyModel is returned when inference runs on a model without variables
	ErrEmptyModel = errors.New("model has no free variables")
	// ErrNonFinite is returned when the log posterior cannot be evaluated
	// at the starting point or the optimum
	ErrNonFinite = errors.New("log posterior is not finite")
)

// Point maps variable and deterministic names to their flattened values
// (row-major for multi-dimensional shapes)
type Point map[string][]float64

// Expr is a deterministic function of a point, typically the mean of a
// structural component evaluated at every observation
type Expr func(Point) []float64

type variable struct {
	name   string
	dist   Distribution
	shape  []int
	offset int
	size   int
	init   []float64
}

type deterministic struct {
	name  string
	shape []int
	fn    Expr
}

type observed struct {
	name   string
	logLik func(Point) float64
}

// Model is the modelling context shared by every component definition
type Model struct {
	vars  []*variable
	index map[string]*variable
	dets  []*deterministic
	obs   []*observed
	names map[string]bool
	dim   int
}

// NewModel creates an empty model context
func NewModel() *Model {
	return &Model{
		index: make(map[string]*variable),
		names: make(map[string]bool),
	}
}

func shapeSize(shape []int) (int, error) {
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidShape, shape)
		}
		size *= d
	}
	return size, nil
}

func (m *Model) claim(name string) error {
	if name == "" {
		return errors.New("variable name is empty")
	}
	if m.names[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	m.names[name] = true
	return nil
}

// Add registers a free random variable. An empty shape declares a scalar.
func (m *Model) Add(name string, dist Distribution, shape ...int) error {
	size, err := shapeSize(shape)
	if err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	if err := m.claim(name); err != nil {
		return err
	}

	init := make([]float64, size)
	for i := range init {
		init[i] = dist.Init()
	}
	v := &variable{
		name:   name,
		dist:   dist,
		shape:  append([]int(nil), shape...),
		offset: m.dim,
		size:   size,
		init:   init,
	}
	m.vars = append(m.vars, v)
	m.index[name] = v
	m.dim += size
	return nil
}

// SetInit overrides the starting value of a variable. A single value is
// broadcast to every element.
func (m *Model) SetInit(name string, values ...float64) error {
	v, ok := m.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	switch len(values) {
	case 1:
		for i := range v.init {
			v.init[i] = values[0]
		}
	case v.size:
		copy(v.init, values)
	default:
		return fmt.Errorf("%w: %s expects %d init values, got %d", ErrInvalidShape, name, v.size, len(values))
	}
	if v.dist.Support() == Positive {
		for _, x := range v.init {
			if x <= 0 {
				return fmt.Errorf("variable %s: init %g outside positive support", name, x)
			}
		}
	}
	return nil
}

// Deterministic registers a named expression recorded in every trace.
// Deterministics are evaluated in registration order, so an expression may
// read any variable and any deterministic registered before it.
func (m *Model) Deterministic(name string, fn Expr, shape ...int) error {
	if _, err := shapeSize(shape); err != nil {
		return fmt.Errorf("deterministic %s: %w", name, err)
	}
	if err := m.claim(name); err != nil {
		return err
	}
	m.dets = append(m.dets, &deterministic{
		name:  name,
		shape: append([]int(nil), shape...),
		fn:    fn,
	})
	return nil
}

// Observe adds a log-likelihood term evaluated at every point
func (m *Model) Observe(name string, logLik func(Point) float64) error {
	if err := m.claim(name); err != nil {
		return err
	}
	m.obs = append(m.obs, &observed{name: name, logLik: logLik})
	return nil
}

// Dim returns the number of free scalar parameters
func (m *Model) Dim() int {
	return m.dim
}

// Has reports whether a variable or deterministic is registered
func (m *Model) Has(name string) bool {
	if _, ok := m.index[name]; ok {
		return true
	}
	for _, d := range m.dets {
		if d.name == name {
			return true
		}
	}
	return false
}

// Names returns free variables followed by deterministics, in registration order
func (m *Model) Names() []string {
	out := make([]string, 0, len(m.vars)+len(m.dets))
	for _, v := range m.vars {
		out = append(out, v.name)
	}
	for _, d := range m.dets {
		out = append(out, d.name)
	}
	return out
}

func (m *Model) shapes() map[string][]int {
	out := make(map[string][]int, len(m.vars)+len(m.dets))
	for _, v := range m.vars {
		out[v.name] = v.shape
	}
	for _, d := range m.dets {
		out[d.name] = d.shape
	}
	return out
}

// LogProb returns the joint log density of the priors and observed terms
// at a point given in the natural (constrained) parameterisation
func (m *Model) LogProb(p Point) (float64, error) {
	for _, v := range m.vars {
		if len(p[v.name]) != v.size {
			return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, v.name)
		}
	}
	full := make(Point, len(p)+len(m.dets))
	for k, v := range p {
		full[k] = v
	}
	m.evaluate(full)

	lp := 0.0
	for _, v := range m.vars {
		for _, x := range full[v.name] {
			lp += v.dist.LogProb(x)
		}
	}
	for _, o := range m.obs {
		lp += o.logLik(full)
	}
	return lp, nil
}

// unconstrained returns the starting vector in optimisation space
func (m *Model) unconstrained() []float64 {
	u := make([]float64, m.dim)
	for _, v := range m.vars {
		for i, x := range v.init {
			if v.dist.Support() == Positive {
				x = math.Log(x)
			}
			u[v.offset+i] = x
		}
	}
	return u
}

// constrain maps an unconstrained vector onto a point of free variables
func (m *Model) constrain(u []float64) Point {
	p := make(Point, len(m.vars)+len(m.dets))
	for _, v := range m.vars {
		vals := make([]float64, v.size)
		copy(vals, u[v.offset:v.offset+v.size])
		if v.dist.Support() == Positive {
			for i := range vals {
				vals[i] = math.Exp(vals[i])
			}
		}
		p[v.name] = vals
	}
	return p
}

// evaluate fills in every deterministic
func (m *Model) evaluate(p Point) {
	for _, d := range m.dets {
		p[d.name] = d.fn(p)
	}
}

// point returns the complete point at u and validates deterministic lengths
func (m *Model) point(u []float64) (Point, error) {
	p := m.constrain(u)
	m.evaluate(p)
	for _, d := range m.dets {
		size, _ := shapeSize(d.shape)
		if len(p[d.name]) != size {
			return nil, fmt.Errorf("%w: deterministic %s has %d values, shape %v", ErrInvalidShape, d.name, len(p[d.name]), d.shape)
		}
	}
	return p, nil
}

// logDensity evaluates the log posterior at an unconstrained vector. With
// jacobian set the log-Jacobian of the exp transform is included, which is
// the density sampling targets. The mode is searched without it.
func (m *Model) logDensity(u []float64, jacobian bool) float64 {
	p := m.constrain(u)
	lp := 0.0
	for _, v := range m.vars {
		positive := v.dist.Support() == Positive
		for i, x := range p[v.name] {
			lp += v.dist.LogProb(x)
			if positive && jacobian {
				lp += u[v.offset+i]
			}
		}
	}
	if math.IsInf(lp, -1) || math.IsNaN(lp) {
		return lp
	}
	m.evaluate(p)
	for _, o := range m.obs {
		lp += o.logLik(p)
	}
	return lp
}
