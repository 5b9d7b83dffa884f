package timeseries

import (
	"fmt"
	"sort"

	"github.com/soltixdb/decompose/internal/inference"
)

// PoolType selects how a component shares parameters across groups
type PoolType string

const (
	// PoolComplete shares one parameter set across all rows
	PoolComplete PoolType = "complete"
	// PoolPartial draws per-group parameters around a shared hyperprior
	PoolPartial PoolType = "partial"
	// PoolNone fits independent parameters per group
	PoolNone PoolType = "none"
)

// Pooling binds a pool type to the categorical column defining groups
type Pooling struct {
	Type   PoolType `json:"type,omitempty" mapstructure:"type"`
	Column string   `json:"column,omitempty" mapstructure:"column"`
}

func (p Pooling) kind() PoolType {
	if p.Type == "" {
		return PoolComplete
	}
	return p.Type
}

func (p Pooling) validate() error {
	switch p.kind() {
	case PoolComplete:
		return nil
	case PoolPartial, PoolNone:
		if p.Column == "" {
			return fmt.Errorf("%w: pool type %q needs a pool column", ErrValidation, p.Type)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown pool type %q", ErrValidation, p.Type)
	}
}

// groups maps rows to group indices. Names are fixed at fit time; rows seen
// at prediction time are mapped back onto them.
type groups struct {
	pooling Pooling
	names   []string
	index   map[string]int
}

var completeGroup = []string{"all"}

// fitGroups derives the groups from the training design. Group order is the
// sorted order of the distinct labels.
func fitGroups(p Pooling, d *design) (*groups, []int, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	g := &groups{pooling: p}
	if p.kind() == PoolComplete {
		g.names = completeGroup
		g.index = map[string]int{completeGroup[0]: 0}
		return g, make([]int, d.n), nil
	}

	labels, err := d.label(p.Column)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			g.names = append(g.names, l)
		}
	}
	sort.Strings(g.names)
	g.index = make(map[string]int, len(g.names))
	for i, name := range g.names {
		g.index[name] = i
	}

	rows, err := g.assign(d)
	return g, rows, err
}

// assign returns the group index of every row of d
func (g *groups) assign(d *design) ([]int, error) {
	rows := make([]int, d.n)
	if g.pooling.kind() == PoolComplete {
		return rows, nil
	}
	labels, err := d.label(g.pooling.Column)
	if err != nil {
		return nil, err
	}
	for i, l := range labels {
		idx, ok := g.index[l]
		if !ok {
			return nil, fmt.Errorf("%w: group %q of column %q was not seen during fit", ErrValidation, l, g.pooling.Column)
		}
		rows[i] = idx
	}
	return rows, nil
}

func (g *groups) size() int {
	return len(g.names)
}

// prior is the family of a pooled coefficient
type prior int

const (
	normalPrior prior = iota
	laplacePrior
)

func (p prior) dist(scale float64) inference.Distribution {
	if p == laplacePrior {
		return inference.Laplace{Mu: 0, Scale: scale}
	}
	return inference.Normal{Mu: 0, Sigma: scale}
}

// declarePooled registers a coefficient of the given shape. Complete and
// unpooled coefficients get the prior directly. Partial pooling uses the
// non-centred form param = offset * sigma with sigma ~ HalfCauchy(scale),
// and records param as a deterministic so traces expose it under one name.
func declarePooled(m *inference.Model, name string, param string, p Pooling, family prior, scale float64, shape ...int) error {
	target := paramName(name, param)
	if p.kind() != PoolPartial {
		return m.Add(target, family.dist(scale), shape...)
	}

	sigma := paramName(name, "sigma_"+param)
	offset := paramName(name, "offset_"+param)
	if err := m.Add(sigma, inference.HalfCauchy{Beta: scale}); err != nil {
		return err
	}
	if err := m.Add(offset, family.dist(1), shape...); err != nil {
		return err
	}
	return m.Deterministic(target, func(pt inference.Point) []float64 {
		off := pt[offset]
		s := pt[sigma][0]
		out := make([]float64, len(off))
		for i, v := range off {
			out[i] = v * s
		}
		return out
	}, shape...)
}

// initPooled sets the starting value of a pooled coefficient. Under partial
// pooling the offset starts at the value and sigma at 1.
func initPooled(m *inference.Model, name string, param string, p Pooling, value float64) error {
	if p.kind() != PoolPartial {
		return m.SetInit(paramName(name, param), value)
	}
	if err := m.SetInit(paramName(name, "sigma_"+param), 1); err != nil {
		return err
	}
	return m.SetInit(paramName(name, "offset_"+param), value)
}

func paramName(component, param string) string {
	return component + "-" + param
}
