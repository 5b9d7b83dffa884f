package inference

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies the inference result variant
type Kind string

const (
	// KindPoint is a single MAP estimate
	KindPoint Kind = "map"
	// KindSamples is a set of posterior draws
	KindSamples Kind = "samples"
)

// Trace is the result of inference. Draws returns a draws x size matrix for
// any variable or deterministic; a point estimate has exactly one draw, so
// code consuming a trace never needs to know which variant it holds.
type Trace interface {
	Kind() Kind
	NumDraws() int
	Names() []string
	Shape(name string) ([]int, error)
	Draws(name string) (*mat.Dense, error)

	sealed()
}

// Stats summarises the optimiser run behind a trace
type Stats struct {
	Status       string
	Iterations   int
	Evaluations  int
	Runtime      time.Duration
	LogPosterior float64
}

type header struct {
	names  []string
	shapes map[string][]int
}

func (h header) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

func (h header) Shape(name string) ([]int, error) {
	s, ok := h.shapes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return append([]int(nil), s...), nil
}

// PointTrace holds a MAP estimate
type PointTrace struct {
	header
	values Point
	Stats  Stats
}

func newPointTrace(m *Model, p Point, stats Stats) *PointTrace {
	return &PointTrace{
		header: header{names: m.Names(), shapes: m.shapes()},
		values: p,
		Stats:  stats,
	}
}

func (t *PointTrace) sealed() {}

// Kind returns KindPoint
func (t *PointTrace) Kind() Kind { return KindPoint }

// NumDraws is always 1
func (t *PointTrace) NumDraws() int { return 1 }

// Value returns the flattened estimate of a variable or deterministic
func (t *PointTrace) Value(name string) ([]float64, error) {
	v, ok := t.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return append([]float64(nil), v...), nil
}

// Point returns a copy of the estimate
func (t *PointTrace) Point() Point {
	out := make(Point, len(t.values))
	for k, v := range t.values {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// Draws returns the estimate as a 1 x size matrix
func (t *PointTrace) Draws(name string) (*mat.Dense, error) {
	v, err := t.Value(name)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(1, len(v), v), nil
}

// SampleTrace holds posterior draws
type SampleTrace struct {
	header
	draws map[string]*mat.Dense
	n     int
	// Mode is the estimate the draws are centred on
	Mode *PointTrace
}

func newSampleTrace(m *Model, points []Point, mode *PointTrace) *SampleTrace {
	t := &SampleTrace{
		header: header{names: m.Names(), shapes: m.shapes()},
		draws:  make(map[string]*mat.Dense, len(m.vars)+len(m.dets)),
		n:      len(points),
		Mode:   mode,
	}
	for _, name := range t.names {
		size, _ := shapeSize(t.shapes[name])
		d := mat.NewDense(len(points), size, nil)
		for i, p := range points {
			d.SetRow(i, p[name])
		}
		t.draws[name] = d
	}
	return t
}

func (t *SampleTrace) sealed() {}

// Kind returns KindSamples
func (t *SampleTrace) Kind() Kind { return KindSamples }

// NumDraws returns the number of posterior draws
func (t *SampleTrace) NumDraws() int { return t.n }

// Draws returns a draws x size matrix
func (t *SampleTrace) Draws(name string) (*mat.Dense, error) {
	d, ok := t.draws[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return mat.DenseCopyOf(d), nil
}

// Mean returns the per-element mean of a variable across draws
func Mean(t Trace, name string) ([]float64, error) {
	d, err := t.Draws(name)
	if err != nil {
		return nil, err
	}
	r, c := d.Dims()
	out := make([]float64, c)
	for j := 0; j < c; j++ {
		out[j] = mat.Sum(d.ColView(j)) / float64(r)
	}
	return out, nil
}
