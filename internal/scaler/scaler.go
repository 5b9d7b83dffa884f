// Package scaler normalizes model inputs and outputs and maps predictions back
// to the original units.
//
// Every scaler works column-wise on a gonum matrix. A single series is an
// n x 1 matrix (see Column). Parameters fitted on one column broadcast across
// all columns of the data passed to Transform or InvTransform, which is how an
// n x draws prediction matrix is mapped back through a target scaler.
package scaler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotFitted is returned when Transform or InvTransform is called before Fit
	ErrNotFitted = errors.New("scaler is not fitted")
	// ErrDimension is returned when data columns do not match fitted columns
	ErrDimension = errors.New("column count does not match fitted scaler")
	// ErrEmpty is returned when fitting on zero rows
	ErrEmpty = errors.New("scaler data is empty")
)

// Scaler fits scale parameters on training data and applies them
type Scaler interface {
	// Fit computes and stores the scale parameters of each column
	Fit(data mat.Matrix) error
	// Transform scales data with the stored parameters
	Transform(data mat.Matrix) (*mat.Dense, error)
	// InvTransform maps scaled data back to the original units
	InvTransform(data mat.Matrix) (*mat.Dense, error)
	// FitTransform is Fit followed by Transform
	FitTransform(data mat.Matrix) (*mat.Dense, error)
	// ScaleFactor returns the per-column divisor
	ScaleFactor() ([]float64, error)
	// Kind returns the scaler kind
	Kind() Kind
}

// Kind names a scaler implementation
type Kind string

const (
	KindIdentity    Kind = "identity"
	KindMinMax      Kind = "minmax"
	KindMax         Kind = "max"
	KindStandardize Kind = "standardize"
)

// New creates an unfitted scaler of the given kind
func New(kind Kind) (Scaler, error) {
	switch kind {
	case KindIdentity:
		return NewIdentity(), nil
	case KindMinMax:
		return NewMinMax(), nil
	case KindMax:
		return NewMax(), nil
	case KindStandardize, "std":
		return NewStandardize(), nil
	default:
		return nil, fmt.Errorf("unknown scaler kind: %s", kind)
	}
}

// Kinds returns the supported scaler kinds
func Kinds() []Kind {
	return []Kind{KindIdentity, KindMinMax, KindMax, KindStandardize}
}

// Column wraps a series as an n x 1 matrix
func Column(values []float64) *mat.Dense {
	v := make([]float64, len(values))
	copy(v, values)
	return mat.NewDense(len(v), 1, v)
}

// Scalar wraps a single value as a 1 x 1 matrix
func Scalar(v float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{v})
}

// affine holds x' = (x - shift) / scale for every column
type affine struct {
	shift  []float64
	scale  []float64
	fitted bool
}

func (a *affine) set(shift, scale []float64) {
	a.shift = shift
	a.scale = scale
	a.fitted = true
}

func (a *affine) params(col int) (float64, float64) {
	if len(a.shift) == 1 {
		return a.shift[0], a.scale[0]
	}
	return a.shift[col], a.scale[col]
}

func (a *affine) check(data mat.Matrix) error {
	if !a.fitted {
		return ErrNotFitted
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return ErrEmpty
	}
	if len(a.shift) != 1 && len(a.shift) != c {
		return fmt.Errorf("%w: fitted %d columns, got %d", ErrDimension, len(a.shift), c)
	}
	return nil
}

func (a *affine) Transform(data mat.Matrix) (*mat.Dense, error) {
	if err := a.check(data); err != nil {
		return nil, err
	}
	r, c := data.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		shift, scale := a.params(j)
		return (v - shift) / scale
	}, data)
	return out, nil
}

func (a *affine) InvTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := a.check(data); err != nil {
		return nil, err
	}
	r, c := data.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		shift, scale := a.params(j)
		return v*scale + shift
	}, data)
	return out, nil
}

func (a *affine) ScaleFactor() ([]float64, error) {
	if !a.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(a.scale))
	copy(out, a.scale)
	return out, nil
}

// Shift returns the per-column offset subtracted before scaling
func (a *affine) Shift() ([]float64, error) {
	if !a.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(a.shift))
	copy(out, a.shift)
	return out, nil
}

// columns extracts every column of data, failing on empty input
func columns(data mat.Matrix) ([][]float64, error) {
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, ErrEmpty
	}
	out := make([][]float64, c)
	for j := 0; j < c; j++ {
		out[j] = mat.Col(nil, j, data)
	}
	return out, nil
}

// safeDivisor substitutes 1 for divisors that would produce NaN or Inf
func safeDivisor(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

// Identity leaves data untouched
type Identity struct {
	affine
}

// NewIdentity creates an identity scaler
func NewIdentity() *Identity {
	return &Identity{}
}

// Fit records the column count; the scale factor is always 1
func (s *Identity) Fit(data mat.Matrix) error {
	cols, err := columns(data)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j := range scale {
		scale[j] = 1
	}
	s.set(shift, scale)
	return nil
}

// FitTransform fits and transforms in one call
func (s *Identity) FitTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Kind returns KindIdentity
func (s *Identity) Kind() Kind { return KindIdentity }

// MinMax maps every column onto [0, 1]
type MinMax struct {
	affine
	max []float64
}

// NewMinMax creates a zero-one range scaler
func NewMinMax() *MinMax {
	return &MinMax{}
}

// Fit stores per-column minimum and range. A constant column gets a range
// of 1 so that transform never divides by zero.
func (s *MinMax) Fit(data mat.Matrix) error {
	cols, err := columns(data)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	s.max = make([]float64, len(cols))
	for j, col := range cols {
		lo, hi := floats.Min(col), floats.Max(col)
		shift[j] = lo
		s.max[j] = hi
		scale[j] = safeDivisor(hi - lo)
	}
	s.set(shift, scale)
	return nil
}

// FitTransform fits and transforms in one call
func (s *MinMax) FitTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Min returns the fitted per-column minimum
func (s *MinMax) Min() ([]float64, error) {
	return s.Shift()
}

// Max returns the fitted per-column maximum
func (s *MinMax) Max() ([]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(s.max))
	copy(out, s.max)
	return out, nil
}

// Kind returns KindMinMax
func (s *MinMax) Kind() Kind { return KindMinMax }

// Max divides every column by its maximum, used for capacity-bounded targets
type Max struct {
	affine
}

// NewMax creates a max scaler
func NewMax() *Max {
	return &Max{}
}

// Fit stores the per-column maximum
func (s *Max) Fit(data mat.Matrix) error {
	cols, err := columns(data)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j, col := range cols {
		scale[j] = safeDivisor(floats.Max(col))
	}
	s.set(shift, scale)
	return nil
}

// FitTransform fits and transforms in one call
func (s *Max) FitTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Kind returns KindMax
func (s *Max) Kind() Kind { return KindMax }

// Standardize maps every column to zero mean and unit variance
type Standardize struct {
	affine
}

// NewStandardize creates a standardizing scaler
func NewStandardize() *Standardize {
	return &Standardize{}
}

// Fit stores per-column mean and sample standard deviation
func (s *Standardize) Fit(data mat.Matrix) error {
	cols, err := columns(data)
	if err != nil {
		return err
	}
	shift := make([]float64, len(cols))
	scale := make([]float64, len(cols))
	for j, col := range cols {
		shift[j] = stat.Mean(col, nil)
		if len(col) > 1 {
			scale[j] = safeDivisor(stat.StdDev(col, nil))
		} else {
			scale[j] = 1
		}
	}
	s.set(shift, scale)
	return nil
}

// FitTransform fits and transforms in one call
func (s *Standardize) FitTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Kind returns KindStandardize
func (s *Standardize) Kind() Kind { return KindStandardize }
