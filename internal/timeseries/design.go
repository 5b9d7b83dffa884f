package timeseries

import (
	"fmt"

	"github.com/soltixdb/decompose/internal/frame"
	"github.com/soltixdb/decompose/internal/scaler"
)

// design is the scaled view of a frame handed to every component. Only the
// time column is scaled; numeric features and pool labels pass through.
type design struct {
	n        int
	t        []float64
	features map[string][]float64
	labels   map[string][]string
	// timeScale is the divisor, in seconds, that maps durations onto the
	// scaled time axis
	timeScale float64
	// target is the fitted y scaler, used to express capacities in model units
	target scaler.Scaler
}

func newDesign(X *frame.Frame, t []float64, timeScale float64, target scaler.Scaler) *design {
	d := &design{
		n:         X.Len(),
		t:         t,
		features:  make(map[string][]float64),
		labels:    make(map[string][]string),
		timeScale: timeScale,
		target:    target,
	}
	for _, name := range X.Columns() {
		col, _ := X.Column(name)
		d.features[name] = col
	}
	for _, name := range X.LabelColumns() {
		col, _ := X.Labels(name)
		d.labels[name] = col
	}
	return d
}

func (d *design) feature(name string) ([]float64, error) {
	col, ok := d.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing feature column %q", ErrValidation, name)
	}
	return col, nil
}

func (d *design) label(name string) ([]string, error) {
	col, ok := d.labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing pool column %q", ErrValidation, name)
	}
	return col, nil
}

// maxT returns the largest scaled time, the right edge of the changepoint grid
func (d *design) maxT() float64 {
	hi := d.t[0]
	for _, v := range d.t[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}
