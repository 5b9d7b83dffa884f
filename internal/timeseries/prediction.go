package timeseries

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/soltixdb/decompose/internal/frame"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// YHatColumn is the name of the central estimate column
const YHatColumn = "yhat"

// Prediction is a table indexed like the input frame
type Prediction struct {
	Time        []time.Time
	YHat        []float64
	Percentiles map[string][]float64
	columns     []string
}

// PercentileColumn names the column of percentile p
func PercentileColumn(p float64) string {
	return "percentile_" + strconv.FormatFloat(p, 'g', -1, 64)
}

func newPrediction(times []time.Time, draws *mat.Dense, percentiles []float64) *Prediction {
	out := &Prediction{
		Time:        append([]time.Time(nil), times...),
		YHat:        rowMeans(draws),
		Percentiles: make(map[string][]float64, len(percentiles)),
		columns:     []string{YHatColumn},
	}
	if len(percentiles) == 0 {
		return out
	}

	n, _ := draws.Dims()
	cols := make([][]float64, len(percentiles))
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, draws)
		sort.Float64s(row)
		for j, p := range percentiles {
			cols[j][i] = percentile(row, p)
		}
	}
	for j, p := range percentiles {
		name := PercentileColumn(p)
		if _, dup := out.Percentiles[name]; !dup {
			out.columns = append(out.columns, name)
		}
		out.Percentiles[name] = cols[j]
	}
	return out
}

// Len returns the number of rows
func (p *Prediction) Len() int { return len(p.YHat) }

// Columns returns yhat followed by the percentile columns in request order
func (p *Prediction) Columns() []string {
	return append([]string(nil), p.columns...)
}

// Column returns yhat or a percentile column by name
func (p *Prediction) Column(name string) ([]float64, error) {
	if name == YHatColumn {
		return p.YHat, nil
	}
	col, ok := p.Percentiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown prediction column %q", name)
	}
	return col, nil
}

// WriteCSV writes the prediction with an RFC3339 time column
func (p *Prediction) WriteCSV(w io.Writer) error {
	f := frame.New(p.Time)
	for _, name := range p.columns {
		col, _ := p.Column(name)
		if err := f.AddColumn(name, col); err != nil {
			return err
		}
	}
	return f.WriteCSV(w, time.RFC3339)
}

// WriteCSV writes one column per component with an RFC3339 time column
func (d *Decomposition) WriteCSV(w io.Writer) error {
	f := frame.New(d.Time)
	for _, name := range d.Components {
		if err := f.AddColumn(name, d.Values[name]); err != nil {
			return err
		}
	}
	return f.WriteCSV(w, time.RFC3339)
}

// percentile interpolates linearly between the sorted values around rank
// (n-1)*p/100, so the 50th percentile of an odd sample is its median
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	lo = min(max(lo, 0), len(sorted)-1)
	hi = min(max(hi, 0), len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func rowMeans(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		row := m.RawRowView(i)
		out[i] = floats.Sum(row) / float64(len(row))
	}
	return out
}
