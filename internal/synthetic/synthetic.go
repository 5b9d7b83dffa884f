// Package synthetic generates seeded test series whose ground truth is
// known. Series are daily, starting 2018-01-01, and every generator works
// on the time axis a MinMax time scaler produces: t_i = i / (n - 1).
package synthetic

import (
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/soltixdb/decompose/internal/frame"
	"gonum.org/v1/gonum/stat/distuv"
)

// Start is the first timestamp of every generated series
var Start = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

// Year in days, the period of generated seasonality
const Year = 365.25

// Dataset is a generated frame, its target and the true parameters
type Dataset struct {
	Frame  *frame.Frame
	Y      []float64
	Params map[string][]float64
}

// Generator draws every random quantity from one seeded source
type Generator struct {
	src rand.Source
}

// New creates a generator; equal seeds give equal datasets
func New(seed uint64) *Generator {
	return &Generator{src: rand.NewPCG(seed, seed+1)}
}

// Dates returns n consecutive days from Start
func Dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = Start.AddDate(0, 0, i)
	}
	return out
}

// Axis returns the scaled time axis i / (n - 1)
func Axis(n int) []float64 {
	t := make([]float64, n)
	if n == 1 {
		return t
	}
	for i := range t {
		t[i] = float64(i) / float64(n-1)
	}
	return t
}

// Changepoints spaces n changepoints evenly on (0, 1)
func Changepoints(n int) []float64 {
	s := make([]float64, n)
	for j := range s {
		s[j] = float64(j+1) / float64(n+1)
	}
	return s
}

func (g *Generator) laplace(n int, loc, scale float64) []float64 {
	d := distuv.Laplace{Mu: loc, Scale: scale, Src: g.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (g *Generator) normal(n int, mu, sigma float64) []float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (g *Generator) addNoise(y []float64, sigma float64) {
	if sigma <= 0 {
		return
	}
	noise := g.normal(len(y), 0, sigma)
	for i := range y {
		y[i] += noise[i]
	}
}

// Trend generates a piecewise-linear series with k = m = 0 and Laplace(0, 1)
// rate changes at evenly spaced changepoints
func (g *Generator) Trend(n, nChangepoints int, noise float64) *Dataset {
	delta := g.laplace(nChangepoints, 0, 1)
	y := TrendValues(Axis(n), Changepoints(nChangepoints), 0, 0, delta)
	g.addNoise(y, noise)
	return &Dataset{
		Frame:  frame.New(Dates(n)),
		Y:      y,
		Params: map[string][]float64{"delta": delta},
	}
}

// TrendValues evaluates a continuous piecewise-linear trend
func TrendValues(t, s []float64, k, m float64, delta []float64) []float64 {
	out := make([]float64, len(t))
	for i, ti := range t {
		rate, offset := k, m
		for j, sj := range s {
			if ti > sj {
				rate += delta[j]
				offset -= sj * delta[j]
			}
		}
		out[i] = rate*ti + offset
	}
	return out
}

// Logistic generates a logistic growth series with capacity 1, k = 2.5,
// m = 0 and Laplace(0, 0.2) rate changes
func (g *Generator) Logistic(n, nChangepoints int, noise float64) *Dataset {
	delta := g.laplace(nChangepoints, 0, 0.2)
	y := LogisticValues(Axis(n), Changepoints(nChangepoints), 2.5, 0, delta)
	g.addNoise(y, noise)
	return &Dataset{
		Frame:  frame.New(Dates(n)),
		Y:      y,
		Params: map[string][]float64{"delta": delta},
	}
}

// LogisticValues evaluates 1 / (1 + exp(-g)) for a continuous piecewise
// logistic trend
func LogisticValues(t, s []float64, k, m float64, delta []float64) []float64 {
	gamma := make([]float64, len(s))
	rate, sum := k, 0.0
	for j, sj := range s {
		prev := rate
		rate += delta[j]
		if rate != 0 {
			gamma[j] = (sj - m - sum) * (1 - prev/rate)
		}
		sum += gamma[j]
	}

	out := make([]float64, len(t))
	for i, ti := range t {
		r, off := k, m
		for j, sj := range s {
			if ti > sj {
				r += delta[j]
				off += gamma[j]
			}
		}
		out[i] = 1 / (1 + math.Exp(-r*(ti-off)))
	}
	return out
}

// Fourier generates a yearly seasonality with nComponents harmonics and
// standard normal coefficients
func (g *Generator) Fourier(n, nComponents int, noise float64) *Dataset {
	beta := g.normal(2*nComponents, 0, 1)
	y := make([]float64, n)
	for i := range y {
		day := float64(i)
		for k := 0; k < nComponents; k++ {
			x := 2 * math.Pi * float64(k+1) * day / Year
			y[i] += beta[k]*math.Cos(x) + beta[nComponents+k]*math.Sin(x)
		}
	}
	g.addNoise(y, noise)
	return &Dataset{
		Frame:  frame.New(Dates(n)),
		Y:      y,
		Params: map[string][]float64{"beta": beta},
	}
}

// RBF generates a yearly seasonality of Gaussian bumps at nPeaks evenly
// spaced peaks. sigma is the kernel width on the scaled time axis.
func (g *Generator) RBF(n, nPeaks int, sigma, noise float64) *Dataset {
	beta := g.normal(nPeaks, 0, 1)
	span := float64(n - 1)
	period := Year / span
	t := Axis(n)

	y := make([]float64, n)
	for i, ti := range t {
		phase := math.Mod(ti, period)
		for j := 0; j < nPeaks; j++ {
			peak := Year * float64(j) / float64(nPeaks) / span
			left := math.Abs(phase - peak)
			d := math.Min(left, math.Abs(period-left))
			y[i] += beta[j] * math.Exp(-d*d/(2*sigma*sigma))
		}
	}
	g.addNoise(y, noise)
	return &Dataset{
		Frame:  frame.New(Dates(n)),
		Y:      y,
		Params: map[string][]float64{"beta": beta},
	}
}

// FeatureName names generated regressor columns
func FeatureName(i int) string {
	return "feature" + strconv.Itoa(i)
}

// Regressor generates nFeatures columns and y = X k with k ~ N(loc, 1).
// Binary features are Bernoulli(0.1), otherwise standard normal.
func (g *Generator) Regressor(n, nFeatures int, loc float64, binary bool, noise float64) *Dataset {
	k := g.normal(nFeatures, loc, 1)
	f := frame.New(Dates(n))
	y := make([]float64, n)

	for j := 0; j < nFeatures; j++ {
		var col []float64
		if binary {
			b := distuv.Bernoulli{P: 0.1, Src: g.src}
			col = make([]float64, n)
			for i := range col {
				col[i] = b.Rand()
			}
		} else {
			col = g.normal(n, 0, 1)
		}
		for i := range y {
			y[i] += col[i] * k[j]
		}
		_ = f.AddColumn(FeatureName(j), col)
	}
	g.addNoise(y, noise)
	return &Dataset{
		Frame:  f,
		Y:      y,
		Params: map[string][]float64{"k": k},
	}
}

// Additive generates seasonality + trend + binary regressors
func (g *Generator) Additive(n, nComponents, nChangepoints, nFeatures int, noise float64) *Dataset {
	seasonal := g.Fourier(n, nComponents, noise)
	trend := g.Trend(n, nChangepoints, noise)
	reg := g.Regressor(n, nFeatures, 2, true, noise)

	y := make([]float64, n)
	for i := range y {
		y[i] = seasonal.Y[i] + trend.Y[i] + reg.Y[i]
	}
	return &Dataset{Frame: reg.Frame, Y: y, Params: merge(seasonal, trend, reg)}
}

// Multiplicative generates seasonality * (trend + 1) + binary regressors
func (g *Generator) Multiplicative(n, nComponents, nChangepoints, nFeatures int, noise float64) *Dataset {
	seasonal := g.Fourier(n, nComponents, noise)
	trend := g.Trend(n, nChangepoints, noise)
	reg := g.Regressor(n, nFeatures, 0, true, noise)

	y := make([]float64, n)
	for i := range y {
		y[i] = seasonal.Y[i]*(trend.Y[i]+1) + reg.Y[i]
	}
	return &Dataset{Frame: reg.Frame, Y: y, Params: merge(seasonal, trend, reg)}
}

func merge(sets ...*Dataset) map[string][]float64 {
	out := make(map[string][]float64)
	for _, s := range sets {
		for k, v := range s.Params {
			out[k] = v
		}
	}
	return out
}

// WriteCSV writes t as a date, value and every feature column
func (d *Dataset) WriteCSV(w io.Writer) error {
	out := frame.New(d.Frame.Times())
	if err := out.AddColumn("value", d.Y); err != nil {
		return err
	}
	for _, name := range d.Frame.Columns() {
		col, err := d.Frame.Column(name)
		if err != nil {
			return err
		}
		if err := out.AddColumn(name, col); err != nil {
			return err
		}
	}
	return out.WriteCSV(w, "2006-01-02")
}
