package inference

import (
	"context"
	"math"
	"testing"

	"github.com/soltixdb/decompose/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = logging.Nop()
	return opts
}

func observations(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = 3 + math.Sin(float64(i))
	}
	return y
}

// normalMeanModel is mu ~ N(0, 10), y ~ N(mu, 1)
func normalMeanModel(t *testing.T, y []float64) *Model {
	m := NewModel()
	require.NoError(t, m.Add("mu", Normal{Mu: 0, Sigma: 10}))
	require.NoError(t, m.Observe("y", func(p Point) float64 {
		mu := p["mu"][0]
		lp := 0.0
		for _, v := range y {
			lp += distuv.Normal{Mu: mu, Sigma: 1}.LogProb(v)
		}
		return lp
	}))
	return m
}

func conjugateMean(y []float64) (float64, float64) {
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	precision := float64(len(y)) + 1.0/100
	return sum / precision, math.Sqrt(1 / precision)
}

func TestFindMAP_ConjugateNormal(t *testing.T) {
	y := observations(100)
	m := normalMeanModel(t, y)

	tr, err := FindMAP(context.Background(), m, testOptions())
	require.NoError(t, err)

	want, _ := conjugateMean(y)
	got, err := tr.Value("mu")
	require.NoError(t, err)
	assert.InDelta(t, want, got[0], 1e-4)

	assert.Equal(t, KindPoint, tr.Kind())
	assert.Equal(t, 1, tr.NumDraws())
	assert.Greater(t, tr.Stats.Evaluations, 0)
}

func TestFindMAP_PositiveVariable(t *testing.T) {
	n := 200
	y := make([]float64, n)
	for i := range y {
		y[i] = 2
		if i%2 == 1 {
			y[i] = -2
		}
	}

	m := NewModel()
	require.NoError(t, m.Add("sigma", HalfNormal{Sigma: 1}))
	require.NoError(t, m.Observe("y", func(p Point) float64 {
		sigma := p["sigma"][0]
		lp := 0.0
		for _, v := range y {
			lp += distuv.Normal{Mu: 0, Sigma: sigma}.LogProb(v)
		}
		return lp
	}))

	tr, err := FindMAP(context.Background(), m, testOptions())
	require.NoError(t, err)

	// stationary point of -n log s - sum(y^2)/(2 s^2) - s^2/2
	sumSq := 4.0 * float64(n)
	s2 := (-float64(n) + math.Sqrt(float64(n*n)+4*sumSq)) / 2
	got, err := tr.Value("sigma")
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(s2), got[0], 1e-3)
}

func TestFindMAP_Deterministic(t *testing.T) {
	y := observations(50)
	m := normalMeanModel(t, y)
	require.NoError(t, m.Deterministic("twice", func(p Point) []float64 {
		return []float64{2 * p["mu"][0], -p["mu"][0]}
	}, 2))

	tr, err := FindMAP(context.Background(), m, testOptions())
	require.NoError(t, err)

	mu, err := tr.Value("mu")
	require.NoError(t, err)
	twice, err := tr.Value("twice")
	require.NoError(t, err)
	assert.InDelta(t, 2*mu[0], twice[0], 1e-12)
	assert.InDelta(t, -mu[0], twice[1], 1e-12)

	shape, err := tr.Shape("twice")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, shape)
	assert.Equal(t, []string{"mu", "twice"}, tr.Names())

	d, err := tr.Draws("twice")
	require.NoError(t, err)
	r, c := d.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, c)
}

func TestFindMAP_DeterministicShapeMismatch(t *testing.T) {
	m := normalMeanModel(t, observations(10))
	require.NoError(t, m.Deterministic("bad", func(p Point) []float64 {
		return []float64{1, 2, 3}
	}, 2))

	_, err := FindMAP(context.Background(), m, testOptions())
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFindMAP_Errors(t *testing.T) {
	_, err := FindMAP(context.Background(), NewModel(), testOptions())
	assert.ErrorIs(t, err, ErrEmptyModel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FindMAP(ctx, normalMeanModel(t, observations(10)), testOptions())
	assert.ErrorIs(t, err, context.Canceled)

	m := NewModel()
	require.NoError(t, m.Add("x", Normal{Mu: 0, Sigma: 1}))
	require.NoError(t, m.Observe("impossible", func(Point) float64 { return math.Inf(-1) }))
	_, err = FindMAP(context.Background(), m, testOptions())
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestModel_Registration(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add("k", Normal{Mu: 0, Sigma: 1}, 2, 3))
	assert.Equal(t, 6, m.Dim())
	assert.True(t, m.Has("k"))
	assert.False(t, m.Has("m"))

	assert.ErrorIs(t, m.Add("k", Laplace{Mu: 0, Scale: 1}), ErrDuplicateVariable)
	assert.ErrorIs(t, m.Deterministic("k", nil), ErrDuplicateVariable)
	assert.ErrorIs(t, m.Observe("k", nil), ErrDuplicateVariable)
	assert.ErrorIs(t, m.Add("z", Normal{Mu: 0, Sigma: 1}, 0), ErrInvalidShape)

	assert.NoError(t, m.SetInit("k", 0.5))
	assert.NoError(t, m.SetInit("k", 1, 2, 3, 4, 5, 6))
	assert.ErrorIs(t, m.SetInit("k", 1, 2), ErrInvalidShape)
	assert.ErrorIs(t, m.SetInit("missing", 1), ErrUnknownVariable)

	require.NoError(t, m.Add("s", HalfCauchy{Beta: 1}))
	assert.Error(t, m.SetInit("s", -1))
}

func TestModel_LogProb(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add("x", Normal{Mu: 0, Sigma: 1}))
	require.NoError(t, m.Add("s", HalfNormal{Sigma: 1}))

	lp, err := m.LogProb(Point{"x": {0}, "s": {1}})
	require.NoError(t, err)
	want := Normal{Mu: 0, Sigma: 1}.LogProb(0) + HalfNormal{Sigma: 1}.LogProb(1)
	assert.InDelta(t, want, lp, 1e-12)

	_, err = m.LogProb(Point{"x": {0}})
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestSample_ConjugateNormal(t *testing.T) {
	y := observations(100)
	m := normalMeanModel(t, y)
	require.NoError(t, m.Deterministic("shifted", func(p Point) []float64 {
		return []float64{p["mu"][0] + 1}
	}))

	opts := testOptions()
	opts.Draws = 2000
	opts.Seed = 42

	tr, err := Sample(context.Background(), m, opts)
	require.NoError(t, err)

	assert.Equal(t, KindSamples, tr.Kind())
	assert.Equal(t, 2000, tr.NumDraws())
	require.NotNil(t, tr.Mode)

	d, err := tr.Draws("mu")
	require.NoError(t, err)
	r, c := d.Dims()
	assert.Equal(t, 2000, r)
	assert.Equal(t, 1, c)

	draws := d.RawMatrix().Data
	wantMean, wantStd := conjugateMean(y)
	assert.InDelta(t, wantMean, stat.Mean(draws, nil), 0.01)
	assert.InDelta(t, wantStd, stat.StdDev(draws, nil), 0.1*wantStd)

	shifted, err := Mean(tr, "shifted")
	require.NoError(t, err)
	assert.InDelta(t, stat.Mean(draws, nil)+1, shifted[0], 1e-9)

	_, err = tr.Draws("nope")
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestSample_LaplacePrior(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add("delta", Laplace{Mu: 0, Scale: 1}))

	opts := testOptions()
	opts.Draws = 4000

	tr, err := Sample(context.Background(), m, opts)
	require.NoError(t, err)

	d, err := tr.Draws("delta")
	require.NoError(t, err)
	draws := d.RawMatrix().Data

	// Laplace(0, 1) has standard deviation sqrt(2)
	assert.InDelta(t, math.Sqrt2, stat.StdDev(draws, nil), 0.25)
	assert.InDelta(t, 0, stat.Mean(draws, nil), 0.15)
}

func TestSample_HalfCauchyTail(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add("s", HalfCauchy{Beta: 1}))

	opts := testOptions()
	opts.Draws = 4000

	tr, err := Sample(context.Background(), m, opts)
	require.NoError(t, err)

	d, err := tr.Draws("s")
	require.NoError(t, err)

	// P(s > 12.7) = 1 - 2/pi * atan(12.7) ~ 0.05
	tail := 0
	for _, v := range d.RawMatrix().Data {
		assert.Greater(t, v, 0.0)
		if v > 12.7 {
			tail++
		}
	}
	frac := float64(tail) / float64(opts.Draws)
	assert.Greater(t, frac, 0.02)
	assert.Less(t, frac, 0.09)
}

func TestSample_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sample(ctx, normalMeanModel(t, observations(20)), testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindMAP_StationaryStart(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add("delta", Laplace{Mu: 0, Scale: 1}, 3))

	tr, err := FindMAP(context.Background(), m, testOptions())
	require.NoError(t, err)

	v, err := tr.Value("delta")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, v)
	assert.Equal(t, "GradientThreshold", tr.Stats.Status)
	assert.InDelta(t, 3*Laplace{Mu: 0, Scale: 1}.LogProb(0), tr.Stats.LogPosterior, 1e-12)
}

func TestTrace_Polymorphic(t *testing.T) {
	y := observations(30)
	opts := testOptions()
	opts.Draws = 50

	point, err := FindMAP(context.Background(), normalMeanModel(t, y), opts)
	require.NoError(t, err)
	samples, err := Sample(context.Background(), normalMeanModel(t, y), opts)
	require.NoError(t, err)

	for _, tr := range []Trace{point, samples} {
		mean, err := Mean(tr, "mu")
		require.NoError(t, err)
		assert.InDelta(t, 3, mean[0], 0.5)
	}
}

func TestDistributions(t *testing.T) {
	assert.Equal(t, Real, Normal{Mu: 0, Sigma: 1}.Support())
	assert.Equal(t, Positive, HalfCauchy{Beta: 1}.Support())
	assert.Equal(t, Positive, HalfNormal{Sigma: 1}.Support())

	assert.True(t, math.IsInf(HalfCauchy{Beta: 1}.LogProb(-1), -1))
	assert.True(t, math.IsInf(HalfNormal{Sigma: 1}.LogProb(-1), -1))

	// half densities integrate to one on the positive axis
	assert.InDelta(t, math.Log(2/math.Pi), HalfCauchy{Beta: 1}.LogProb(0), 1e-12)
	assert.InDelta(t, math.Log(math.Sqrt(2/math.Pi)), HalfNormal{Sigma: 1}.LogProb(0), 1e-12)

	assert.InDelta(t, -math.Log(2), Laplace{Mu: 0, Scale: 1}.LogProb(0), 1e-12)
	assert.Equal(t, "Normal(mu=0, sigma=5)", Normal{Mu: 0, Sigma: 5}.String())
}
