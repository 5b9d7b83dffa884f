package likelihood

import (
	"context"
	"math"
	"testing"

	"github.com/soltixdb/decompose/internal/inference"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func constantMean(n int) inference.Expr {
	return func(p inference.Point) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = p["c"][0]
		}
		return out
	}
}

func fit(t *testing.T, lik Likelihood, y []float64) *inference.PointTrace {
	m := inference.NewModel()
	require.NoError(t, m.Add("c", inference.Normal{Mu: 0, Sigma: 5}))
	require.NoError(t, lik.Observe(m, constantMean(len(y)), y))

	opts := inference.DefaultOptions()
	opts.Logger = logging.Nop()
	tr, err := inference.FindMAP(context.Background(), m, opts)
	require.NoError(t, err)
	return tr
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "gaussian", false},
		{"gaussian", "gaussian", false},
		{"studentt", "studentt", false},
		{"poisson", "", true},
	}
	for _, tt := range tests {
		lik, err := New(tt.name)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, lik.Name())
	}
}

func TestGaussian_RecoversMeanAndNoise(t *testing.T) {
	y := make([]float64, 400)
	for i := range y {
		y[i] = 1.5 + 0.2*math.Sin(float64(i)*0.7)
	}

	tr := fit(t, NewGaussian(), y)

	c, err := tr.Value("c")
	require.NoError(t, err)
	sigma, err := tr.Value("sigma")
	require.NoError(t, err)

	assert.InDelta(t, stat.Mean(y, nil), c[0], 1e-3)
	assert.InDelta(t, stat.PopStdDev(y, nil), sigma[0], 5e-3)
}

func TestStudentT_IgnoresOutlier(t *testing.T) {
	y := make([]float64, 101)
	for i := range y {
		y[i] = 1 + 0.01*float64(i%5-2)
	}
	y[50] = 100

	gauss := fit(t, NewGaussian(), y)
	robust := fit(t, NewStudentT(), y)

	gc, _ := gauss.Value("c")
	rc, _ := robust.Value("c")
	assert.Greater(t, math.Abs(gc[0]-1), 0.5)
	assert.InDelta(t, 1.0, rc[0], 0.05)
}

func TestObserve_DuplicateSigma(t *testing.T) {
	m := inference.NewModel()
	require.NoError(t, m.Add("sigma", inference.Normal{Mu: 0, Sigma: 1}))
	err := NewGaussian().Observe(m, constantMean(1), []float64{0})
	assert.ErrorIs(t, err, inference.ErrDuplicateVariable)
}
