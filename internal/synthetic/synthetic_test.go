package synthetic

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := New(42).Trend(100, 3, 0.001)
	b := New(42).Trend(100, 3, 0.001)
	c := New(43).Trend(100, 3, 0.001)

	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, a.Params["delta"], b.Params["delta"])
	assert.NotEqual(t, a.Y, c.Y)
}

func TestAxis(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, Axis(5))
	assert.Equal(t, []float64{0}, Axis(1))
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, Changepoints(3))
}

func TestTrendValues_Continuous(t *testing.T) {
	s := []float64{0.5}
	delta := []float64{2}
	eps := 1e-9

	left := TrendValues([]float64{0.5 - eps}, s, 1, 0.5, delta)[0]
	right := TrendValues([]float64{0.5 + eps}, s, 1, 0.5, delta)[0]
	assert.InDelta(t, left, right, 1e-6)

	// slope after the changepoint is k + delta
	a := TrendValues([]float64{0.8, 0.9}, s, 1, 0.5, delta)
	assert.InDelta(t, 3*0.1, a[1]-a[0], 1e-12)
}

func TestLogisticValues_Bounded(t *testing.T) {
	ds := New(1).Logistic(500, 5, 0)
	for _, v := range ds.Y {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}

	s := []float64{0.3, 0.6}
	delta := []float64{1.5, -2}
	eps := 1e-9
	for _, sj := range s {
		l := LogisticValues([]float64{sj - eps}, s, 2.5, 0, delta)[0]
		r := LogisticValues([]float64{sj + eps}, s, 2.5, 0, delta)[0]
		assert.InDelta(t, l, r, 1e-6)
	}
}

func TestRegressor_Binary(t *testing.T) {
	ds := New(7).Regressor(200, 2, 2, true, 0)
	cols := ds.Frame.Columns()
	assert.Equal(t, []string{"feature0", "feature1"}, cols)

	f0, err := ds.Frame.Column("feature0")
	require.NoError(t, err)
	f1, err := ds.Frame.Column("feature1")
	require.NoError(t, err)
	k := ds.Params["k"]
	for i, v := range f0 {
		assert.Contains(t, []float64{0, 1}, v)
		assert.InDelta(t, v*k[0]+f1[i]*k[1], ds.Y[i], 1e-12)
	}
}

func TestComposite_Shapes(t *testing.T) {
	add := New(3).Additive(300, 5, 2, 2, 0.001)
	assert.Len(t, add.Y, 300)
	assert.Equal(t, 300, add.Frame.Len())
	assert.Len(t, add.Params["beta"], 10)
	assert.Len(t, add.Params["delta"], 2)
	assert.Len(t, add.Params["k"], 2)

	mul := New(3).Multiplicative(300, 5, 2, 2, 0.001)
	assert.Len(t, mul.Y, 300)
	assert.True(t, mul.Frame.IsMonotonic())
}

func TestDataset_WriteCSV(t *testing.T) {
	ds := New(5).Regressor(3, 1, 0, false, 0)
	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "t,value,feature0", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2018-01-01,"))
}
