package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/soltixdb/decompose/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, verbose = "", false
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewBufferString(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestLoadModelSpec(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "model.yaml", `
type: add
terms:
  - type: trend
    n_changepoints: 4
  - type: fourier
    n: 3
    period_days: 7
  - type: regressor
    on: [temp, rain]
    pool:
      type: partial
      column: store
`)
	spec, err := loadModelSpec(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, timeseries.SpecAdd, spec.Type)
	require.Len(t, spec.Terms, 3)
	assert.Equal(t, 4, spec.Terms[0].NChangepoints)
	assert.Equal(t, 7.0, spec.Terms[1].PeriodDays)
	assert.Equal(t, []string{"temp", "rain"}, spec.Terms[2].On)
	assert.Equal(t, "store", spec.Terms[2].Pool.Column)

	nested := writeFile(t, dir, "nested.json", `{"model": {"type": "mul", "left": {"type": "fourier"}, "right": {"type": "trend"}}}`)
	spec, err = loadModelSpec(nested)
	require.NoError(t, err)
	assert.Equal(t, timeseries.SpecMul, spec.Type)
	require.NotNil(t, spec.Left)
	assert.Equal(t, timeseries.SpecFourier, spec.Left.Type)

	_, err = loadModelSpec(writeFile(t, dir, "empty.yaml", "terms: []\n"))
	assert.Error(t, err)

	_, err = loadModelSpec(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	out, err := execute(t, "generate", "--kind", "regressor", "--n", "10", "--features", "1")
	require.NoError(t, err)
	records := readCSV(t, out)
	require.Len(t, records, 11)
	assert.Equal(t, []string{"t", "value", "feature0"}, records[0])

	for _, kind := range []string{"trend", "logistic", "fourier", "rbf", "additive", "multiplicative"} {
		_, err := generate(&generateFlags{kind: kind, n: 20, seed: 1, changepoints: 2, components: 2, features: 1})
		assert.NoError(t, err, kind)
	}

	_, err = generate(&generateFlags{kind: "arima", n: 10})
	assert.Error(t, err)
	_, err = generate(&generateFlags{kind: "trend", n: 0})
	assert.Error(t, err)
}

func TestFit_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "series.csv")
	_, err := execute(t, "generate", "--kind", "regressor", "--n", "200", "--features", "2", "--out", data)
	require.NoError(t, err)

	model := writeFile(t, dir, "model.yaml", `
type: regressor
on: [feature0, feature1]
`)

	out, err := execute(t, "fit", "--data", data, "--model", model)
	require.NoError(t, err)
	records := readCSV(t, out)
	require.Len(t, records, 201)
	assert.Equal(t, []string{"t", "yhat"}, records[0])

	out, err = execute(t, "fit", "--data", data, "--model", model,
		"--mcmc", "--draws", "50", "--seed", "3", "--percentiles", "10,90")
	require.NoError(t, err)
	records = readCSV(t, out)
	assert.Equal(t, []string{"t", "yhat", "percentile_10", "percentile_90"}, records[0])

	out, err = execute(t, "fit", "--data", data, "--model", model, "--decompose")
	require.NoError(t, err)
	records = readCSV(t, out)
	assert.Equal(t, []string{"t", "LinearRegressor(on=[feature0,feature1], scale=1)"}, records[0])
}

func TestFit_Errors(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "series.csv")
	_, err := execute(t, "generate", "--kind", "trend", "--n", "30", "--out", data)
	require.NoError(t, err)

	_, err = execute(t, "fit", "--data", data)
	assert.Error(t, err, "--model is required")

	bad := writeFile(t, dir, "bad.yaml", "type: arima\n")
	_, err = execute(t, "fit", "--data", data, "--model", bad)
	assert.Error(t, err)

	trend := writeFile(t, dir, "trend.yaml", "type: trend\n")
	_, err = execute(t, "fit", "--data", data, "--model", trend, "--target-column", "sales")
	assert.Error(t, err)
}
