package models

import "github.com/soltixdb/decompose/internal/timeseries"

// SeriesData carries a frame as columns. Time values accept RFC3339 or
// date-only layouts; features are numeric regressor columns and labels are
// categorical pool columns.
type SeriesData struct {
	Time     []string             `json:"t"`
	Y        []float64            `json:"y,omitempty"`
	Features map[string][]float64 `json:"features,omitempty"`
	Labels   map[string][]string  `json:"labels,omitempty"`
}

// FitOptions overrides the configured inference defaults for one fit
type FitOptions struct {
	Method        string  `json:"method,omitempty"` // map, sample
	Draws         int     `json:"draws,omitempty"`
	Seed          *uint64 `json:"seed,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
	XScaler       string  `json:"x_scaler,omitempty"`
	YScaler       string  `json:"y_scaler,omitempty"`
	Likelihood    string  `json:"likelihood,omitempty"`
}

// FitRequest represents a fit request: a model tree and its training data
type FitRequest struct {
	Model   timeseries.ModelSpec `json:"model"`
	Data    SeriesData           `json:"data"`
	Options FitOptions           `json:"options,omitempty"`
}

// PredictRequest represents a predict or decompose request
type PredictRequest struct {
	Data        SeriesData `json:"data"`
	Percentiles []float64  `json:"percentiles,omitempty"`
}
