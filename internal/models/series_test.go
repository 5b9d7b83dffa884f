package models

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSeries() SeriesData {
	return SeriesData{
		Time:     []string{"2024-01-01", "2024-01-02T00:00:00Z", "2024-01-03"},
		Y:        []float64{1, 2, 3},
		Features: map[string][]float64{"temp": {10, 11, 12}, "promo": {0, 1, 0}},
		Labels:   map[string][]string{"store": {"a", "b", "a"}},
	}
}

func TestFitRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(r *FitRequest)
		wantErr bool
	}{
		{"valid request", func(r *FitRequest) {}, false},
		{"missing model type", func(r *FitRequest) { r.Model.Type = "" }, true},
		{"bad method", func(r *FitRequest) { r.Options.Method = "nuts" }, true},
		{"negative draws", func(r *FitRequest) { r.Options.Draws = -1 }, true},
		{"no timestamps", func(r *FitRequest) { r.Data = SeriesData{} }, true},
		{"target length mismatch", func(r *FitRequest) { r.Data.Y = []float64{1} }, true},
		{"feature length mismatch", func(r *FitRequest) { r.Data.Features["temp"] = []float64{1} }, true},
		{"label length mismatch", func(r *FitRequest) { r.Data.Labels["store"] = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &FitRequest{
				Model: timeseries.ModelSpec{Type: timeseries.SpecTrend},
				Data:  validSeries(),
			}
			tt.modify(req)

			err := req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fe, ok := err.(*fiber.Error)
			require.True(t, ok)
			assert.Equal(t, fiber.StatusBadRequest, fe.Code)
		})
	}
}

func TestPredictRequest_Validate(t *testing.T) {
	req := &PredictRequest{Data: SeriesData{Time: []string{"2024-01-01"}}, Percentiles: []float64{5, 95}}
	assert.NoError(t, req.Validate())

	req.Percentiles = []float64{-1}
	assert.Error(t, req.Validate())
}

func TestSeriesData_ToFrame(t *testing.T) {
	data := validSeries()
	f, err := data.ToFrame()
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"promo", "temp"}, f.Columns())
	assert.Equal(t, []string{"store"}, f.LabelColumns())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), f.Times()[1])

	data.Time[2] = "yesterday"
	_, err = data.ToFrame()
	assert.Error(t, err)
}
