package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/models"
	"github.com/soltixdb/decompose/internal/registry"
	"github.com/soltixdb/decompose/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	cfg := config.DefaultConfig()
	m := metrics.New()
	reg := registry.New(cfg.Registry, logging.Nop(), m)
	svc := services.NewDecomposeService(logging.Nop(), reg, m, cfg.Inference)
	return New(logging.Nop(), reg, svc)
}

func newTestApp() *fiber.App {
	h := newTestHandler()
	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/v1/models", h.FitModel)
	app.Get("/v1/models", h.ListModels)
	app.Get("/v1/models/:id", h.GetModel)
	app.Post("/v1/models/:id/predict", h.Predict)
	app.Post("/v1/models/:id/decompose", h.Decompose)
	app.Delete("/v1/models/:id", h.DeleteModel)
	return app
}

// linearSeries is y = 2 + 3*x + 0.5*t/n on daily timestamps
func linearSeries(n int) models.SeriesData {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	data := models.SeriesData{Features: map[string][]float64{"x": make([]float64, n)}}
	for i := 0; i < n; i++ {
		x := float64(i%7) / 7
		data.Time = append(data.Time, start.AddDate(0, 0, i).Format("2006-01-02"))
		data.Features["x"][i] = x
		data.Y = append(data.Y, 2+3*x+0.5*float64(i)/float64(n))
	}
	return data
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func fitBody() map[string]interface{} {
	return map[string]interface{}{
		"model": map[string]interface{}{
			"type": "add",
			"terms": []interface{}{
				map[string]interface{}{"type": "trend", "n_changepoints": 0},
				map[string]interface{}{"type": "regressor", "on": []string{"x"}},
			},
		},
		"data": linearSeries(90),
	}
}

func TestModelRoutes_Lifecycle(t *testing.T) {
	app := newTestApp()

	resp, body := doJSON(t, app, "POST", "/v1/models", fitBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var fitted models.ModelResponse
	require.NoError(t, json.Unmarshal(body, &fitted))
	assert.NotEmpty(t, fitted.ID)
	assert.Equal(t, "map", fitted.Trace)
	assert.Len(t, fitted.Components, 2)

	resp, body = doJSON(t, app, "GET", "/v1/models", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list models.ModelListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Models, 1)
	assert.Equal(t, fitted.ID, list.Models[0].ID)

	resp, _ = doJSON(t, app, "GET", "/v1/models/"+fitted.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	future := linearSeries(100)
	future.Y = nil
	resp, body = doJSON(t, app, "POST", "/v1/models/"+fitted.ID+"/predict", models.PredictRequest{Data: future})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var pred models.PredictResponse
	require.NoError(t, json.Unmarshal(body, &pred))
	assert.Len(t, pred.YHat, 100)
	assert.Equal(t, fitted.ID, pred.ModelID)

	resp, body = doJSON(t, app, "POST", "/v1/models/"+fitted.ID+"/decompose", models.PredictRequest{Data: future})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var dec models.DecomposeResponse
	require.NoError(t, json.Unmarshal(body, &dec))
	assert.Len(t, dec.Components, 2)

	resp, _ = doJSON(t, app, "DELETE", "/v1/models/"+fitted.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, app, "GET", "/v1/models/"+fitted.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, services.CodeModelNotFound, errResp.Error.Code)
}

func TestModelRoutes_Errors(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		raw    string
		status int
		code   string
	}{
		{
			name:   "malformed json",
			method: "POST",
			path:   "/v1/models",
			raw:    "{",
			status: fiber.StatusBadRequest,
			code:   "INVALID_JSON",
		},
		{
			name:   "unknown component",
			method: "POST",
			path:   "/v1/models",
			body: map[string]interface{}{
				"model": map[string]interface{}{"type": "arima"},
				"data":  linearSeries(10),
			},
			status: fiber.StatusBadRequest,
			code:   services.CodeInvalidModel,
		},
		{
			name:   "missing data",
			method: "POST",
			path:   "/v1/models",
			body: map[string]interface{}{
				"model": map[string]interface{}{"type": "trend"},
			},
			status: fiber.StatusBadRequest,
			code:   services.CodeInvalidRequest,
		},
		{
			name:   "duplicate component",
			method: "POST",
			path:   "/v1/models",
			body: map[string]interface{}{
				"model": map[string]interface{}{
					"type":  "add",
					"terms": []interface{}{map[string]interface{}{"type": "constant"}, map[string]interface{}{"type": "constant"}},
				},
				"data": linearSeries(10),
			},
			status: fiber.StatusBadRequest,
			code:   services.CodeDuplicateComponent,
		},
		{
			name:   "predict unknown model",
			method: "POST",
			path:   "/v1/models/nope/predict",
			body:   models.PredictRequest{Data: linearSeries(5)},
			status: fiber.StatusNotFound,
			code:   services.CodeModelNotFound,
		},
		{
			name:   "delete unknown model",
			method: "DELETE",
			path:   "/v1/models/nope",
			status: fiber.StatusNotFound,
			code:   services.CodeModelNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			var body []byte
			if tt.raw != "" {
				req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.raw))
				req.Header.Set("Content-Type", "application/json")
				r, err := app.Test(req)
				require.NoError(t, err)
				resp = r
				body, _ = io.ReadAll(r.Body)
			} else {
				resp, body = doJSON(t, app, tt.method, tt.path, tt.body)
			}

			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.code, errResp.Error.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		services.CodeInvalidRequest:     fiber.StatusBadRequest,
		services.CodeInvalidData:        fiber.StatusBadRequest,
		services.CodeDuplicateComponent: fiber.StatusBadRequest,
		services.CodeModelNotFound:      fiber.StatusNotFound,
		services.CodeFitCancelled:       fiber.StatusRequestTimeout,
		services.CodeFitFailed:          fiber.StatusInternalServerError,
		"SOMETHING_ELSE":                fiber.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), fmt.Sprintf("code %s", code))
	}
}
