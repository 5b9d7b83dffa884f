package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Models    int    `json:"models"`
}

// TraceStats summarises the inference run of a fitted model
type TraceStats struct {
	Status       string  `json:"status"`
	Iterations   int     `json:"iterations"`
	Evaluations  int     `json:"evaluations"`
	LogPosterior float64 `json:"log_posterior"`
}

// ModelResponse describes a fitted model
type ModelResponse struct {
	ID            string     `json:"id"`
	Model         string     `json:"model"`
	Components    []string   `json:"components"`
	Method        string     `json:"method"`
	Trace         string     `json:"trace"`
	Draws         int        `json:"draws"`
	Parameters    []string   `json:"parameters"`
	Rows          int        `json:"rows"`
	FitDurationMs int64      `json:"fit_duration_ms"`
	Stats         TraceStats `json:"stats"`
	CreatedAt     string     `json:"created_at"`
	ExpiresAt     string     `json:"expires_at,omitempty"`
}

// ModelListResponse represents list models response
type ModelListResponse struct {
	Models []ModelResponse `json:"models"`
}

// PredictResponse holds the mean prediction and requested percentiles
type PredictResponse struct {
	ModelID     string               `json:"model_id"`
	Time        []string             `json:"t"`
	YHat        []float64            `json:"yhat"`
	Percentiles map[string][]float64 `json:"percentiles,omitempty"`
}

// ComponentSeries is one structural component's contribution
type ComponentSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// DecomposeResponse holds every leaf's mean contribution in scaled units
type DecomposeResponse struct {
	ModelID    string            `json:"model_id"`
	Time       []string          `json:"t"`
	Components []ComponentSeries `json:"components"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
