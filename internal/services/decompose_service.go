package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/frame"
	"github.com/soltixdb/decompose/internal/inference"
	"github.com/soltixdb/decompose/internal/likelihood"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/models"
	"github.com/soltixdb/decompose/internal/registry"
	"github.com/soltixdb/decompose/internal/scaler"
	"github.com/soltixdb/decompose/internal/timeseries"
)

// DecomposeService fits models and serves predictions from fitted ones
type DecomposeService struct {
	logger   *logging.Logger
	registry *registry.Registry
	metrics  *metrics.Metrics
	defaults config.InferenceConfig
}

// NewDecomposeService creates a new DecomposeService
func NewDecomposeService(
	logger *logging.Logger,
	reg *registry.Registry,
	m *metrics.Metrics,
	defaults config.InferenceConfig,
) *DecomposeService {
	return &DecomposeService{
		logger:   logger,
		registry: reg,
		metrics:  m,
		defaults: defaults,
	}
}

// FitConfig merges per-request options over the configured defaults
func (s *DecomposeService) FitConfig(opts models.FitOptions) (timeseries.FitConfig, string, error) {
	d := s.defaults
	method := firstNonEmpty(opts.Method, d.Method)

	lik, err := likelihood.New(firstNonEmpty(opts.Likelihood, d.Likelihood))
	if err != nil {
		return timeseries.FitConfig{}, "", err
	}

	inf := inference.DefaultOptions()
	inf.MaxIterations = d.MaxIterations
	if opts.MaxIterations > 0 {
		inf.MaxIterations = opts.MaxIterations
	}
	inf.Tolerance = d.Tolerance
	inf.GradientStep = d.GradientStep
	inf.Draws = d.Draws
	if opts.Draws > 0 {
		inf.Draws = opts.Draws
	}
	inf.Warmup = d.Warmup
	inf.StepSize = d.StepSize
	inf.Seed = d.Seed
	if opts.Seed != nil {
		inf.Seed = *opts.Seed
	}
	inf.Concurrent = d.Concurrent
	inf.Logger = s.logger

	return timeseries.FitConfig{
		XScaler:    scaler.Kind(firstNonEmpty(opts.XScaler, d.XScaler)),
		YScaler:    scaler.Kind(firstNonEmpty(opts.YScaler, d.YScaler)),
		Likelihood: lik,
		UseMCMC:    method == "sample",
		Inference:  inf,
	}, method, nil
}

// Fit builds the model tree, fits it and stores the result in the registry
func (s *DecomposeService) Fit(ctx context.Context, req *models.FitRequest) (*models.ModelResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, requestError(err)
	}

	root, err := timeseries.Build(req.Model)
	if err != nil {
		return nil, NewServiceError(CodeInvalidModel, err.Error())
	}

	X, err := req.Data.ToFrame()
	if err != nil {
		return nil, requestError(err)
	}

	cfg, method, err := s.FitConfig(req.Options)
	if err != nil {
		return nil, NewServiceError(CodeInvalidRequest, err.Error())
	}

	model := timeseries.NewModel(root)
	model.SetLogger(s.logger)

	start := time.Now()
	err = model.Fit(ctx, X, req.Data.Y, cfg)
	elapsed := time.Since(start)
	s.metrics.ObserveFit(method, X.Len(), elapsed, err)
	if err != nil {
		s.logger.Warn("Fit failed", "model", root.String(), "rows", X.Len(), "error", err)
		return nil, fitError(err)
	}

	entry := &registry.Entry{
		Model:       model,
		Spec:        req.Model,
		Method:      method,
		Rows:        X.Len(),
		FitDuration: elapsed,
	}
	id := s.registry.Put(entry)

	s.logger.Info("Model fitted",
		"model_id", id,
		"method", method,
		"rows", X.Len(),
		"duration_ms", elapsed.Milliseconds())

	return s.describe(entry), nil
}

// Get describes a fitted model
func (s *DecomposeService) Get(id string) (*models.ModelResponse, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.describe(entry), nil
}

// List describes every live model, newest first
func (s *DecomposeService) List() *models.ModelListResponse {
	entries := s.registry.List()
	out := &models.ModelListResponse{Models: make([]models.ModelResponse, 0, len(entries))}
	for _, e := range entries {
		out.Models = append(out.Models, *s.describe(e))
	}
	return out
}

// Delete drops a fitted model
func (s *DecomposeService) Delete(id string) error {
	if !s.registry.Delete(id) {
		return notFound(id)
	}
	s.logger.Info("Model deleted", "model_id", id)
	return nil
}

// Predict evaluates a fitted model on new rows. Without explicit
// percentiles, the configured defaults are used for sampled models.
func (s *DecomposeService) Predict(id string, req *models.PredictRequest) (*models.PredictResponse, error) {
	start := time.Now()
	resp, err := s.predict(id, req)
	s.metrics.ObservePredict("predict", time.Since(start), err)
	return resp, err
}

func (s *DecomposeService) predict(id string, req *models.PredictRequest) (*models.PredictResponse, error) {
	entry, X, err := s.prepare(id, req)
	if err != nil {
		return nil, err
	}

	percentiles := req.Percentiles
	if percentiles == nil && entry.Model.Trace().Kind() == inference.KindSamples {
		percentiles = s.defaults.Percentiles
	}

	pred, err := entry.Model.Predict(X, percentiles...)
	if err != nil {
		return nil, predictError(err)
	}

	return &models.PredictResponse{
		ModelID:     id,
		Time:        formatTimes(pred.Time),
		YHat:        pred.YHat,
		Percentiles: pred.Percentiles,
	}, nil
}

// Decompose returns every component's mean contribution on new rows
func (s *DecomposeService) Decompose(id string, req *models.PredictRequest) (*models.DecomposeResponse, error) {
	start := time.Now()
	resp, err := s.decompose(id, req)
	s.metrics.ObservePredict("decompose", time.Since(start), err)
	return resp, err
}

func (s *DecomposeService) decompose(id string, req *models.PredictRequest) (*models.DecomposeResponse, error) {
	entry, X, err := s.prepare(id, req)
	if err != nil {
		return nil, err
	}

	dec, err := entry.Model.Decompose(X)
	if err != nil {
		return nil, predictError(err)
	}

	out := &models.DecomposeResponse{
		ModelID:    id,
		Time:       formatTimes(dec.Time),
		Components: make([]models.ComponentSeries, len(dec.Components)),
	}
	for i, name := range dec.Components {
		out.Components[i] = models.ComponentSeries{Name: name, Values: dec.Values[name]}
	}
	return out, nil
}

func (s *DecomposeService) prepare(id string, req *models.PredictRequest) (*registry.Entry, *frame.Frame, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, requestError(err)
	}
	entry, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	X, err := req.Data.ToFrame()
	if err != nil {
		return nil, nil, requestError(err)
	}
	return entry, X, nil
}

func (s *DecomposeService) lookup(id string) (*registry.Entry, error) {
	entry, err := s.registry.Get(id)
	if err != nil {
		return nil, notFound(id)
	}
	return entry, nil
}

func (s *DecomposeService) describe(e *registry.Entry) *models.ModelResponse {
	tr := e.Model.Trace()
	leaves := e.Model.Leaves()
	components := make([]string, len(leaves))
	for i, leaf := range leaves {
		components[i] = leaf.Name()
	}

	resp := &models.ModelResponse{
		ID:            e.ID,
		Model:         e.Model.Root().String(),
		Components:    components,
		Method:        e.Method,
		Trace:         string(tr.Kind()),
		Draws:         tr.NumDraws(),
		Parameters:    tr.Names(),
		Rows:          e.Rows,
		FitDurationMs: e.FitDuration.Milliseconds(),
		Stats:         traceStats(tr),
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
	if exp := s.registry.ExpiresAt(e); !exp.IsZero() {
		resp.ExpiresAt = exp.Format(time.RFC3339)
	}
	return resp
}

func traceStats(tr inference.Trace) models.TraceStats {
	var st inference.Stats
	switch t := tr.(type) {
	case *inference.PointTrace:
		st = t.Stats
	case *inference.SampleTrace:
		if t.Mode != nil {
			st = t.Mode.Stats
		}
	}
	return models.TraceStats{
		Status:       st.Status,
		Iterations:   st.Iterations,
		Evaluations:  st.Evaluations,
		LogPosterior: st.LogPosterior,
	}
}

func fitError(err error) *ServiceError {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewServiceError(CodeFitCancelled, "fit cancelled: "+err.Error())
	case errors.Is(err, inference.ErrDuplicateVariable):
		return NewServiceError(CodeDuplicateComponent, err.Error())
	case errors.Is(err, timeseries.ErrValidation):
		return NewServiceError(CodeInvalidData, err.Error())
	default:
		return NewServiceErrorWithDetails(CodeFitFailed, "inference failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func predictError(err error) *ServiceError {
	if errors.Is(err, timeseries.ErrValidation) {
		return NewServiceError(CodeInvalidData, err.Error())
	}
	return NewServiceErrorWithDetails(CodePredictFailed, "prediction failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func notFound(id string) *ServiceError {
	return NewServiceErrorWithDetails(CodeModelNotFound, fmt.Sprintf("model %s not found", id), map[string]interface{}{
		"model_id": id,
	})
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(time.RFC3339)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
