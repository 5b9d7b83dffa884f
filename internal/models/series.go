package models

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/frame"
)

// Validate checks that every column has one value per timestamp
func (s *SeriesData) Validate(requireTarget bool) error {
	n := len(s.Time)
	if n == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "data.t must contain at least one timestamp",
		}
	}

	if requireTarget && len(s.Y) != n {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("data.y has %d values for %d timestamps", len(s.Y), n),
		}
	}

	for name, col := range s.Features {
		if len(col) != n {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("feature %q has %d values for %d timestamps", name, len(col), n),
			}
		}
	}

	for name, col := range s.Labels {
		if len(col) != n {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("label %q has %d values for %d timestamps", name, len(col), n),
			}
		}
	}

	return nil
}

// ToFrame converts the columns into a frame. Columns are added in name
// order so the frame layout does not depend on map iteration.
func (s *SeriesData) ToFrame() (*frame.Frame, error) {
	times, err := frame.ParseTimes(s.Time, "")
	if err != nil {
		return nil, &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "data.t: " + err.Error(),
		}
	}

	f := frame.New(times)
	for _, name := range sortedKeys(s.Features) {
		if err := f.AddColumn(name, s.Features[name]); err != nil {
			return nil, &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Error()}
		}
	}
	for _, name := range sortedKeys(s.Labels) {
		if err := f.AddLabels(name, s.Labels[name]); err != nil {
			return nil, &fiber.Error{Code: fiber.StatusBadRequest, Message: err.Error()}
		}
	}
	return f, nil
}

// Validate validates the fit request
func (r *FitRequest) Validate() error {
	if r.Model.Type == "" {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "model.type is required",
		}
	}

	switch r.Options.Method {
	case "", "map", "sample":
	default:
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "options.method must be 'map' or 'sample'",
		}
	}

	if r.Options.Draws < 0 || r.Options.MaxIterations < 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "options.draws and options.max_iterations cannot be negative",
		}
	}

	return r.Data.Validate(true)
}

// Validate validates the predict request
func (r *PredictRequest) Validate() error {
	for _, p := range r.Percentiles {
		if p < 0 || p > 100 {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("percentile %g outside [0, 100]", p),
			}
		}
	}
	return r.Data.Validate(false)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
