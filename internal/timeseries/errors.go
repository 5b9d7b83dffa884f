package timeseries

import "errors"

var (
	// ErrValidation is returned for malformed inputs: non-monotonic time,
	// mismatched lengths, missing feature or pool columns, bad options
	ErrValidation = errors.New("validation error")
	// ErrNotFitted is returned when predicting before Fit
	ErrNotFitted = errors.New("model is not fitted")
	// ErrAlreadyFitted is returned by a second call to Fit
	ErrAlreadyFitted = errors.New("model is already fitted")
	// ErrShapeMismatch is returned when composite children predict arrays
	// that cannot be combined
	ErrShapeMismatch = errors.New("prediction shape mismatch")
)
