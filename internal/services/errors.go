// Package services provides the business logic layer between the HTTP
// handlers and the decomposition core: request conversion, model building,
// fitting, and lookup of fitted models.
package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Service error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidModel       = "INVALID_MODEL"
	CodeInvalidData        = "INVALID_DATA"
	CodeDuplicateComponent = "DUPLICATE_COMPONENT"
	CodeModelNotFound      = "MODEL_NOT_FOUND"
	CodeFitCancelled       = "FIT_CANCELLED"
	CodeFitFailed          = "FIT_FAILED"
	CodePredictFailed      = "PREDICT_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// requestError turns a request validation failure into an INVALID_REQUEST
func requestError(err error) *ServiceError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return NewServiceError(CodeInvalidRequest, fe.Message)
	}
	return NewServiceError(CodeInvalidRequest, err.Error())
}
