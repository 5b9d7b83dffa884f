package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    CodeFitFailed,
		Message: "inference failed",
	}

	if err.Error() != "inference failed" {
		t.Errorf("Expected 'inference failed', got '%s'", err.Error())
	}
}

func TestNewServiceError(t *testing.T) {
	err := NewServiceError(CodeInvalidModel, "unknown component type")

	if err.Code != CodeInvalidModel {
		t.Errorf("Expected code '%s', got '%s'", CodeInvalidModel, err.Code)
	}
	if err.Details != nil {
		t.Errorf("Expected nil details, got %v", err.Details)
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{"model_id": "abc"}
	err := NewServiceErrorWithDetails(CodeModelNotFound, "model abc not found", details)

	if err.Details["model_id"] != "abc" {
		t.Errorf("Expected model_id 'abc', got '%v'", err.Details["model_id"])
	}
}

func TestServiceError_JSONMarshal(t *testing.T) {
	err := NewServiceErrorWithDetails(CodeFitFailed, "inference failed", map[string]interface{}{
		"error": "objective is not finite",
	})

	data, mErr := json.Marshal(err)
	if mErr != nil {
		t.Fatalf("Failed to marshal: %v", mErr)
	}

	var decoded map[string]interface{}
	if uErr := json.Unmarshal(data, &decoded); uErr != nil {
		t.Fatalf("Failed to unmarshal: %v", uErr)
	}
	if decoded["code"] != CodeFitFailed {
		t.Errorf("Expected code '%s', got '%v'", CodeFitFailed, decoded["code"])
	}
}

func TestServiceError_JSONMarshalOmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(NewServiceError(CodeInvalidData, "no rows"))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "details") {
		t.Errorf("Expected details to be omitted, got %s", data)
	}
}

func TestServiceError_AsErrorInterface(t *testing.T) {
	var err error = NewServiceError(CodeModelNotFound, "gone")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatal("Expected errors.As to find the ServiceError")
	}
	if svcErr.Code != CodeModelNotFound {
		t.Errorf("Expected code '%s', got '%s'", CodeModelNotFound, svcErr.Code)
	}
}

func TestRequestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "fiber error keeps its message",
			err:     &fiber.Error{Code: fiber.StatusBadRequest, Message: "data.t must contain at least one timestamp"},
			message: "data.t must contain at least one timestamp",
		},
		{
			name:    "plain error",
			err:     errors.New("bad input"),
			message: "bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := requestError(tt.err)
			if got.Code != CodeInvalidRequest {
				t.Errorf("Expected code '%s', got '%s'", CodeInvalidRequest, got.Code)
			}
			if got.Message != tt.message {
				t.Errorf("Expected message '%s', got '%s'", tt.message, got.Message)
			}
		})
	}
}
