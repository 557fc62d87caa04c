package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// ErrNotFound indicates a lookup for an unknown identifier, such as an agent ID.
	ErrNotFound = errors.New("not found")

	// ErrEmptyPrompt indicates the request text is empty after trimming whitespace.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrUnknownCategory indicates a category outside the closed enumeration.
	// Reaching it means the classifier and composer disagree.
	ErrUnknownCategory = errors.New("unknown workflow category")

	// ErrValidation indicates a malformed request.
	ErrValidation = errors.New("validation failed")

	// ErrCycleDetected indicates a workflow stage depends on itself.
	ErrCycleDetected = errors.New("workflow: cycle detected, graph is not acyclic")

	// ErrRateLimited indicates the caller exceeded its submission allowance.
	ErrRateLimited = errors.New("submission rate limit exceeded")
)

// NotFoundError names the kind and identifier that could not be resolved.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnknownCategoryError carries the category that had no workflow template.
type UnknownCategoryError struct {
	Category Category
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown workflow category: %q", string(e.Category))
}

func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}

// ValidationError describes which field of a request was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound checks if the error indicates an unknown identifier.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEmptyPrompt checks if the error indicates a blank prompt.
func IsEmptyPrompt(err error) bool {
	return errors.Is(err, ErrEmptyPrompt)
}

// IsValidation checks if the error indicates a malformed request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ErrorResponse defines the standard JSON error model returned by the HTTP API.
// It avoids exposing internal details while providing a stable machine-readable code.
type ErrorResponse struct {
	Code    string `json:"code"`               // Machine-readable error code (e.g., EMPTY_PROMPT)
	Message string `json:"message"`            // Human-readable message (safe for logs)
	TraceID string `json:"trace_id,omitempty"` // Optional trace/correlation ID
}

// Error codes used in ErrorResponse.
const (
	CodeEmptyPrompt      = "EMPTY_PROMPT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnknownCategory  = "UNKNOWN_CATEGORY"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL"
)

// ErrorCode maps an error to its ErrorResponse code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		return CodeEmptyPrompt
	case errors.Is(err, ErrValidation):
		return CodeValidationFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnknownCategory):
		return CodeUnknownCategory
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
