package utils

import "fmt"

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func NewSSHError(err error) *APIError {
	return &APIError{
		Code:    1001,
		Message: "SSH connection error",
		Details: err.Error(),
	}
}

func NewClusterError(operation string, err error) *APIError {
	return &APIError{
		Code:    2001,
		Message: fmt.Sprintf("cluster operation failed: %s", operation),
		Details: err.Error(),
	}
}

func NewValidationError(field string, value interface{}) *APIError {
	return &APIError{
		Code:    3001,
		Message: fmt.Sprintf("invalid parameter: %s", field),
		Details: fmt.Sprintf("invalid value: %v", value),
	}
}

func NewConfigError(err error) *APIError {
	return &APIError{
		Code:    3002,
		Message: "configuration error",
		Details: err.Error(),
	}
}

func NewSystemError(err error) *APIError {
	return &APIError{
		Code:    5001,
		Message: "internal error",
		Details: err.Error(),
	}
}
