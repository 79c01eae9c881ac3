package response

import (
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/pagination"
)

// Response represents the standard API response envelope
type Response struct {
	Success    bool                  `json:"success"`
	Data       interface{}           `json:"data,omitempty"`
	Message    string                `json:"message,omitempty"`
	Error      string                `json:"error,omitempty"`
	Details    []apperror.FieldError `json:"details,omitempty"`
	Pagination *pagination.Meta      `json:"pagination,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// SuccessWithMessage returns a success response carrying a human readable message
func SuccessWithMessage(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// Paginated returns a success response for a single page of a list
func Paginated(data interface{}, meta pagination.Meta) Response {
	return Response{
		Success:    true,
		Data:       data,
		Pagination: &meta,
	}
}

// Error returns a standard error response wrapping the error message
func Error(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}

// ValidationError returns an error response with per-field details
func ValidationError(err string, details []apperror.FieldError) Response {
	return Response{
		Success: false,
		Error:   err,
		Details: details,
	}
}
