package dto

import (
	"time"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
)

// APIResponse is the envelope for all non-streaming endpoints.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO is the wire shape of a failed request.
type ErrorDTO struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PaginationResponse is the metadata attached to list endpoints.
type PaginationResponse struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// ListResponse pairs a page of items with its pagination metadata.
type ListResponse struct {
	Items      interface{}        `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// SuccessResponse wraps data in the standard envelope.
func SuccessResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse maps any error to the standard envelope, normalizing
// unstructured errors to internal_error without leaking their text.
func ErrorResponse(err error, requestID string) *APIResponse {
	appErr := apperrors.From(err)
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:     appErr.Code,
			Message:  appErr.Message,
			Metadata: appErr.Metadata,
		},
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
