// Package dto holds request and response bodies of the HTTP API.
package dto

import (
	"retailhub/internal/core/apperror"
)

// ErrorBody is the error part of a failed item in a multi-item response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorBody renders err for a client. Unknown errors become INTERNAL.
func NewErrorBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return &ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}
	return &ErrorBody{Code: apperror.CodeInternal, Message: "Internal server error"}
}

// PageResponse is one keyset page.
type PageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// KeysRequest narrows a reconciliation run. Empty means every key of the store.
type KeysRequest struct {
	Keys []string `json:"keys"`
}
