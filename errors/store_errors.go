// Package errors defines the standardized error codes the RPC surface
// reports to clients.
package errors

import (
	goerrors "errors"

	"blockdb/heightkey"
	"blockdb/jsonx"
	"blockdb/store"
)

// StoreErrorCode represents standardized error codes for store operations.
type StoreErrorCode string

const (
	// General errors
	ErrCodeInternal StoreErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest StoreErrorCode = "invalid_request"
	ErrCodeInvalidBlock   StoreErrorCode = "invalid_block"
	ErrCodeHeightOverflow StoreErrorCode = "height_overflow"

	// Lookup errors
	ErrCodeBlockNotFound StoreErrorCode = "block_not_found"

	// System errors
	ErrCodeRateLimited StoreErrorCode = "rate_limited"
)

// StoreError is the JSON error shape returned to RPC clients.
type StoreError struct {
	Code    StoreErrorCode `json:"code"`
	Message string         `json:"message"`
}

func (e *StoreError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewStoreError creates a StoreError with the given code and message.
func NewStoreError(code StoreErrorCode, message string) *StoreError {
	return &StoreError{Code: code, Message: message}
}

// FromErr maps a store-layer error to its client-facing code.
func FromErr(err error) *StoreError {
	switch {
	case goerrors.Is(err, store.ErrNotFound):
		return NewStoreError(ErrCodeBlockNotFound, err.Error())
	case goerrors.Is(err, store.ErrInvalidBlock):
		return NewStoreError(ErrCodeInvalidBlock, err.Error())
	case goerrors.Is(err, heightkey.ErrOverflow):
		return NewStoreError(ErrCodeHeightOverflow, err.Error())
	default:
		return NewStoreError(ErrCodeInternal, err.Error())
	}
}

// JSON renders the error as its wire form.
func (e *StoreError) JSON() []byte {
	data, err := jsonx.Marshal(e)
	if err != nil {
		return []byte(`{"code":"internal_error","message":"failed to encode error"}`)
	}
	return data
}
