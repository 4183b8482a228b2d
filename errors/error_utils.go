package errors

import (
	"context"
	"errors"
	"strings"
)

// IsRetryableError determines if an error is transient and the operation should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_ERROR,
			ERR_SERVICE_UNAVAILABLE,
			ERR_STORAGE_UNAVAILABLE:
			return true
		}
	}

	return false
}

// IsNetworkError determines if an error is network related, either by code or by the
// usual transport error strings.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_ERROR,
			ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_INVALID_RESPONSE:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, s := range []string{"connection refused", "connection reset", "dial tcp", "no such host", "broken pipe", "timeout"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tErr *Error
	if As(err, &tErr) && tErr.Code() == ERR_CONTEXT_CANCELED {
		return true
	}

	return false
}

// decode errors are left out: a stored record that fails to decode is a node failure.
var validationErrors = []error{
	ErrTxMalformed,
	ErrTxInvalid,
	ErrTxUnknownOrSpentInput,
	ErrTxNegativeFee,
	ErrKeyAlreadyExists,
}

// IsValidationError reports whether err is a rejection of the submitted transaction
// rather than a failure of the node itself.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	for _, target := range validationErrors {
		if Is(err, target) {
			return true
		}
	}

	return false
}
