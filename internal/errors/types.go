// Package errors classifies failures for retry and graceful-degradation
// decisions, and provides a generic retry combinator driven by an explicit
// policy value.
package errors

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError marks a failure that is safe to retry.
type TransientError struct {
	Err        error
	StatusCode int // HTTP status code if applicable
	Message    string
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "transient error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that must not be retried. Auth is set for
// authentication/authorization rejections (401/403), which callers treat as
// fatal rather than degradable.
type PermanentError struct {
	Err        error
	StatusCode int
	Auth       bool
	Message    string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "permanent error: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

// DegradedError marks a failure the caller absorbed: the operation did not
// complete, but the request can continue with reduced guarantees. Used by the
// decision emitter when persistence fails non-fatally.
type DegradedError struct {
	Err     error
	Message string
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "degraded: " + e.Err.Error()
}

func (e *DegradedError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanentError wraps err as non-retryable.
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// NewAuthError wraps err as a fatal authentication/authorization failure.
func NewAuthError(err error, statusCode int) *PermanentError {
	return &PermanentError{Err: err, StatusCode: statusCode, Auth: true}
}

// NewDegradedError wraps err as absorbed-but-degraded.
func NewDegradedError(err error, message string) *DegradedError {
	return &DegradedError{Err: err, Message: message}
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	return isNetworkError(err) || isSyscallError(err)
}

// IsAuthError reports whether err is an authentication/authorization failure.
// These are never absorbed by graceful degradation.
func IsAuthError(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent) && permanent.Auth
}

// IsDegraded reports whether err was absorbed with reduced guarantees.
func IsDegraded(err error) bool {
	var degraded *DegradedError
	return errors.As(err, &degraded)
}

// ClassifyHTTPStatus maps an upstream HTTP status to the retry taxonomy.
func ClassifyHTTPStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthError(err, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return &TransientError{Err: err, StatusCode: status}
	default:
		return &PermanentError{Err: err, StatusCode: status}
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"deadline exceeded",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isSyscallError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}
