package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorCode classifies a failed API call.
type ErrorCode string

const (
	// ErrCodeNetwork covers connection failures: refused, DNS, reset.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeTimeout covers deadline expiry.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled means the caller gave up on the request.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeMalformed means the body was not the documented envelope.
	ErrCodeMalformed ErrorCode = "malformed_response"
	// ErrCodeRejected means the envelope arrived with success:false.
	ErrCodeRejected ErrorCode = "rejected"
	// ErrCodeStatus means the server answered with an HTTP error status.
	ErrCodeStatus ErrorCode = "http_status"
	// ErrCodeTokenExpired means the configured bearer token is past its exp claim.
	ErrCodeTokenExpired ErrorCode = "token_expired"
)

// Error is returned by every Client method on failure.
type Error struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// Message returns the human-readable text to show for err. API-supplied
// messages are preferred over transport details.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

// mapTransportError translates errors from http.Client.Do and the rate
// limiter into typed *Error values.
func mapTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(ErrCodeCanceled, "request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrCodeTimeout, "request timed out", err)
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return newError(ErrCodeNetwork, "sports-events API unreachable", err)
	}

	return newError(ErrCodeNetwork, "request failed", err)
}
