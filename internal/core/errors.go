// Package core provides the shared types and error taxonomy for the gateway.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorKind is the stable internal classification of an upstream failure.
// Adapters translate each provider's own error vocabulary into this set;
// anything unmapped falls through to KindUnknown with the upstream message
// preserved verbatim.
type ErrorKind string

const (
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindAuth                  ErrorKind = "auth_error"
	KindPermission            ErrorKind = "permission_error"
	KindRateLimited           ErrorKind = "rate_limited"
	KindBilling               ErrorKind = "billing_error"
	KindEmptyUpstreamResponse ErrorKind = "empty_upstream_response"
	KindUnknown               ErrorKind = "unknown"
)

// ErrOrchestrationTimeout is returned when the image fallback chain's outer
// deadline fires before any adapter committed a result.
var ErrOrchestrationTimeout = errors.New("image orchestration deadline exceeded")

// UpstreamError carries a normalized provider failure across the gateway.
// HTTPStatus is the status the upstream answered with (0 when the failure
// happened before or without an upstream response).
type UpstreamError struct {
	Kind       ErrorKind
	HTTPStatus int
	Message    string
	Provider   string
	// Details holds the raw upstream error body for the response's
	// "details" field; never logged as-is.
	Details json.RawMessage
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status the gateway should answer with.
// The upstream's own status wins when present; otherwise the kind decides.
func (e *UpstreamError) StatusCode() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindBilling:
		return http.StatusPaymentRequired
	case KindEmptyUpstreamResponse:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidRequestError reports a request rejected before any network call.
func NewInvalidRequestError(message string) *UpstreamError {
	return &UpstreamError{
		Kind:       KindInvalidRequest,
		HTTPStatus: http.StatusBadRequest,
		Message:    message,
	}
}

// NewEmptyResponseError reports a 2xx upstream body the adapter could not
// extract a completion from. Not retried.
func NewEmptyResponseError(provider string) *UpstreamError {
	return &UpstreamError{
		Kind:       KindEmptyUpstreamResponse,
		HTTPStatus: http.StatusInternalServerError,
		Message:    "invalid response from " + provider + " API",
		Provider:   provider,
	}
}

// NewTransportError wraps a failure to reach the provider at all.
func NewTransportError(provider string, err error) *UpstreamError {
	return &UpstreamError{
		Kind:       KindUnknown,
		HTTPStatus: http.StatusInternalServerError,
		Message:    "failed to reach " + provider + " API: " + err.Error(),
		Provider:   provider,
		Err:        err,
	}
}

// ParseUpstreamError builds an UpstreamError from a non-2xx provider body.
// The four providers disagree on where the error type lives
// (error.type for OpenAI/Anthropic, error.status for Gemini, a bare "error"
// string for Ollama), so the body is probed with gjson instead of one decode
// struct per shape. kindForType is the adapter's mapping table; types absent
// from it classify by HTTP status and finally KindUnknown.
func ParseUpstreamError(provider string, statusCode int, body []byte, kindForType map[string]ErrorKind) *UpstreamError {
	upstreamType := gjson.GetBytes(body, "error.type").String()
	if upstreamType == "" {
		upstreamType = gjson.GetBytes(body, "error.status").String()
	}

	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		// Ollama answers {"error": "..."}.
		if s := gjson.GetBytes(body, "error").String(); s != "" {
			message = s
		} else {
			message = string(body)
		}
	}

	kind, ok := kindForType[upstreamType]
	if !ok {
		kind = kindForStatus(statusCode)
	}

	e := &UpstreamError{
		Kind:       kind,
		HTTPStatus: statusCode,
		Message:    message,
		Provider:   provider,
	}
	if json.Valid(body) {
		e.Details = json.RawMessage(body)
	}
	return e
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusPaymentRequired:
		return KindBilling
	case http.StatusBadRequest:
		return KindInvalidRequest
	default:
		return KindUnknown
	}
}
