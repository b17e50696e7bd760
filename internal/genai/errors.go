package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction is what the provider chain does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next model or provider.
	ActionFallback
	// ActionFail stops: the request itself is bad or was canceled.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError is a provider failure annotated with its HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

func (e *LLMError) Error() string {
	msg := string(e.Provider)
	if e.Model != "" {
		msg += "/" + e.Model
	}
	msg += ": " + e.Err.Error()
	if e.StatusCode > 0 {
		msg += " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return msg
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError annotates err with the provider, model and status code.
func WrapError(err error, provider Provider, model string, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider, Model: model}
}

// errNoUsableOutput marks a response the caller could not interpret, such as
// a classifier reply without a known label. Another model may do better.
var errNoUsableOutput = errors.New("no usable output")

// ClassifyError decides how the chain reacts to err:
//   - 429, 408, 409, 5xx, timeouts and network errors are retried;
//   - exhausted quotas, auth failures and unusable output fall back to the
//     next model, since another provider may still serve the request;
//   - cancellation and malformed requests fail.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}
	if errors.Is(err, errNoUsableOutput) {
		return ActionFallback
	}

	msg := strings.ToLower(err.Error())
	// Quota exhaustion arrives as a 429 on some providers, so it is checked first.
	if containsAny(msg, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(msg, "unavailable", "internal server error", "bad gateway", "gateway timeout",
		"overloaded", "capacity", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(msg, "timeout", "deadline", "connection", "eof"):
		return ActionRetry
	case containsAny(msg, "401", "403", "unauthorized", "unauthenticated", "forbidden", "permission denied", "api key"):
		return ActionFallback
	case containsAny(msg, "404", "not found"):
		return ActionFallback
	case containsAny(msg, "400", "422", "invalid", "bad request", "malformed", "unprocessable"):
		return ActionFail
	default:
		return ActionRetry
	}
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ActionRetry
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusNotFound:
		return ActionFallback
	case code >= 400 && code < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent reports whether the chain should stop on err.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

// errorStatus maps err to the status label of the LLM request metric.
func errorStatus(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch code := llmErr.StatusCode; {
		case code == http.StatusTooManyRequests:
			return "rate_limit"
		case code >= 500:
			return "server_error"
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return "auth_error"
		case code == http.StatusBadRequest:
			return "invalid_request"
		}
	}
	switch ClassifyError(err) {
	case ActionFallback:
		return "fallback_error"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
