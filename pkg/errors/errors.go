package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error codes
const (
	CodeAppError            = "APP_ERROR"
	CodeAPIError            = "API_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeTimeout             = "TIMEOUT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeCache               = "CACHE_ERROR"
	CodeLifetimeUnavailable = "LIFETIME_UNAVAILABLE"
	CodeConfig              = "CONFIG_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// APIError is an upstream (YouTube Data API) failure. StatusCode carries the
// upstream HTTP status so callers can tell quota problems from transient ones.
type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

// IsQuota reports whether the upstream rejected the call for quota or permission reasons.
func (e *APIError) IsQuota() bool {
	return IsQuotaStatus(e.StatusCode)
}

func IsQuotaStatus(status int) bool {
	return status == 403 || status == 429
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type NotFoundError struct {
	*AppError
	Resource string
}

func NewNotFoundError(message, resource string) *NotFoundError {
	return &NotFoundError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeNotFound,
			StatusCode: 404,
			Context: map[string]any{
				"resource": resource,
			},
		},
		Resource: resource,
	}
}

// TimeoutError means the request-level deadline passed at a checkpoint or
// an upstream call timed out.
type TimeoutError struct {
	*AppError
	Stage string
}

func NewTimeoutError(message, stage string) *TimeoutError {
	return &TimeoutError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeTimeout,
			StatusCode: 504,
			Context: map[string]any{
				"stage": stage,
			},
		},
		Stage: stage,
	}
}

type RateLimitError struct {
	*AppError
	RetryAfter time.Duration
}

func NewRateLimitError(message string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeRateLimited,
			StatusCode: 429,
			Context: map[string]any{
				"retry_after_ms": retryAfter.Milliseconds(),
			},
		},
		RetryAfter: retryAfter,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type LifetimeUnavailableError struct {
	*AppError
	ChannelID string
}

func NewLifetimeUnavailableError(channelID string) *LifetimeUnavailableError {
	return &LifetimeUnavailableError{
		AppError: &AppError{
			Message:    "Channel creation date not available.",
			Code:       CodeLifetimeUnavailable,
			StatusCode: 502,
			Context: map[string]any{
				"channel_id": channelID,
			},
		},
		ChannelID: channelID,
	}
}

// ConfigError is a server misconfiguration surfaced per request.
type ConfigError struct {
	*AppError
	Key string
}

func NewConfigError(message, key string) *ConfigError {
	return &ConfigError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeConfig,
			StatusCode: 500,
			Context: map[string]any{
				"key": key,
			},
		},
		Key: key,
	}
}

type userMessager interface {
	userMessage() string
}

func (e *AppError) userMessage() string {
	return e.Message
}

// UserMessage returns the message of the first application error in err's
// chain, without its wrapped causes.
func UserMessage(err error) (string, bool) {
	var target userMessager
	if stderrors.As(err, &target) {
		return target.userMessage(), true
	}
	return "", false
}

// As and Is mirror the standard library helpers.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
