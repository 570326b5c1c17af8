package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidParams wraps every rejected pipeline parameter.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvalidSymbol is returned for an empty, malformed or duplicated pair leg.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrNoData means no aligned series exists yet.
	ErrNoData = errors.New("no data")

	// ErrConnectionFailed marks a failed stream dial.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConfigNotFound is returned when the config file is missing.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrFeedStopped is returned by feed operations issued before the feed runs.
	ErrFeedStopped = errors.New("feed not running")
)

// ParamsError names the parameter that failed validation.
// It always unwraps to ErrInvalidParams.
type ParamsError struct {
	Field  string // e.g. "window", "pipeline.method"
	Reason string
}

// NewParamsError formats reason with args.
func NewParamsError(field, format string, args ...any) *ParamsError {
	return &ParamsError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ParamsError) Error() string {
	return "invalid parameters [" + e.Field + "]: " + e.Reason
}

func (e *ParamsError) Unwrap() error { return ErrInvalidParams }

// ParamsField returns the offending field when err carries a ParamsError.
func ParamsField(err error) (string, bool) {
	var pe *ParamsError
	if errors.As(err, &pe) {
		return pe.Field, true
	}
	return "", false
}

// RetriableError is implemented by failures the Binance clients may retry.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable reports whether any error in err's chain asks to be retried.
func IsRetriable(err error) bool {
	var re RetriableError
	return errors.As(err, &re) && re.IsRetriable()
}

// NetworkError is a failed exchange call ("dial", "read", "backfill").
// StatusCode is set for HTTP replies.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
	Retriable  bool
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool { return e.Retriable }

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps a transient transport failure.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError wraps a failure that will not change on retry,
// such as a malformed body.
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// NewStatusError classifies a non-200 reply. 5xx and 429 are retriable,
// every other 4xx is not.
func NewStatusError(op string, code int, body string) *NetworkError {
	retriable := code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	return &NetworkError{Op: op, StatusCode: code, Err: errors.New(body), Retriable: retriable}
}

// ConfigError points at the config key that failed to load or validate.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
