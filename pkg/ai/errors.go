package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindCredentials   ErrorKind = "credentials"
	KindNotRegistered ErrorKind = "not_registered"
	KindTransport     ErrorKind = "transport"
	KindRateLimited   ErrorKind = "rate_limited"
	KindUpstream      ErrorKind = "upstream"
	KindEmptyResponse ErrorKind = "empty_response"
)

// ErrMissingAPIKey is wrapped by providers constructed without a credential.
var ErrMissingAPIKey = errors.New("api key not configured")

// ProviderError is returned by Provider.Analyze on any failure.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, kind ErrorKind, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}

// IsKind reports whether err carries a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind == kind
	}
	return false
}

// KindOf returns the ProviderError kind of err, or KindTransport for foreign errors.
func KindOf(err error) ErrorKind {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind
	}
	return KindTransport
}

// Attempt records one provider invocation that failed.
type Attempt struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
}

// ExhaustedError is returned when every configured provider failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", attempt.Provider, attempt.Err))
	}
	return "all providers failed: [" + strings.Join(parts, "; ") + "]"
}

// Unwrap exposes the individual attempt errors to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		errs = append(errs, attempt.Err)
	}
	return errs
}
