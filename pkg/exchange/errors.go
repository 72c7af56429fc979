package exchange

import (
	"errors"
	"fmt"
)

// APIError represents an upstream transport, auth or protocol failure.
// Generally retryable by the caller on its next poll; never retried here.
type APIError struct {
	Exchange string // adapter name, lowercased
	Op       string // capability that failed, e.g. "getTicker"
	Err      error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: api error", e.Exchange, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ValidationError represents malformed caller input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid order: " + e.Reason }

// NotFoundError indicates a referenced id does not exist.
type NotFoundError struct {
	Resource string // "order", "holding", ...
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// UnsupportedError indicates the adapter lacks an optional capability.
type UnsupportedError struct {
	Exchange string
	Op       string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Exchange, e.Op)
}

// ConfigError indicates an unresolvable exchange name or bad configuration
// at construction time. Fatal; surfaces before any polling starts.
type ConfigError struct {
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("exchange config %q: %v", e.Name, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsAPIError reports whether err is an upstream exchange failure.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsValidation reports whether err stems from malformed caller input.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err refers to a missing resource.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsUnsupported reports whether err marks a missing adapter capability.
func IsUnsupported(err error) bool {
	var target *UnsupportedError
	return errors.As(err, &target)
}
