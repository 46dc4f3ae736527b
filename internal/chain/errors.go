package chain

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for RPC calls.
type ErrorCategory string

const (
	// ErrorTransport covers dial failures, resets and client-side timeouts.
	ErrorTransport ErrorCategory = "transport"
	// ErrorStatus covers unexpected non-2xx responses other than 404.
	ErrorStatus ErrorCategory = "status"
	// ErrorDecode covers bodies that are not the expected JSON.
	ErrorDecode ErrorCategory = "decode"
)

// GatewayError wraps RPC failures. A transaction the chain does not know about
// is not a GatewayError: it is reported as sentinel.ErrNotFound.
type GatewayError struct {
	Category   ErrorCategory
	Endpoint   string
	StatusCode int
	Underlying error
	Retryable  bool
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chain gateway %s [%s]: status %d", e.Endpoint, e.Category, e.StatusCode)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("chain gateway %s [%s]: %v", e.Endpoint, e.Category, e.Underlying)
	}
	return fmt.Sprintf("chain gateway %s [%s]", e.Endpoint, e.Category)
}

func (e *GatewayError) Unwrap() error {
	return e.Underlying
}

func newGatewayError(category ErrorCategory, endpoint string, status int, underlying error) *GatewayError {
	return &GatewayError{
		Category:   category,
		Endpoint:   endpoint,
		StatusCode: status,
		Underlying: underlying,
		// every gateway failure is transient from the resolver's point of view
		Retryable: true,
	}
}

// IsGatewayError reports whether err is (or wraps) a GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}
