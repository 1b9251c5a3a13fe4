package types

import "fmt"

// GatewayErrorKind classifies gateway failures.
type GatewayErrorKind int

const (
	ErrConfig GatewayErrorKind = iota
	ErrConnection
	ErrRejected
	ErrProtocol
	ErrConversion
	ErrRateLimited
)

func (k GatewayErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "config error"
	case ErrConnection:
		return "connection error"
	case ErrRejected:
		return "rejected"
	case ErrProtocol:
		return "protocol violation"
	case ErrConversion:
		return "conversion infeasible"
	case ErrRateLimited:
		return "rate limited"
	default:
		return "unknown gateway error"
	}
}

// GatewayError is the typed error used across the gateway layer.
type GatewayError struct {
	Kind    GatewayErrorKind
	Message string
	Wrapped error
}

func (e *GatewayError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Wrapped }

// NewGatewayError builds a GatewayError wrapping an optional cause.
func NewGatewayError(kind GatewayErrorKind, message string, wrapped error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Wrapped: wrapped}
}
