package agentpay

import "errors"

// ErrorKind classifies a client failure for programmatic handling.
type ErrorKind string

const (
	// NotInitialized indicates an operation was used before Init or after Destroy.
	NotInitialized ErrorKind = "not_initialized"
	// InvalidAdvice indicates the payment terms failed schema validation.
	InvalidAdvice ErrorKind = "invalid_advice"
	// InvalidAgentKey indicates the agent's public key PEM could not be parsed.
	InvalidAgentKey ErrorKind = "invalid_agent_key"
	// EncryptionFailed indicates a cryptographic operation failed before any network call.
	EncryptionFailed ErrorKind = "encryption_failed"
	// GatewayError indicates a network failure or non-2xx gateway response.
	GatewayError ErrorKind = "gateway_error"
	// VerificationFailed indicates a status check could not be completed.
	VerificationFailed ErrorKind = "verification_failed"
)

// Error is the structured failure payload returned by all client operations.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Param is the JSON path of the field that triggered a validation error.
	Param *string `json:"param,omitempty"`

	cause error
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var clientErr *Error
	return errors.As(err, &clientErr) && clientErr.Kind == kind
}

type errorOption func(*Error)

// WithOffendingParam sets the JSON path for the field that triggered the error.
func WithOffendingParam(jsonPath string) errorOption {
	return func(er *Error) {
		er.Param = &jsonPath
	}
}

// WithCause attaches the underlying error for unwrapping.
func WithCause(err error) errorOption {
	return func(er *Error) {
		er.cause = err
	}
}

// NewNotInitializedError builds the failure returned when the client lifecycle
// state does not permit the operation.
func NewNotInitializedError(message string, opts ...errorOption) *Error {
	return newError(NotInitialized, message, opts...)
}

// NewInvalidAdviceError builds a payment-terms validation failure.
func NewInvalidAdviceError(message string, opts ...errorOption) *Error {
	return newError(InvalidAdvice, message, opts...)
}

// NewInvalidAgentKeyError builds a malformed-PEM failure.
func NewInvalidAgentKeyError(message string, opts ...errorOption) *Error {
	return newError(InvalidAgentKey, message, opts...)
}

// NewEncryptionFailedError builds a cryptographic failure.
func NewEncryptionFailedError(message string, opts ...errorOption) *Error {
	return newError(EncryptionFailed, message, opts...)
}

// NewGatewayError builds a gateway transport or response failure.
func NewGatewayError(message string, opts ...errorOption) *Error {
	return newError(GatewayError, message, opts...)
}

// NewVerificationFailedError builds a status-check failure.
func NewVerificationFailedError(message string, opts ...errorOption) *Error {
	return newError(VerificationFailed, message, opts...)
}

// newError builds a typed error payload.
func newError(kind ErrorKind, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Kind:    kind,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}
