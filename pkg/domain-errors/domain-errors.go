package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in issuance-protocol terms, not HTTP terms.
type Code string

const (
	CodeConfiguration Code = "configuration_error" // issuer identity or session unavailable
	CodeConnection    Code = "connection_error"    // network or DID resolution failure
	CodeInternal      Code = "internal_error"
	CodeBadRequest    Code = "bad_request"
	CodeNotFound      Code = "not_found"

	// Signed-artifact validation failures. Always client-facing 400-class.
	CodeInvalidResponse Code = "invalid_response" // SIOPv2 auth response rejected
	CodeInvalidToken    Code = "invalid_token"    // access token rejected
	CodeInvalidProof    Code = "invalid_proof"    // proof-of-possession JWT rejected

	// OID4VCI token endpoint codes (RFC 6749 §5.2 plus the pre-authorized
	// code flow's pending state).
	CodeUnsupportedGrantType Code = "unsupported_grant_type"
	CodeInvalidGrant         Code = "invalid_grant"
	CodeAuthorizationPending Code = "authorization_pending" // recoverable, poll again

	// DWN store verdicts. The store's own detail string rides in Message.
	CodeWriteRejected Code = "write_rejected"
	CodeQueryRejected Code = "query_rejected"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
