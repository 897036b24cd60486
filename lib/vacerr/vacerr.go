// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vacerr defines the sidecar's exhaustive error taxonomy and
// its mapping onto HTTP status codes.
//
// Every pipeline function that cannot produce a normal value returns a
// *Error of one of the Kinds below. The HTTP handler is the only place
// a *Error becomes a status code and response body; nothing upstream
// of that point writes to the response writer directly. An error that
// reaches the handler boundary without being a *Error is a programmer
// mistake, not a policy decision, and is mapped to Deny rather than
// leaked as a 500 with an arbitrary message — the fail-closed posture
// applies to our own bugs too.
package vacerr

import (
	"fmt"
	"net/http"
)

// Kind identifies one of the sidecar's error categories. The set is
// exhaustive: every rejection path in the pipeline maps to exactly one
// Kind.
type Kind int

const (
	// MissingToken means the Authorization header was absent or did
	// not carry the "Bearer " prefix.
	MissingToken Kind = iota

	// InvalidTokenFormat means a token could not be base64-decoded or
	// its CBOR payload could not be parsed.
	InvalidTokenFormat

	// InvalidSignature means a token's Ed25519 signature did not
	// verify under the expected key, or the token's id was found in
	// the revocation set. Both cases are reported identically to
	// avoid giving an attacker an oracle distinguishing "forged" from
	// "revoked".
	InvalidSignature

	// ReceiptExpired means a receipt's prior_event timestamp fell
	// outside the validity window (expiry plus clock-skew grace).
	ReceiptExpired

	// CorrelationIdMismatch means a receipt's correlation id did not
	// match the request's correlation id.
	CorrelationIdMismatch

	// PolicyViolation means the logic-language authorizer rejected
	// the request: an unmet check, a matched deny, or no matching
	// allow. Message names the first violated clause where feasible.
	PolicyViolation

	// Deny is the fail-closed catch-all for any code path that cannot
	// produce a more specific Kind — an unhandled branch is a bug, and
	// a bug must deny, never allow.
	Deny

	// ProxyError means the upstream request could not be built or the
	// upstream connection failed.
	ProxyError

	// ConfigError means the sidecar's own configuration is invalid.
	ConfigError

	// InternalError means an unexpected failure occurred outside the
	// policy domain (e.g. a cryptographic primitive returned an error
	// that should be structurally impossible).
	InternalError
)

// String returns the Kind's canonical name.
func (k Kind) String() string {
	switch k {
	case MissingToken:
		return "MissingToken"
	case InvalidTokenFormat:
		return "InvalidTokenFormat"
	case InvalidSignature:
		return "InvalidSignature"
	case ReceiptExpired:
		return "ReceiptExpired"
	case CorrelationIdMismatch:
		return "CorrelationIdMismatch"
	case PolicyViolation:
		return "PolicyViolation"
	case Deny:
		return "Deny"
	case ProxyError:
		return "ProxyError"
	case ConfigError:
		return "ConfigError"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// StatusCode returns the HTTP status code this Kind maps to.
func (k Kind) StatusCode() int {
	switch k {
	case MissingToken:
		return http.StatusUnauthorized
	case InvalidTokenFormat:
		return http.StatusBadRequest
	case InvalidSignature:
		return http.StatusForbidden
	case ReceiptExpired:
		return http.StatusForbidden
	case CorrelationIdMismatch:
		return http.StatusConflict
	case PolicyViolation:
		return http.StatusForbidden
	case Deny:
		return http.StatusForbidden
	case ProxyError:
		return http.StatusBadGateway
	case ConfigError:
		return http.StatusInternalServerError
	case InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the sidecar's error type. It carries a Kind and an optional
// diagnostic message. Signature failures and undecodable wire bytes
// omit detail (see [New]) to avoid giving an attacker a verification
// oracle; PolicyViolation, ProxyError, ConfigError, and InternalError
// carry a message naming the specific failure. InvalidTokenFormat
// also carries a message when a signed token's block fails to parse
// or a request body exceeds the size limit.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// StatusCode returns the HTTP status code for this error.
func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

// New constructs an Error of the given Kind with no message. Use this
// for MissingToken, InvalidTokenFormat, InvalidSignature, ReceiptExpired,
// CorrelationIdMismatch, and Deny, whose HTTP bodies are a fixed,
// opaque phrase rather than a caller-supplied detail.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Newf constructs an Error of the given Kind with a formatted message.
// Use this for PolicyViolation, ProxyError, ConfigError, and
// InternalError, which carry a diagnostic naming the specific failure.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PolicyViolationf is a convenience constructor for the most common
// rejection kind.
func PolicyViolationf(format string, args ...any) *Error {
	return Newf(PolicyViolation, format, args...)
}

// As reports whether err is (or wraps) a *Error and returns it.
func As(err error) (*Error, bool) {
	ve, ok := err.(*Error)
	return ve, ok
}

// AsError converts any error into a *Error for the HTTP boundary. A
// *Error passes through unchanged; anything else — a nil-map panic
// recovered elsewhere, a third-party error type that slipped past a
// pipeline stage — becomes Deny. This is the single funnel point that
// makes "every non-explicit branch must deny" true even for our own
// bugs.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*Error); ok {
		return ve
	}
	return New(Deny)
}
