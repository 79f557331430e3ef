// Package common defines shared constants and sentinel errors used across
// client and server layers of comicvault. Callers should use errors.Is to
// match these values and KindOf to classify them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Account errors.
	ErrAlreadyExists      = errors.New("user already exists")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("please verify your email first")
	ErrUnauthenticated    = errors.New("you must be logged in")

	// Catalog and payment errors.
	ErrItemNotFound        = errors.New("item not found")
	ErrMissingFields       = errors.New("missing fields")
	ErrPaymentNotConfirmed = errors.New("payment not verified")
	ErrReferenceConsumed   = errors.New("payment reference already used")
	ErrUpstreamUnavailable = errors.New("payment gateway unavailable")

	// Asset storage errors.
	ErrAssetExists = errors.New("asset already exists")
)

// Kind groups errors the way the transport layer reports them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindUpstreamFailure
	KindValidationFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindValidationFailure:
		return "validation_failure"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown and nil errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrReferenceConsumed),
		errors.Is(err, ErrAssetExists):
		return KindConflict
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotVerified), errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrPaymentNotConfirmed):
		return KindUnauthorized
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamFailure
	case errors.Is(err, ErrMissingFields):
		return KindValidationFailure
	default:
		return KindInternal
	}
}
