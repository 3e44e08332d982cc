// Package oracle implements the randomness request/fulfillment ledger.
// This file centralizes the service-level error values so callers and
// HTTP handlers can map them to stable responses.
package oracle

import "errors"

var (
	// ErrUnauthorizedRequester is returned when request() is called under an
	// identity that has not been registered by the administrator.
	ErrUnauthorizedRequester = errors.New("requester is not authorized")

	// ErrUnknownKind is returned when a request names a kind outside the
	// configured set.
	ErrUnknownKind = errors.New("unknown request kind")

	// ErrNotFound indicates that the referenced request id does not exist.
	ErrNotFound = errors.New("random request not found")

	// ErrAlreadyFulfilled is returned on a second delivery for the same
	// request id. The first delivery's words are left untouched.
	ErrAlreadyFulfilled = errors.New("request already fulfilled")

	// ErrWordCount is returned when a delivery carries a different number of
	// words than the request's kind is configured for.
	ErrWordCount = errors.New("unexpected word count")

	// ErrInvalidWordCount is returned when an administrator tries to
	// configure a per-kind word count outside [1,10].
	ErrInvalidWordCount = errors.New("word count must be between 1 and 10")
)
