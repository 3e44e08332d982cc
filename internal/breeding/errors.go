// Package breeding orchestrates the two-phase breeding workflow. This file
// centralizes the service-level error values so that handlers can translate
// them into stable HTTP responses.
package breeding

import "errors"

var (
	// ErrPetNotFound indicates a referenced parent does not exist.
	ErrPetNotFound = errors.New("pet not found")

	// ErrNotOwner is returned when the caller does not own the pets or
	// request they are operating on.
	ErrNotOwner = errors.New("caller does not own this resource")

	// ErrSameParent is returned when both parent ids are the same pet.
	ErrSameParent = errors.New("parents must be distinct")

	// ErrParentBusy is returned when a parent already has an open breeding
	// slot.
	ErrParentBusy = errors.New("parent already in an active breeding")

	// ErrIneligibleParent is returned when a parent misses the level or
	// happiness threshold.
	ErrIneligibleParent = errors.New("parent does not meet breeding requirements")

	// ErrBreedLimit is returned when a parent has exhausted its rarity's
	// breeding allowance.
	ErrBreedLimit = errors.New("parent has no breeding attempts left")

	// ErrKinship is returned for parent/offspring or sibling pairings.
	ErrKinship = errors.New("parents are too closely related")

	// ErrInvalidModifiers is returned when the facility tier is out of range.
	ErrInvalidModifiers = errors.New("invalid breeding modifiers")

	// ErrInsufficientBalance is returned when the caller cannot cover the
	// breeding cost.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrRequestNotFound indicates the breeding request id is unknown.
	ErrRequestNotFound = errors.New("breeding request not found")

	// ErrAlreadyCompleted is returned for operations on a finished request.
	ErrAlreadyCompleted = errors.New("breeding request already completed")

	// ErrAlreadyRequested is returned when randomness has already been
	// requested for this breeding.
	ErrAlreadyRequested = errors.New("randomness already requested")

	// ErrNotReady is returned when completeBreeding is called before the
	// cooldown has elapsed.
	ErrNotReady = errors.New("breeding request not ready yet")

	// ErrNotRequested is returned on a reprocess attempt for a request that
	// never reached the randomness phase.
	ErrNotRequested = errors.New("randomness not requested yet")

	// ErrRandomnessPending is returned on a reprocess attempt while the
	// oracle request is still unfulfilled.
	ErrRandomnessPending = errors.New("randomness not fulfilled yet")

	// ErrUnauthorizedCaller is returned when a fulfillment callback arrives
	// under an identity other than the configured oracle.
	ErrUnauthorizedCaller = errors.New("caller is not the configured oracle")

	// ErrWrongKind is returned when a fulfillment carries a non-breeding
	// request kind.
	ErrWrongKind = errors.New("wrong request kind")

	// ErrInsufficientRandomness is returned when a fulfillment carries fewer
	// than the four words offspring generation needs.
	ErrInsufficientRandomness = errors.New("insufficient randomness")

	// ErrCancelDisabled is returned when cancellation is attempted but the
	// deployment has it switched off.
	ErrCancelDisabled = errors.New("breeding cancellation is disabled")

	// ErrNotCancellable is returned when a request has passed the point of
	// no return (randomness requested) or is already terminal.
	ErrNotCancellable = errors.New("breeding request cannot be cancelled")
)
