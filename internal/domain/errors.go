package domain

import "errors"

// Sentinel errors shared across stores, caches, and services. Services wrap
// these with context via fmt.Errorf("...: %w", err); callers match with
// errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
	ErrRateLimited   = errors.New("rate limited")

	// Validation: rejected before any state mutation.
	ErrEmptyIdentity        = errors.New("identity must not be empty")
	ErrEmptyTitle           = errors.New("title must not be empty")
	ErrTitleTooLong         = errors.New("title too long")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrEmptyLabel           = errors.New("outcome label must not be empty")
	ErrLabelTooLong         = errors.New("outcome label too long")
	ErrDuplicateLabels      = errors.New("outcome labels must differ")
	ErrLockTimeNotFuture    = errors.New("lock time must be in the future")
	ErrSettlementBeforeLock = errors.New("settlement time must be after lock time")
	ErrInvalidAmount        = errors.New("invalid bet amount")
	ErrInvalidSide          = errors.New("invalid bet side")
	ErrInvalidOutcome       = errors.New("invalid outcome")

	// Authorization.
	ErrAuthorityIsAdmin      = errors.New("result authority must differ from admin")
	ErrUnauthorizedAuthority = errors.New("unauthorized result authority")
	ErrNotAdmin              = errors.New("caller is not the market admin")
	ErrSelfBetForbidden      = errors.New("market admin may not bet on own market")
	ErrNotBetOwner           = errors.New("caller is not the bet owner")

	// State/phase: legal input, wrong market or bet state.
	ErrMarketNotActive = errors.New("market is not active")
	ErrDuplicateBet    = errors.New("an active bet already exists for this market")
	ErrAlreadyBalanced = errors.New("pools already balanced")
	ErrEventNotReady   = errors.New("betting window has not closed yet")
	ErrResultTooEarly  = errors.New("settlement time has not been reached")
	ErrAlreadySettled  = errors.New("market already settled")
	ErrNothingToClaim  = errors.New("bet has no claimable payout")
	ErrAlreadyClaimed  = errors.New("payout already claimed")

	// Arithmetic: hard faults, never silently wrapped or saturated in the
	// accounting path.
	ErrPoolOverflow = errors.New("pool total overflow")
)
