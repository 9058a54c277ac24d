package domain

import "errors"

var (
	// Validation errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyReason       = errors.New("rejection reason cannot be empty")
	ErrEmptyNotes        = errors.New("change request notes cannot be empty")
	ErrInvalidFeeRate    = errors.New("fee rate must be non-negative")
	ErrInvalidOwnership  = errors.New("ownership percentages must sum to 100")
	ErrInvalidCommitment = errors.New("commitment must be non-negative")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrInvalidFeeBase    = errors.New("invalid fee base")

	// State-conflict errors
	ErrStatusConflict    = errors.New("persisted status does not match expected status")
	ErrIllegalTransition = errors.New("transition not allowed from current status")
	ErrWaterfallApplied  = errors.New("waterfall already applied to distribution")
	ErrNotApproved       = errors.New("transaction is not approved")

	// Not-found errors
	ErrCapitalCallNotFound  = errors.New("capital call not found")
	ErrDistributionNotFound = errors.New("distribution not found")
	ErrFundNotFound         = errors.New("fund not found")
	ErrInvestorNotFound     = errors.New("investor not found")
	ErrAllocationNotFound   = errors.New("allocation not found")
)
