package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStatus tracks payment state of a per-investor allocation.
type AllocationStatus string

const (
	AllocationPending AllocationStatus = "pending"
	AllocationPartial AllocationStatus = "partial"
	AllocationPaid    AllocationStatus = "paid"
)

// Allocation is one investor's share of a capital call or distribution.
// Exactly one Allocation exists per (entity, investor) pair.
type Allocation struct {
	ID              string
	EntityType      EntityType
	EntityID        string
	InvestorID      string
	OwnershipPct    decimal.Decimal
	Commitment      decimal.Decimal
	Principal       decimal.Decimal
	GrossFee        decimal.Decimal
	FeeDiscount     decimal.Decimal
	NetFee          decimal.Decimal
	VAT             decimal.Decimal
	ReturnOfCapital decimal.Decimal
	PreferredReturn decimal.Decimal
	Residual        decimal.Decimal
	AmountDue       decimal.Decimal
	AmountPaid      decimal.Decimal
	Status          AllocationStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecordPayment applies a payment and returns the updated status.
func (a *Allocation) RecordPayment(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	a.AmountPaid = a.AmountPaid.Add(amount)
	if a.AmountPaid.GreaterThanOrEqual(a.AmountDue) {
		a.Status = AllocationPaid
	} else {
		a.Status = AllocationPartial
	}

	return nil
}

// SumPrincipals returns the sum of allocation principal amounts. The
// caller compares it against the transaction total within rounding
// tolerance (one currency unit per investor).
func SumPrincipals(allocations []*Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Principal)
	}
	return total
}
