package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundContext is a read-only snapshot of fund-level terms consumed by
// the calculation engines. It is owned and mutated elsewhere.
type FundContext struct {
	ID                  string
	Name                string
	Currency            string
	TotalCommitment     decimal.Decimal
	ManagementFeeRate   decimal.Decimal
	HurdleRate          decimal.Decimal
	CarryPct            decimal.Decimal
	CatchUpPct          decimal.Decimal
	ManagementFeeAtExit decimal.Decimal
	CreatedAt           time.Time
}

// InvestorOwnership is one investor's commitment and resulting
// ownership percentage in a fund.
type InvestorOwnership struct {
	InvestorID     string
	FundID         string
	Commitment     decimal.Decimal
	OwnershipPct   decimal.Decimal
	FeeDiscountPct decimal.Decimal
	VATExempt      bool
	UpdatedAt      time.Time
}

// RecomputeOwnership recalculates every investor's ownership percentage
// from commitments. Percentages are rounded to 4dp; the largest holder
// absorbs the rounding remainder so the total is exactly 100. A zero
// total commitment zeroes every percentage.
func RecomputeOwnership(investors []*InvestorOwnership) {
	total := decimal.Zero
	for _, inv := range investors {
		total = total.Add(inv.Commitment)
	}

	if total.IsZero() {
		for _, inv := range investors {
			inv.OwnershipPct = decimal.Zero
		}
		return
	}

	hundred := decimal.NewFromInt(100)
	sum := decimal.Zero
	largest := -1

	for i, inv := range investors {
		inv.OwnershipPct = inv.Commitment.Mul(hundred).Div(total).Round(4)
		sum = sum.Add(inv.OwnershipPct)

		if largest < 0 || inv.Commitment.GreaterThan(investors[largest].Commitment) {
			largest = i
		}
	}

	if largest >= 0 {
		investors[largest].OwnershipPct = investors[largest].OwnershipPct.Add(hundred.Sub(sum))
	}
}

// ValidateOwnership checks that ownership percentages sum to 100 within
// a 0.01 tolerance.
func ValidateOwnership(investors []*InvestorOwnership) error {
	if len(investors) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, inv := range investors {
		sum = sum.Add(inv.OwnershipPct)
	}

	tolerance := decimal.NewFromFloat(0.01)
	if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(tolerance) {
		return ErrInvalidOwnership
	}

	return nil
}
