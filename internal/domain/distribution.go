package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Distribution is a payment from the fund to its investors.
// Tier amounts and LP/GP totals are zero until the waterfall is applied.
type Distribution struct {
	ID               string
	FundID           string
	TotalAmount      decimal.Decimal
	DistributionDate time.Time
	Source           string
	WaterfallApplied bool
	ReturnOfCapital  decimal.Decimal
	PreferredReturn  decimal.Decimal
	GPCatchUp        decimal.Decimal
	ResidualSplit    decimal.Decimal
	LPTotal          decimal.Decimal
	GPTotal          decimal.Decimal
	Status           ApprovalStatus
	CreatedBy        string
	Metadata         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate validates the distribution request.
func (d *Distribution) Validate() error {
	if d.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// Snapshot returns the approval view of the distribution.
func (d *Distribution) Snapshot() *ApprovalSnapshot {
	return &ApprovalSnapshot{
		EntityType: EntityDistribution,
		EntityID:   d.ID,
		FundID:     d.FundID,
		Status:     d.Status,
		CreatedBy:  d.CreatedBy,
	}
}
