package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeBase identifies the commitment base a management fee accrues on.
type FeeBase string

const (
	FeeBaseCommitted       FeeBase = "committed"
	FeeBaseInvested        FeeBase = "invested"
	FeeBaseNICPlusUnfunded FeeBase = "nic_plus_unfunded"
)

var validFeeBases = map[FeeBase]bool{
	FeeBaseCommitted:       true,
	FeeBaseInvested:        true,
	FeeBaseNICPlusUnfunded: true,
}

// IsValid checks if the fee base is known.
func (b FeeBase) IsValid() bool {
	return validFeeBases[b]
}

// FeeConfig is the fee configuration attached to a capital call.
// Rate is a percentage already adjusted for the billing period upstream.
// The dual-rate fields, when set, switch fee computation to the
// NIC-plus-unfunded path.
type FeeConfig struct {
	Rate              decimal.Decimal
	Base              FeeBase
	VATRate           decimal.Decimal
	VATApplicable     bool
	Period            string
	FeeRateOnNIC      *decimal.Decimal
	FeeRateOnUnfunded *decimal.Decimal
	FeeOffset         decimal.Decimal
}

// DualRate reports whether the dual-rate fee path applies.
func (c FeeConfig) DualRate() bool {
	return c.FeeRateOnNIC != nil || c.FeeRateOnUnfunded != nil
}

// Validate validates the fee configuration.
func (c FeeConfig) Validate() error {
	if c.Rate.IsNegative() {
		return ErrInvalidFeeRate
	}
	if c.VATRate.IsNegative() {
		return ErrInvalidFeeRate
	}
	if !c.Base.IsValid() {
		return ErrInvalidFeeBase
	}
	return nil
}

// CapitalCall is a request from the fund to its investors to fund a
// portion of their committed capital.
type CapitalCall struct {
	ID          string
	FundID      string
	TotalAmount decimal.Decimal
	CallDate    time.Time
	FeeConfig   FeeConfig
	Status      ApprovalStatus
	CreatedBy   string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the capital call request.
func (c *CapitalCall) Validate() error {
	if c.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return c.FeeConfig.Validate()
}

// Snapshot returns the approval view of the capital call.
func (c *CapitalCall) Snapshot() *ApprovalSnapshot {
	return &ApprovalSnapshot{
		EntityType: EntityCapitalCall,
		EntityID:   c.ID,
		FundID:     c.FundID,
		Status:     c.Status,
		CreatedBy:  c.CreatedBy,
	}
}
