package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// FeeConfigRequest carries the fee terms of a capital call.
type FeeConfigRequest struct {
	Rate              decimal.Decimal  `json:"rate"`
	Base              string           `json:"base"`
	VATRate           decimal.Decimal  `json:"vat_rate"`
	VATApplicable     bool             `json:"vat_applicable"`
	Period            string           `json:"period,omitempty"`
	FeeRateOnNIC      *decimal.Decimal `json:"fee_rate_on_nic,omitempty"`
	FeeRateOnUnfunded *decimal.Decimal `json:"fee_rate_on_unfunded,omitempty"`
	FeeOffset         decimal.Decimal  `json:"fee_offset,omitempty"`
}

// ToDomain converts to the domain fee configuration.
func (r FeeConfigRequest) ToDomain() domain.FeeConfig {
	return domain.FeeConfig{
		Rate:              r.Rate,
		Base:              domain.FeeBase(r.Base),
		VATRate:           r.VATRate,
		VATApplicable:     r.VATApplicable,
		Period:            r.Period,
		FeeRateOnNIC:      r.FeeRateOnNIC,
		FeeRateOnUnfunded: r.FeeRateOnUnfunded,
		FeeOffset:         r.FeeOffset,
	}
}

// CreateCapitalCallRequest represents a request to create a capital call.
type CreateCapitalCallRequest struct {
	FundID             string           `json:"fund_id"`
	TotalAmount        decimal.Decimal  `json:"total_amount"`
	CallDate           time.Time        `json:"call_date"`
	FeeConfig          FeeConfigRequest `json:"fee_config"`
	NetInvestedCapital decimal.Decimal  `json:"net_invested_capital,omitempty"`
	UnfundedCommitment decimal.Decimal  `json:"unfunded_commitment,omitempty"`
	Metadata           map[string]any   `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateCapitalCallRequest) ToUseCaseInput() usecase.CreateCapitalCallInput {
	return usecase.CreateCapitalCallInput{
		FundID:             r.FundID,
		TotalAmount:        r.TotalAmount,
		CallDate:           r.CallDate,
		FeeConfig:          r.FeeConfig.ToDomain(),
		NetInvestedCapital: r.NetInvestedCapital,
		UnfundedCommitment: r.UnfundedCommitment,
		Metadata:           r.Metadata,
	}
}

// CreateDistributionRequest represents a request to create a distribution.
type CreateDistributionRequest struct {
	FundID           string          `json:"fund_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DistributionDate time.Time       `json:"distribution_date"`
	Source           string          `json:"source,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDistributionRequest) ToUseCaseInput() usecase.CreateDistributionInput {
	return usecase.CreateDistributionInput{
		FundID:           r.FundID,
		TotalAmount:      r.TotalAmount,
		DistributionDate: r.DistributionDate,
		Source:           r.Source,
		Metadata:         r.Metadata,
	}
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RequestChangesRequest carries the mandatory change notes.
type RequestChangesRequest struct {
	Notes string `json:"notes"`
}

// RecordPaymentRequest records a payment against an allocation.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// UpdateCommitmentRequest changes one investor's commitment.
type UpdateCommitmentRequest struct {
	Commitment decimal.Decimal `json:"commitment"`
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
