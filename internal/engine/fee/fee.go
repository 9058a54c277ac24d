// Package fee computes management-fee breakdowns for capital call
// allocations. All functions are pure; currency outputs are rounded
// half-up to the smallest currency unit.
package fee

import (
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// InvestorTerms are the per-investor overrides applied on top of the
// fund-level fee configuration.
type InvestorTerms struct {
	FeeDiscountPct decimal.Decimal
	VATExempt      bool
}

// Input carries everything the calculator needs for one investor.
// NetInvestedCapital and UnfundedCommitment are only consulted on the
// dual-rate path.
type Input struct {
	Principal          decimal.Decimal
	NetInvestedCapital decimal.Decimal
	UnfundedCommitment decimal.Decimal
	Config             domain.FeeConfig
	Terms              InvestorTerms
}

// Breakdown is the computed fee for one investor. Clamped is set when a
// negative gross fee was clamped to zero; callers surface it as a
// data-quality signal rather than swallowing it.
type Breakdown struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
	Clamped  bool            `json:"clamped,omitempty"`
}

// Compute calculates the fee breakdown for a single investor.
//
// Standard path: gross = principal x rate / 100, where rate is already
// period-adjusted upstream. Dual-rate path (when the config carries NIC
// or unfunded rates): gross = NIC x rateOnNIC + unfunded x rateOnUnfunded
// - feeOffset. Discount and VAT apply identically on both paths. A zero
// or missing base yields a zero fee without dividing.
func Compute(in Input) Breakdown {
	var b Breakdown

	gross := grossFee(in)
	if gross.IsNegative() {
		gross = decimal.Zero
		b.Clamped = true
	}

	b.Gross = roundCurrency(gross)
	b.Discount = roundCurrency(b.Gross.Mul(in.Terms.FeeDiscountPct).Div(hundred))
	b.Net = b.Gross.Sub(b.Discount)

	if in.Config.VATApplicable && !in.Terms.VATExempt {
		b.VAT = roundCurrency(b.Net.Mul(in.Config.VATRate).Div(hundred))
	} else {
		b.VAT = decimal.Zero
	}

	b.Total = b.Net.Add(b.VAT)

	return b
}

func grossFee(in Input) decimal.Decimal {
	if in.Config.DualRate() {
		gross := decimal.Zero
		if in.Config.FeeRateOnNIC != nil {
			gross = gross.Add(in.NetInvestedCapital.Mul(*in.Config.FeeRateOnNIC))
		}
		if in.Config.FeeRateOnUnfunded != nil {
			gross = gross.Add(in.UnfundedCommitment.Mul(*in.Config.FeeRateOnUnfunded))
		}
		return gross.Sub(in.Config.FeeOffset)
	}

	if in.Principal.IsZero() {
		return decimal.Zero
	}

	return in.Principal.Mul(in.Config.Rate).Div(hundred)
}

// roundCurrency rounds to the smallest currency unit, half-up.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
