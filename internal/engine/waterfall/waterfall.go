// Package waterfall distributes proceeds across the four-tier
// distribution waterfall: return of capital, preferred return, GP
// catch-up, and residual carry split. The engine is pure; tier
// balances are threaded through an explicit accumulator rather than
// shared mutable state.
package waterfall

import (
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Tier names in execution order.
const (
	TierReturnOfCapital = "return_of_capital"
	TierPreferredReturn = "preferred_return"
	TierGPCatchUp       = "gp_catch_up"
	TierResidualSplit   = "residual_split"
)

// Terms are the fund-level waterfall parameters.
type Terms struct {
	// HurdleRate is informational here; the accrued preferred amount is
	// computed upstream from the compounded hurdle on called capital.
	HurdleRate decimal.Decimal
	// CarryPct is the GP's carried-interest percentage of profit.
	CarryPct decimal.Decimal
	// CatchUpPct is the GP's share within the catch-up tier, usually 100.
	CatchUpPct decimal.Decimal
	// ManagementFeeAtExit, when positive, is deducted from the
	// distributable total before any tier runs.
	ManagementFeeAtExit decimal.Decimal
}

// Input is one distribution's worth of waterfall work.
type Input struct {
	Total decimal.Decimal
	// UnreturnedCapital is called capital not yet distributed back.
	UnreturnedCapital decimal.Decimal
	// AccruedPreferred is the compounded hurdle return not yet satisfied.
	AccruedPreferred decimal.Decimal
	// PriorGPProfit and PriorProfitDistributed carry the cumulative
	// profit picture from earlier distributions into the catch-up test.
	PriorGPProfit          decimal.Decimal
	PriorProfitDistributed decimal.Decimal
	Terms                  Terms
	Investors              []domain.InvestorOwnership
}

// TierResult is one executed tier.
type TierResult struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	LPAmount decimal.Decimal `json:"lp_amount"`
	GPAmount decimal.Decimal `json:"gp_amount"`
}

// InvestorShare is one investor's slice of the LP-side proceeds.
type InvestorShare struct {
	InvestorID      string          `json:"investor_id"`
	OwnershipPct    decimal.Decimal `json:"ownership_pct"`
	ReturnOfCapital decimal.Decimal `json:"return_of_capital"`
	PreferredReturn decimal.Decimal `json:"preferred_return"`
	Residual        decimal.Decimal `json:"residual"`
	Total           decimal.Decimal `json:"total"`
}

// Result is the full waterfall outcome for one distribution.
type Result struct {
	Tiers               []TierResult    `json:"tiers"`
	ReturnOfCapital     decimal.Decimal `json:"return_of_capital"`
	PreferredReturn     decimal.Decimal `json:"preferred_return"`
	GPCatchUp           decimal.Decimal `json:"gp_catch_up"`
	ResidualSplit       decimal.Decimal `json:"residual_split"`
	LPTotal             decimal.Decimal `json:"lp_total"`
	GPTotal             decimal.Decimal `json:"gp_total"`
	ManagementFeeAtExit decimal.Decimal `json:"management_fee_at_exit"`
	Shares              []InvestorShare `json:"shares"`
}

// state is the accumulator threaded through the tier functions.
type state struct {
	remaining decimal.Decimal
	lpTotal   decimal.Decimal
	gpTotal   decimal.Decimal
	// gpProfit and profitDistributed accumulate profit-tier amounts
	// (everything above return of capital) for the catch-up target.
	gpProfit          decimal.Decimal
	profitDistributed decimal.Decimal
}

type tierFn func(state, Input) (state, TierResult)

// Apply runs the waterfall over the input. Tiers execute strictly in
// order against the remaining balance; a tier that would overconsume is
// capped so no tier ever produces a negative remainder.
func Apply(in Input) Result {
	total := in.Total
	mgmtFee := decimal.Zero
	if in.Terms.ManagementFeeAtExit.IsPositive() {
		mgmtFee = minDecimal(in.Terms.ManagementFeeAtExit.Round(2), total)
		total = total.Sub(mgmtFee)
	}

	st := state{
		remaining:         total,
		lpTotal:           decimal.Zero,
		gpTotal:           decimal.Zero,
		gpProfit:          in.PriorGPProfit,
		profitDistributed: in.PriorProfitDistributed,
	}

	tiers := []tierFn{returnOfCapital, preferredReturn, gpCatchUp, residualSplit}

	res := Result{ManagementFeeAtExit: mgmtFee}
	for _, tier := range tiers {
		var tr TierResult
		st, tr = tier(st, in)
		res.Tiers = append(res.Tiers, tr)
	}

	res.ReturnOfCapital = res.Tiers[0].Amount
	res.PreferredReturn = res.Tiers[1].Amount
	res.GPCatchUp = res.Tiers[2].Amount
	res.ResidualSplit = res.Tiers[3].Amount
	res.LPTotal = st.lpTotal
	res.GPTotal = st.gpTotal
	res.Shares = allocateShares(res, in.Investors)

	return res
}

// returnOfCapital pays back called, undistributed capital to LPs.
func returnOfCapital(st state, in Input) (state, TierResult) {
	amount := minDecimal(st.remaining, in.UnreturnedCapital)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	st.remaining = st.remaining.Sub(amount)
	st.lpTotal = st.lpTotal.Add(amount)

	return st, TierResult{Name: TierReturnOfCapital, Amount: amount, LPAmount: amount}
}

// preferredReturn satisfies the outstanding compounded hurdle.
func preferredReturn(st state, in Input) (state, TierResult) {
	amount := minDecimal(st.remaining, in.AccruedPreferred)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	st.remaining = st.remaining.Sub(amount)
	st.lpTotal = st.lpTotal.Add(amount)
	st.profitDistributed = st.profitDistributed.Add(amount)

	return st, TierResult{Name: TierPreferredReturn, Amount: amount, LPAmount: amount}
}

// gpCatchUp brings the GP's cumulative profit share up to its carry
// percentage of profit distributed so far. With catch-up share u and
// carry c, the tier size x solves gpProfit + u*x = c*(profit + x).
func gpCatchUp(st state, in Input) (state, TierResult) {
	tr := TierResult{Name: TierGPCatchUp, Amount: decimal.Zero, LPAmount: decimal.Zero, GPAmount: decimal.Zero}

	carry := in.Terms.CarryPct.Div(hundred)
	catchUp := in.Terms.CatchUpPct.Div(hundred)

	if catchUp.LessThanOrEqual(carry) || st.remaining.LessThanOrEqual(decimal.Zero) {
		return st, tr
	}

	target := carry.Mul(st.profitDistributed).Sub(st.gpProfit).Div(catchUp.Sub(carry))
	if target.LessThanOrEqual(decimal.Zero) {
		return st, tr
	}

	amount := minDecimal(st.remaining, target.Round(2))
	gpPart := amount.Mul(catchUp).Round(2)
	lpPart := amount.Sub(gpPart)

	st.remaining = st.remaining.Sub(amount)
	st.gpTotal = st.gpTotal.Add(gpPart)
	st.lpTotal = st.lpTotal.Add(lpPart)
	st.gpProfit = st.gpProfit.Add(gpPart)
	st.profitDistributed = st.profitDistributed.Add(amount)

	tr.Amount = amount
	tr.LPAmount = lpPart
	tr.GPAmount = gpPart

	return st, tr
}

// residualSplit divides whatever is left LP/GP per the carry percentage.
func residualSplit(st state, in Input) (state, TierResult) {
	amount := st.remaining
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	gpPart := amount.Mul(in.Terms.CarryPct).Div(hundred).Round(2)
	lpPart := amount.Sub(gpPart)

	st.remaining = decimal.Zero
	st.gpTotal = st.gpTotal.Add(gpPart)
	st.lpTotal = st.lpTotal.Add(lpPart)
	st.gpProfit = st.gpProfit.Add(gpPart)
	st.profitDistributed = st.profitDistributed.Add(amount)

	return st, TierResult{Name: TierResidualSplit, Amount: amount, LPAmount: lpPart, GPAmount: gpPart}
}

// allocateShares splits each tier's LP amount pro rata by ownership
// percentage. The largest holder absorbs the rounding remainder so the
// shares sum exactly to the LP totals.
func allocateShares(res Result, investors []domain.InvestorOwnership) []InvestorShare {
	if len(investors) == 0 {
		return nil
	}

	shares := make([]InvestorShare, len(investors))
	largest := 0

	for i, inv := range investors {
		pct := inv.OwnershipPct.Div(hundred)
		roc := res.Tiers[0].LPAmount.Mul(pct).Round(2)
		pref := res.Tiers[1].LPAmount.Mul(pct).Round(2)
		residual := res.Tiers[2].LPAmount.Add(res.Tiers[3].LPAmount).Mul(pct).Round(2)

		shares[i] = InvestorShare{
			InvestorID:      inv.InvestorID,
			OwnershipPct:    inv.OwnershipPct,
			ReturnOfCapital: roc,
			PreferredReturn: pref,
			Residual:        residual,
			Total:           roc.Add(pref).Add(residual),
		}

		if inv.OwnershipPct.GreaterThan(investors[largest].OwnershipPct) {
			largest = i
		}
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Total)
	}

	drift := res.LPTotal.Sub(sum)
	if !drift.IsZero() {
		shares[largest].Residual = shares[largest].Residual.Add(drift)
		shares[largest].Total = shares[largest].Total.Add(drift)
	}

	return shares
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
