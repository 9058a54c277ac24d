// Package performance computes standard private-fund performance
// ratios over a fund's cash-flow history: IRR via Newton-Raphson plus
// the TVPI/DPI/RVPI/MOIC multiples. Everything here is pure.
package performance

import (
	"math"
	"sort"
	"time"
)

const (
	irrInitialGuess  = 0.10
	irrMaxIterations = 100
	irrNPVTolerance  = 1e-4
	irrDerivFloor    = 1e-10
	irrRateMin       = -0.99
	irrRateMax       = 10.0
	daysPerYear      = 365.25
)

// CashFlow is one dated flow: capital calls negative, distributions
// positive. The as-of NAV enters as a terminal positive flow.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// Metrics is the computed performance snapshot. IRR values are
// percentages. Converged is false when the IRR solver exited on the
// derivative floor instead of NPV tolerance; the value returned is the
// last computed estimate, a documented approximation rather than a
// failure.
type Metrics struct {
	GrossIRR  float64 `json:"gross_irr"`
	NetIRR    float64 `json:"net_irr"`
	TVPI      float64 `json:"tvpi"`
	DPI       float64 `json:"dpi"`
	RVPI      float64 `json:"rvpi"`
	MOIC      float64 `json:"moic"`
	Converged bool    `json:"converged"`
}

// Input for a performance computation.
type Input struct {
	Flows     []CashFlow
	NAV       float64
	AsOf      time.Time
	TotalFees float64
}

// Compute derives the full metric set. Flows are sorted by date and the
// NAV is appended as a terminal positive flow at the as-of date.
func Compute(in Input) Metrics {
	flows := make([]CashFlow, len(in.Flows))
	copy(flows, in.Flows)
	sort.Slice(flows, func(i, j int) bool { return flows[i].Date.Before(flows[j].Date) })

	var totalCalled, totalDistributed float64
	for _, f := range flows {
		if f.Amount < 0 {
			totalCalled += -f.Amount
		} else {
			totalDistributed += f.Amount
		}
	}

	withNAV := append(flows, CashFlow{Date: in.AsOf, Amount: in.NAV})
	grossIRR, converged := IRR(withNAV)

	m := Metrics{
		GrossIRR:  grossIRR,
		Converged: converged,
	}

	if totalCalled > 0 {
		m.TVPI = (in.NAV + totalDistributed) / totalCalled
		m.DPI = totalDistributed / totalCalled
		m.RVPI = in.NAV / totalCalled
		m.MOIC = m.TVPI
		m.NetIRR = grossIRR * (1 - in.TotalFees/totalCalled)
	}

	return m
}

// IRR solves NPV(rate) = 0 by Newton-Raphson and returns the rate as a
// percentage. The day count is actual/365.25 from the first flow.
// Iteration stops at NPV tolerance, or at the derivative floor -- an
// approximate-convergence exit returning the last estimate with
// converged=false. The rate is clamped to [-0.99, 10] after each step
// to prevent divergence. Fewer than two flows yields 0.
func IRR(flows []CashFlow) (irr float64, converged bool) {
	if len(flows) < 2 {
		return 0, true
	}

	t0 := flows[0].Date
	for _, f := range flows[1:] {
		if f.Date.Before(t0) {
			t0 = f.Date
		}
	}

	rate := irrInitialGuess

	for i := 0; i < irrMaxIterations; i++ {
		npv, deriv := npvAndDerivative(flows, t0, rate)

		if math.Abs(npv) < irrNPVTolerance {
			return rate * 100, true
		}

		if math.Abs(deriv) < irrDerivFloor {
			return rate * 100, false
		}

		rate -= npv / deriv
		rate = clamp(rate, irrRateMin, irrRateMax)
	}

	return rate * 100, false
}

func npvAndDerivative(flows []CashFlow, t0 time.Time, rate float64) (npv, deriv float64) {
	for _, f := range flows {
		years := f.Date.Sub(t0).Hours() / 24 / daysPerYear
		discount := math.Pow(1+rate, years)
		npv += f.Amount / discount
		deriv -= years * f.Amount / (discount * (1 + rate))
	}
	return npv, deriv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
