package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/engine/performance"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// PerformanceUseCase computes fund performance metrics over the
// approved transaction history. Results are cached briefly since the
// computation walks every approved transaction of the fund.
type PerformanceUseCase struct {
	callRepo       CapitalCallRepository
	distRepo       DistributionRepository
	allocationRepo AllocationRepository
	fundRepo       FundRepository
	cache          Cache
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewPerformanceUseCase creates a new PerformanceUseCase.
func NewPerformanceUseCase(
	callRepo CapitalCallRepository,
	distRepo DistributionRepository,
	allocationRepo AllocationRepository,
	fundRepo FundRepository,
	cache Cache,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *PerformanceUseCase {
	return &PerformanceUseCase{
		callRepo:       callRepo,
		distRepo:       distRepo,
		allocationRepo: allocationRepo,
		fundRepo:       fundRepo,
		cache:          cache,
		logger:         logger,
		metrics:        m,
	}
}

// FundPerformance is the computed snapshot returned to callers.
type FundPerformance struct {
	FundID  string              `json:"fund_id"`
	AsOf    time.Time           `json:"as_of"`
	NAV     decimal.Decimal     `json:"nav"`
	Metrics performance.Metrics `json:"metrics"`
}

// ComputeFundPerformance derives IRR and multiples for a fund as of the
// given date, treating approved capital calls as outflows, approved
// distributions as inflows, and the supplied NAV as the terminal value.
func (uc *PerformanceUseCase) ComputeFundPerformance(ctx context.Context, fundID string, nav decimal.Decimal, asOf time.Time) (*FundPerformance, error) {
	if _, err := uc.fundRepo.GetContext(ctx, fundID); err != nil {
		return nil, err
	}

	cacheKey := performanceCacheKey(fundID, nav, asOf)
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var cached FundPerformance
			if err := json.Unmarshal(data, &cached); err == nil {
				if uc.metrics != nil {
					uc.metrics.PerformanceCacheHits.Inc()
				}
				return &cached, nil
			}
		}
		if uc.metrics != nil {
			uc.metrics.PerformanceCacheMisses.Inc()
		}
	}

	calls, err := uc.callRepo.ListApprovedByFund(ctx, fundID)
	if err != nil {
		return nil, err
	}

	dists, err := uc.distRepo.ListApprovedByFund(ctx, fundID)
	if err != nil {
		return nil, err
	}

	totalFees, err := uc.allocationRepo.SumFeesByFund(ctx, fundID)
	if err != nil {
		return nil, err
	}

	flows := make([]performance.CashFlow, 0, len(calls)+len(dists))
	for _, c := range calls {
		amount, _ := c.TotalAmount.Float64()
		flows = append(flows, performance.CashFlow{Date: c.CallDate, Amount: -amount})
	}
	for _, d := range dists {
		amount, _ := d.TotalAmount.Float64()
		flows = append(flows, performance.CashFlow{Date: d.DistributionDate, Amount: amount})
	}

	navF, _ := nav.Float64()
	feesF, _ := totalFees.Float64()

	m := performance.Compute(performance.Input{
		Flows:     flows,
		NAV:       navF,
		AsOf:      asOf,
		TotalFees: feesF,
	})

	if !m.Converged {
		uc.logger.Warn().
			Str("fund_id", fundID).
			Float64("gross_irr", m.GrossIRR).
			Msg("IRR solver exited without full convergence")

		if uc.metrics != nil {
			uc.metrics.IRRNonConverged.Inc()
		}
	}

	result := &FundPerformance{
		FundID:  fundID,
		AsOf:    asOf,
		NAV:     nav,
		Metrics: m,
	}

	if uc.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, PerformanceCacheTTL); err != nil {
				uc.logger.Debug().Err(err).Str("fund_id", fundID).Msg("performance cache write failed")
			}
		}
	}

	return result, nil
}

// InvalidatePerformance drops cached snapshots for a fund. Called after
// transitions that change the approved transaction set.
func (uc *PerformanceUseCase) InvalidatePerformance(ctx context.Context, fundID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeleteByPrefix(ctx, "performance:"+fundID+":"); err != nil {
		uc.logger.Debug().Err(err).Str("fund_id", fundID).Msg("performance cache invalidation failed")
	}
}

func performanceCacheKey(fundID string, nav decimal.Decimal, asOf time.Time) string {
	return fmt.Sprintf("performance:%s:%s:%s", fundID, nav.String(), asOf.Format("2006-01-02"))
}
