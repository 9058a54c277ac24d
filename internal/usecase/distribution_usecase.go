package usecase

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/engine/waterfall"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// DistributionUseCase handles distribution creation and waterfall
// application.
type DistributionUseCase struct {
	txManager      TransactionManager
	distRepo       DistributionRepository
	callRepo       CapitalCallRepository
	allocationRepo AllocationRepository
	fundRepo       FundRepository
	outboxRepo     OutboxRepository
	idGen          IDGenerator
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewDistributionUseCase creates a new DistributionUseCase.
func NewDistributionUseCase(
	txManager TransactionManager,
	distRepo DistributionRepository,
	callRepo CapitalCallRepository,
	allocationRepo AllocationRepository,
	fundRepo FundRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *DistributionUseCase {
	return &DistributionUseCase{
		txManager:      txManager,
		distRepo:       distRepo,
		callRepo:       callRepo,
		allocationRepo: allocationRepo,
		fundRepo:       fundRepo,
		outboxRepo:     outboxRepo,
		idGen:          idGen,
		logger:         logger,
		metrics:        m,
	}
}

// CreateDistributionInput is the request to create a distribution.
type CreateDistributionInput struct {
	FundID           string
	TotalAmount      decimal.Decimal
	DistributionDate time.Time
	Source           string
	Metadata         map[string]any
}

// CreateDistribution creates a draft distribution. Tier amounts stay
// zero until the waterfall is applied after approval.
func (uc *DistributionUseCase) CreateDistribution(ctx context.Context, input CreateDistributionInput) (*domain.Distribution, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !user.Role.CanCreate() {
		return nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateAmount(input.TotalAmount); err != nil {
		return nil, err
	}
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	if _, err := uc.fundRepo.GetContext(ctx, input.FundID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dist := &domain.Distribution{
		ID:               uc.idGen.Generate(),
		FundID:           input.FundID,
		TotalAmount:      input.TotalAmount,
		DistributionDate: input.DistributionDate,
		Source:           input.Source,
		Status:           domain.StatusDraft,
		CreatedBy:        user.ID,
		Metadata:         input.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := dist.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.distRepo.Create(txCtx, tx, dist); err != nil {
		return nil, err
	}
	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DistributionsCreated.Inc()
	}

	uc.logger.Info().
		Str("distribution_id", dist.ID).
		Str("fund_id", dist.FundID).
		Str("total_amount", dist.TotalAmount.String()).
		Msg("distribution created")

	return dist, nil
}

// ApplyWaterfall runs the four-tier waterfall over an approved
// distribution and persists the tier amounts, the per-investor
// allocations, and a notification event atomically. The applied flag is
// flipped conditionally so a concurrent second apply fails with
// ErrWaterfallApplied instead of double-paying.
func (uc *DistributionUseCase) ApplyWaterfall(ctx context.Context, distributionID string) (*domain.Distribution, *waterfall.Result, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrUnauthorized
	}
	if !user.Role.CanCreate() {
		return nil, nil, domain.ErrInsufficientRole
	}

	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	dist, err := uc.distRepo.GetByIDForUpdate(txCtx, tx, distributionID)
	if err != nil {
		return nil, nil, err
	}
	if dist.Status != domain.StatusApproved {
		return nil, nil, domain.ErrNotApproved
	}
	if dist.WaterfallApplied {
		return nil, nil, domain.ErrWaterfallApplied
	}

	fund, err := uc.fundRepo.GetContext(txCtx, dist.FundID)
	if err != nil {
		return nil, nil, err
	}

	investors, err := uc.fundRepo.ListOwnership(txCtx, dist.FundID)
	if err != nil {
		return nil, nil, err
	}

	basis, err := uc.waterfallBasis(txCtx, dist, fund)
	if err != nil {
		return nil, nil, err
	}
	basis.Investors = ownershipValues(investors)

	result := waterfall.Apply(basis)

	now := time.Now().UTC()
	dist.WaterfallApplied = true
	dist.ReturnOfCapital = result.ReturnOfCapital
	dist.PreferredReturn = result.PreferredReturn
	dist.GPCatchUp = result.GPCatchUp
	dist.ResidualSplit = result.ResidualSplit
	dist.LPTotal = result.LPTotal
	dist.GPTotal = result.GPTotal
	dist.UpdatedAt = now

	if err := uc.distRepo.ApplyWaterfall(txCtx, tx, dist, now); err != nil {
		return nil, nil, err
	}

	allocations := uc.buildShareAllocations(dist, result.Shares, investors, now)
	if len(allocations) > 0 {
		if err := uc.allocationRepo.CreateBatch(txCtx, tx, allocations); err != nil {
			return nil, nil, err
		}
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   dist.ID,
		AggregateType: string(domain.EntityDistribution),
		EventType:     domain.EventTypeWaterfallApplied,
		Payload: map[string]any{
			"distribution_id":   dist.ID,
			"fund_id":           dist.FundID,
			"total_amount":      dist.TotalAmount.String(),
			"return_of_capital": result.ReturnOfCapital.String(),
			"preferred_return":  result.PreferredReturn.String(),
			"gp_catch_up":       result.GPCatchUp.String(),
			"residual_split":    result.ResidualSplit.String(),
			"lp_total":          result.LPTotal.String(),
			"gp_total":          result.GPTotal.String(),
			"actor_id":          user.ID,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WaterfallsApplied.Inc()
		uc.metrics.WaterfallDuration.Observe(time.Since(start).Seconds())
	}

	uc.logger.Info().
		Str("distribution_id", dist.ID).
		Str("fund_id", dist.FundID).
		Str("lp_total", result.LPTotal.String()).
		Str("gp_total", result.GPTotal.String()).
		Msg("waterfall applied")

	return dist, &result, nil
}

// PreviewWaterfall computes the waterfall for an approved distribution
// without persisting anything.
func (uc *DistributionUseCase) PreviewWaterfall(ctx context.Context, distributionID string) (*waterfall.Result, error) {
	dist, err := uc.distRepo.GetByID(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	if dist.WaterfallApplied {
		return nil, domain.ErrWaterfallApplied
	}

	fund, err := uc.fundRepo.GetContext(ctx, dist.FundID)
	if err != nil {
		return nil, err
	}

	investors, err := uc.fundRepo.ListOwnership(ctx, dist.FundID)
	if err != nil {
		return nil, err
	}

	basis, err := uc.waterfallBasis(ctx, dist, fund)
	if err != nil {
		return nil, err
	}
	basis.Investors = ownershipValues(investors)

	result := waterfall.Apply(basis)
	return &result, nil
}

// waterfallBasis reconstructs the fund's cumulative waterfall position
// from approved capital calls and previously applied distributions.
func (uc *DistributionUseCase) waterfallBasis(ctx context.Context, dist *domain.Distribution, fund *domain.FundContext) (waterfall.Input, error) {
	calls, err := uc.callRepo.ListApprovedByFund(ctx, dist.FundID)
	if err != nil {
		return waterfall.Input{}, err
	}

	applied, err := uc.distRepo.ListAppliedByFund(ctx, dist.FundID)
	if err != nil {
		return waterfall.Input{}, err
	}

	totalCalled := decimal.Zero
	for _, c := range calls {
		totalCalled = totalCalled.Add(c.TotalAmount)
	}

	returned := decimal.Zero
	preferredPaid := decimal.Zero
	priorGPProfit := decimal.Zero
	priorProfit := decimal.Zero
	for _, d := range applied {
		if d.ID == dist.ID {
			continue
		}
		returned = returned.Add(d.ReturnOfCapital)
		preferredPaid = preferredPaid.Add(d.PreferredReturn)
		priorGPProfit = priorGPProfit.Add(d.GPTotal)
		priorProfit = priorProfit.Add(d.PreferredReturn).Add(d.GPCatchUp).Add(d.ResidualSplit)
	}

	unreturned := totalCalled.Sub(returned)
	if unreturned.IsNegative() {
		unreturned = decimal.Zero
	}

	accrued := accruedPreferred(calls, dist.DistributionDate, fund.HurdleRate).Sub(preferredPaid)
	if accrued.IsNegative() {
		accrued = decimal.Zero
	}

	return waterfall.Input{
		Total:                  dist.TotalAmount,
		UnreturnedCapital:      unreturned,
		AccruedPreferred:       accrued,
		PriorGPProfit:          priorGPProfit,
		PriorProfitDistributed: priorProfit,
		Terms: waterfall.Terms{
			HurdleRate:          fund.HurdleRate,
			CarryPct:            fund.CarryPct,
			CatchUpPct:          fund.CatchUpPct,
			ManagementFeeAtExit: fund.ManagementFeeAtExit,
		},
	}, nil
}

// accruedPreferred compounds the hurdle rate on each approved call from
// its call date to the distribution date, actual/365.25.
func accruedPreferred(calls []*domain.CapitalCall, asOf time.Time, hurdleRate decimal.Decimal) decimal.Decimal {
	rate, _ := hurdleRate.Div(hundred).Float64()
	accrued := decimal.Zero

	for _, c := range calls {
		if !c.CallDate.Before(asOf) {
			continue
		}
		years := asOf.Sub(c.CallDate).Hours() / 24 / 365.25
		factor := math.Pow(1+rate, years) - 1
		accrued = accrued.Add(c.TotalAmount.Mul(decimal.NewFromFloat(factor)))
	}

	return accrued.Round(2)
}

func (uc *DistributionUseCase) buildShareAllocations(dist *domain.Distribution, shares []waterfall.InvestorShare, investors []*domain.InvestorOwnership, now time.Time) []*domain.Allocation {
	byID := make(map[string]*domain.InvestorOwnership, len(investors))
	for _, inv := range investors {
		byID[inv.InvestorID] = inv
	}

	allocations := make([]*domain.Allocation, 0, len(shares))
	for _, s := range shares {
		a := &domain.Allocation{
			ID:              uc.idGen.Generate(),
			EntityType:      domain.EntityDistribution,
			EntityID:        dist.ID,
			InvestorID:      s.InvestorID,
			OwnershipPct:    s.OwnershipPct,
			ReturnOfCapital: s.ReturnOfCapital,
			PreferredReturn: s.PreferredReturn,
			Residual:        s.Residual,
			AmountDue:       s.Total,
			AmountPaid:      decimal.Zero,
			Status:          domain.AllocationPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if inv, ok := byID[s.InvestorID]; ok {
			a.Commitment = inv.Commitment
		}
		allocations = append(allocations, a)
	}

	return allocations
}

// GetDistribution fetches a distribution by ID.
func (uc *DistributionUseCase) GetDistribution(ctx context.Context, id string) (*domain.Distribution, error) {
	return uc.distRepo.GetByID(ctx, id)
}

// ListDistributions lists a fund's distributions, newest first.
func (uc *DistributionUseCase) ListDistributions(ctx context.Context, fundID string, limit, offset int) ([]*domain.Distribution, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.distRepo.ListByFund(ctx, fundID, limit, offset)
}

// ListAllocations lists the per-investor allocations of a distribution.
func (uc *DistributionUseCase) ListAllocations(ctx context.Context, distributionID string) ([]*domain.Allocation, error) {
	if _, err := uc.distRepo.GetByID(ctx, distributionID); err != nil {
		return nil, err
	}
	return uc.allocationRepo.ListByEntity(ctx, domain.EntityDistribution, distributionID)
}

func ownershipValues(investors []*domain.InvestorOwnership) []domain.InvestorOwnership {
	out := make([]domain.InvestorOwnership, len(investors))
	for i, inv := range investors {
		out[i] = *inv
	}
	return out
}
