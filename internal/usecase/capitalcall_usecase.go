package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/engine/fee"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

var hundred = decimal.NewFromInt(100)

// CapitalCallUseCase handles capital call creation, fee previews, and
// per-investor allocation generation.
type CapitalCallUseCase struct {
	txManager      TransactionManager
	callRepo       CapitalCallRepository
	allocationRepo AllocationRepository
	fundRepo       FundRepository
	idGen          IDGenerator
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewCapitalCallUseCase creates a new CapitalCallUseCase.
func NewCapitalCallUseCase(
	txManager TransactionManager,
	callRepo CapitalCallRepository,
	allocationRepo AllocationRepository,
	fundRepo FundRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *CapitalCallUseCase {
	return &CapitalCallUseCase{
		txManager:      txManager,
		callRepo:       callRepo,
		allocationRepo: allocationRepo,
		fundRepo:       fundRepo,
		idGen:          idGen,
		logger:         logger,
		metrics:        m,
	}
}

// CreateCapitalCallInput is the request to create a capital call.
// NetInvestedCapital and UnfundedCommitment are fund-level aggregates
// consumed only on the dual-rate fee path; they are prorated across
// investors by ownership percentage.
type CreateCapitalCallInput struct {
	FundID             string
	TotalAmount        decimal.Decimal
	CallDate           time.Time
	FeeConfig          domain.FeeConfig
	NetInvestedCapital decimal.Decimal
	UnfundedCommitment decimal.Decimal
	Metadata           map[string]any
}

// CreateCapitalCall creates a draft capital call together with its
// per-investor allocations. Principals are prorated by ownership
// percentage with the rounding remainder assigned to the largest
// holder, so allocation principals sum exactly to the call total.
func (uc *CapitalCallUseCase) CreateCapitalCall(ctx context.Context, input CreateCapitalCallInput) (*domain.CapitalCall, []*domain.Allocation, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrUnauthorized
	}
	if !user.Role.CanCreate() {
		return nil, nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateAmount(input.TotalAmount); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	call := &domain.CapitalCall{
		ID:          uc.idGen.Generate(),
		FundID:      input.FundID,
		TotalAmount: input.TotalAmount,
		CallDate:    input.CallDate,
		FeeConfig:   input.FeeConfig,
		Status:      domain.StatusDraft,
		CreatedBy:   user.ID,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := call.Validate(); err != nil {
		return nil, nil, err
	}

	investors, err := uc.fundRepo.ListOwnership(ctx, input.FundID)
	if err != nil {
		return nil, nil, err
	}
	if len(investors) == 0 {
		return nil, nil, domain.ErrInvestorNotFound
	}
	if err := domain.ValidateOwnership(investors); err != nil {
		return nil, nil, err
	}

	allocations := uc.buildAllocations(call, input, investors, now)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.callRepo.Create(txCtx, tx, call); err != nil {
		return nil, nil, err
	}
	if err := uc.allocationRepo.CreateBatch(txCtx, tx, allocations); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CapitalCallsCreated.Inc()
	}

	uc.logger.Info().
		Str("capital_call_id", call.ID).
		Str("fund_id", call.FundID).
		Str("total_amount", call.TotalAmount.String()).
		Int("allocations", len(allocations)).
		Msg("capital call created")

	return call, allocations, nil
}

// buildAllocations prorates the call total and computes each investor's
// fee breakdown.
func (uc *CapitalCallUseCase) buildAllocations(call *domain.CapitalCall, input CreateCapitalCallInput, investors []*domain.InvestorOwnership, now time.Time) []*domain.Allocation {
	allocations := make([]*domain.Allocation, len(investors))
	principalSum := decimal.Zero
	largest := 0

	for i, inv := range investors {
		pct := inv.OwnershipPct.Div(hundred)
		principal := call.TotalAmount.Mul(pct).Round(2)
		principalSum = principalSum.Add(principal)

		if inv.OwnershipPct.GreaterThan(investors[largest].OwnershipPct) {
			largest = i
		}

		breakdown := fee.Compute(fee.Input{
			Principal:          principal,
			NetInvestedCapital: input.NetInvestedCapital.Mul(pct).Round(2),
			UnfundedCommitment: input.UnfundedCommitment.Mul(pct).Round(2),
			Config:             call.FeeConfig,
			Terms: fee.InvestorTerms{
				FeeDiscountPct: inv.FeeDiscountPct,
				VATExempt:      inv.VATExempt,
			},
		})

		if breakdown.Clamped {
			uc.recordFeeClamp(call.FundID, inv.InvestorID)
		}

		allocations[i] = &domain.Allocation{
			ID:           uc.idGen.Generate(),
			EntityType:   domain.EntityCapitalCall,
			EntityID:     call.ID,
			InvestorID:   inv.InvestorID,
			OwnershipPct: inv.OwnershipPct,
			Commitment:   inv.Commitment,
			Principal:    principal,
			GrossFee:     breakdown.Gross,
			FeeDiscount:  breakdown.Discount,
			NetFee:       breakdown.Net,
			VAT:          breakdown.VAT,
			AmountDue:    principal.Add(breakdown.Total),
			AmountPaid:   decimal.Zero,
			Status:       domain.AllocationPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	drift := call.TotalAmount.Sub(principalSum)
	if !drift.IsZero() {
		a := allocations[largest]
		a.Principal = a.Principal.Add(drift)
		a.AmountDue = a.AmountDue.Add(drift)
	}

	return allocations
}

// FeePreview is one investor's projected fee for a prospective call.
type FeePreview struct {
	InvestorID string          `json:"investor_id"`
	Principal  decimal.Decimal `json:"principal"`
	Breakdown  fee.Breakdown   `json:"breakdown"`
}

// ComputeFees previews per-investor fees for a prospective capital call
// without persisting anything.
func (uc *CapitalCallUseCase) ComputeFees(ctx context.Context, input CreateCapitalCallInput) ([]FeePreview, error) {
	if err := domain.ValidateAmount(input.TotalAmount); err != nil {
		return nil, err
	}
	if err := input.FeeConfig.Validate(); err != nil {
		return nil, err
	}

	investors, err := uc.fundRepo.ListOwnership(ctx, input.FundID)
	if err != nil {
		return nil, err
	}

	previews := make([]FeePreview, len(investors))
	for i, inv := range investors {
		pct := inv.OwnershipPct.Div(hundred)
		principal := input.TotalAmount.Mul(pct).Round(2)

		breakdown := fee.Compute(fee.Input{
			Principal:          principal,
			NetInvestedCapital: input.NetInvestedCapital.Mul(pct).Round(2),
			UnfundedCommitment: input.UnfundedCommitment.Mul(pct).Round(2),
			Config:             input.FeeConfig,
			Terms: fee.InvestorTerms{
				FeeDiscountPct: inv.FeeDiscountPct,
				VATExempt:      inv.VATExempt,
			},
		})

		if breakdown.Clamped {
			uc.recordFeeClamp(input.FundID, inv.InvestorID)
		}

		previews[i] = FeePreview{
			InvestorID: inv.InvestorID,
			Principal:  principal,
			Breakdown:  breakdown,
		}
	}

	return previews, nil
}

// GetCapitalCall fetches a capital call by ID.
func (uc *CapitalCallUseCase) GetCapitalCall(ctx context.Context, id string) (*domain.CapitalCall, error) {
	return uc.callRepo.GetByID(ctx, id)
}

// ListCapitalCalls lists a fund's capital calls, newest first.
func (uc *CapitalCallUseCase) ListCapitalCalls(ctx context.Context, fundID string, limit, offset int) ([]*domain.CapitalCall, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.callRepo.ListByFund(ctx, fundID, limit, offset)
}

// ListAllocations lists the per-investor allocations of a capital call.
func (uc *CapitalCallUseCase) ListAllocations(ctx context.Context, callID string) ([]*domain.Allocation, error) {
	if _, err := uc.callRepo.GetByID(ctx, callID); err != nil {
		return nil, err
	}
	return uc.allocationRepo.ListByEntity(ctx, domain.EntityCapitalCall, callID)
}

// RecordAllocationPayment records an investor payment against an
// allocation of an approved capital call.
func (uc *CapitalCallUseCase) RecordAllocationPayment(ctx context.Context, callID, allocationID string, amount decimal.Decimal) (*domain.Allocation, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !user.Role.CanCreate() {
		return nil, domain.ErrInsufficientRole
	}

	call, err := uc.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Status != domain.StatusApproved {
		return nil, domain.ErrNotApproved
	}

	allocations, err := uc.allocationRepo.ListByEntity(ctx, domain.EntityCapitalCall, callID)
	if err != nil {
		return nil, err
	}

	var target *domain.Allocation
	for _, a := range allocations {
		if a.ID == allocationID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, domain.ErrAllocationNotFound
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// The paid amount and status are derived inside the UPDATE itself,
	// so a payment recorded between our read and this write is never
	// overwritten.
	updated, err := uc.allocationRepo.AddPayment(txCtx, tx, target.ID, amount, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return updated, nil
}

func (uc *CapitalCallUseCase) recordFeeClamp(fundID, investorID string) {
	uc.logger.Warn().
		Str("fund_id", fundID).
		Str("investor_id", investorID).
		Msg("negative gross fee clamped to zero")

	if uc.metrics != nil {
		uc.metrics.FeeClamps.Inc()
	}
}
