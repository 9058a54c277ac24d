package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

// FundUseCase handles fund context reads and investor commitment
// changes with ownership recomputation.
type FundUseCase struct {
	txManager  TransactionManager
	fundRepo   FundRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	logger     zerolog.Logger
}

// NewFundUseCase creates a new FundUseCase.
func NewFundUseCase(
	txManager TransactionManager,
	fundRepo FundRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
) *FundUseCase {
	return &FundUseCase{
		txManager:  txManager,
		fundRepo:   fundRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		logger:     logger,
	}
}

// GetFund fetches the fund-level terms snapshot.
func (uc *FundUseCase) GetFund(ctx context.Context, fundID string) (*domain.FundContext, error) {
	return uc.fundRepo.GetContext(ctx, fundID)
}

// ListOwnership lists the fund's investors with current ownership.
func (uc *FundUseCase) ListOwnership(ctx context.Context, fundID string) ([]*domain.InvestorOwnership, error) {
	if _, err := uc.fundRepo.GetContext(ctx, fundID); err != nil {
		return nil, err
	}
	return uc.fundRepo.ListOwnership(ctx, fundID)
}

// UpdateInvestorCommitment changes one investor's commitment and
// recomputes every investor's ownership percentage under a row lock so
// concurrent changes cannot interleave. Percentages sum to exactly 100
// after the write.
func (uc *FundUseCase) UpdateInvestorCommitment(ctx context.Context, fundID, investorID string, commitment decimal.Decimal) ([]*domain.InvestorOwnership, error) {
	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !user.Role.CanCreate() {
		return nil, domain.ErrInsufficientRole
	}

	if commitment.IsNegative() {
		return nil, domain.ErrInvalidCommitment
	}

	if _, err := uc.fundRepo.GetContext(ctx, fundID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	investors, err := uc.fundRepo.GetOwnershipForUpdate(txCtx, tx, fundID)
	if err != nil {
		return nil, err
	}

	var target *domain.InvestorOwnership
	for _, inv := range investors {
		if inv.InvestorID == investorID {
			target = inv
			break
		}
	}
	if target == nil {
		return nil, domain.ErrInvestorNotFound
	}

	now := time.Now().UTC()
	previous := target.Commitment
	target.Commitment = commitment

	domain.RecomputeOwnership(investors)
	for _, inv := range investors {
		inv.UpdatedAt = now
	}

	if err := domain.ValidateOwnership(investors); err != nil {
		return nil, err
	}

	if err := uc.fundRepo.UpdateOwnership(txCtx, tx, investors); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   fundID,
		AggregateType: domain.AggregateTypeFund,
		EventType:     domain.EventTypeCommitmentChanged,
		Payload: map[string]any{
			"fund_id":             fundID,
			"investor_id":         investorID,
			"previous_commitment": previous.String(),
			"new_commitment":      commitment.String(),
			"actor_id":            user.ID,
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("fund_id", fundID).
		Str("investor_id", investorID).
		Str("commitment", commitment.String()).
		Msg("investor commitment updated")

	return investors, nil
}
