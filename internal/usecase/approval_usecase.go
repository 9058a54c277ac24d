package usecase

import (
	"context"
	"time"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// ApprovalUseCase drives the approval state machine for capital calls
// and distributions. Every transition verifies the persisted status
// against the operation's precondition, performs the status write and
// the history append in one database transaction, and emits an outbox
// event for downstream notification.
type ApprovalUseCase struct {
	txManager   TransactionManager
	repos       map[domain.EntityType]ApprovableRepository
	historyRepo ApprovalHistoryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
}

// NewApprovalUseCase creates a new ApprovalUseCase.
func NewApprovalUseCase(
	txManager TransactionManager,
	callRepo CapitalCallRepository,
	distRepo DistributionRepository,
	historyRepo ApprovalHistoryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
) *ApprovalUseCase {
	return &ApprovalUseCase{
		txManager: txManager,
		repos: map[domain.EntityType]ApprovableRepository{
			domain.EntityCapitalCall:  callRepo,
			domain.EntityDistribution: distRepo,
		},
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		metrics:     m,
	}
}

// WithRetrier makes transitions retry on transient database errors.
// Each attempt re-locks the snapshot and re-checks the precondition.
func (uc *ApprovalUseCase) WithRetrier(r Retrier) *ApprovalUseCase {
	uc.retrier = r
	return uc
}

// TransitionResult is the outcome of a successful transition.
type TransitionResult struct {
	EntityType domain.EntityType
	EntityID   string
	FromStatus domain.ApprovalStatus
	ToStatus   domain.ApprovalStatus
	Entry      *domain.ApprovalHistoryEntry
}

// transition is the single guarded read-modify-write all operations go
// through. The snapshot is locked, the precondition checked against the
// persisted status, authorization derived server-side from the stored
// record, and the conditional status update plus history append commit
// or roll back together.
type transitionSpec struct {
	action       domain.ApprovalAction
	expectedFrom domain.ApprovalStatus
	next         domain.ApprovalStatus
	note         string
}

func (uc *ApprovalUseCase) transition(ctx context.Context, entityType domain.EntityType, id string, spec transitionSpec) (*TransitionResult, error) {
	if uc.retrier == nil {
		return uc.transitionOnce(ctx, entityType, id, spec)
	}

	var res *TransitionResult
	err := uc.retrier.Retry(ctx, func() error {
		var opErr error
		res, opErr = uc.transitionOnce(ctx, entityType, id, spec)
		return opErr
	})

	return res, err
}

func (uc *ApprovalUseCase) transitionOnce(ctx context.Context, entityType domain.EntityType, id string, spec transitionSpec) (*TransitionResult, error) {
	repo, ok := uc.repos[entityType]
	if !ok {
		return nil, domain.ErrUnknownEntityType
	}

	user, ok := domain.UserFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	snapshot, err := repo.GetSnapshotForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	if snapshot.Status != spec.expectedFrom {
		if uc.metrics != nil {
			uc.metrics.TransitionConflicts.Inc()
		}
		return nil, domain.ErrStatusConflict
	}

	if !spec.expectedFrom.CanTransitionTo(spec.next) {
		return nil, domain.ErrIllegalTransition
	}

	if err := snapshot.Authorize(user); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if err := repo.UpdateStatus(txCtx, tx, id, spec.expectedFrom, spec.next, now); err != nil {
		if err == domain.ErrStatusConflict && uc.metrics != nil {
			uc.metrics.TransitionConflicts.Inc()
		}
		return nil, err
	}

	entry := &domain.ApprovalHistoryEntry{
		ID:         uc.idGen.Generate(),
		EntityType: entityType,
		EntityID:   id,
		Action:     spec.action,
		FromStatus: spec.expectedFrom,
		ToStatus:   spec.next,
		ActorID:    user.ID,
		ActorRole:  user.Role,
		Note:       spec.note,
		CreatedAt:  now,
	}

	if err := uc.historyRepo.CreateTx(txCtx, tx, entry); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   id,
		AggregateType: string(entityType),
		EventType:     eventTypeFor(entityType),
		Payload: map[string]any{
			"entity_type": string(entityType),
			"entity_id":   id,
			"fund_id":     snapshot.FundID,
			"action":      string(spec.action),
			"from_status": string(spec.expectedFrom),
			"to_status":   string(spec.next),
			"actor_id":    user.ID,
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

	if uc.metrics != nil {
		uc.metrics.TransitionsExecuted.WithLabelValues(string(entityType), string(spec.action)).Inc()
		uc.metrics.TransitionDuration.Observe(time.Since(start).Seconds())
	}

	return &TransitionResult{
		EntityType: entityType,
		EntityID:   id,
		FromStatus: spec.expectedFrom,
		ToStatus:   spec.next,
		Entry:      entry,
	}, nil
}

// SubmitForReview moves a draft transaction into review.
func (uc *ApprovalUseCase) SubmitForReview(ctx context.Context, entityType domain.EntityType, id string) (*TransitionResult, error) {
	return uc.transition(ctx, entityType, id, transitionSpec{
		action:       domain.ActionSubmitted,
		expectedFrom: domain.StatusDraft,
		next:         domain.StatusPendingReview,
	})
}

// Approve approves a transaction under review. When requireCFO is set
// the transaction advances to the CFO stage instead of final approval.
func (uc *ApprovalUseCase) Approve(ctx context.Context, entityType domain.EntityType, id string, requireCFO bool) (*TransitionResult, error) {
	spec := transitionSpec{
		action:       domain.ActionApproved,
		expectedFrom: domain.StatusPendingReview,
		next:         domain.StatusApproved,
	}
	if requireCFO {
		spec.action = domain.ActionCFOSubmitted
		spec.next = domain.StatusPendingCFO
	}

	return uc.transition(ctx, entityType, id, spec)
}

// CFOApprove finalizes a transaction at the CFO stage. Authorization is
// enforced by the snapshot: only the CFO role may act at pending_cfo.
func (uc *ApprovalUseCase) CFOApprove(ctx context.Context, entityType domain.EntityType, id string) (*TransitionResult, error) {
	return uc.transition(ctx, entityType, id, transitionSpec{
		action:       domain.ActionCFOApproved,
		expectedFrom: domain.StatusPendingCFO,
		next:         domain.StatusApproved,
	})
}

// Reject rejects a transaction with a mandatory reason. Legal from
// pending_review or pending_cfo; at the CFO stage only the CFO may act.
func (uc *ApprovalUseCase) Reject(ctx context.Context, entityType domain.EntityType, id string, reason string) (*TransitionResult, error) {
	if err := domain.ValidateNote(reason, domain.ErrEmptyReason); err != nil {
		return nil, err
	}

	return uc.tryFromReviewStages(ctx, entityType, id, domain.ActionRejected, domain.StatusRejected, reason)
}

// RequestChanges sends a transaction back to draft with mandatory
// notes. Same authorization rule as Reject.
func (uc *ApprovalUseCase) RequestChanges(ctx context.Context, entityType domain.EntityType, id string, notes string) (*TransitionResult, error) {
	if err := domain.ValidateNote(notes, domain.ErrEmptyNotes); err != nil {
		return nil, err
	}

	return uc.tryFromReviewStages(ctx, entityType, id, domain.ActionChangesRequested, domain.StatusDraft, notes)
}

// tryFromReviewStages executes an operation legal from either review
// stage. The first attempt expects pending_review; on a status conflict
// the pending_cfo precondition is tried before giving up, so the caller
// sees a conflict only when the transaction is in neither stage.
func (uc *ApprovalUseCase) tryFromReviewStages(ctx context.Context, entityType domain.EntityType, id string, action domain.ApprovalAction, next domain.ApprovalStatus, note string) (*TransitionResult, error) {
	res, err := uc.transition(ctx, entityType, id, transitionSpec{
		action:       action,
		expectedFrom: domain.StatusPendingReview,
		next:         next,
		note:         note,
	})
	if err != domain.ErrStatusConflict {
		return res, err
	}

	return uc.transition(ctx, entityType, id, transitionSpec{
		action:       action,
		expectedFrom: domain.StatusPendingCFO,
		next:         next,
		note:         note,
	})
}

// GetHistory returns the append-only transition history for an entity.
func (uc *ApprovalUseCase) GetHistory(ctx context.Context, entityType domain.EntityType, id string) ([]*domain.ApprovalHistoryEntry, error) {
	if !entityType.IsValid() {
		return nil, domain.ErrUnknownEntityType
	}

	return uc.historyRepo.GetByEntity(ctx, entityType, id)
}

// ListHistory returns transition history across entities matching the
// filter, newest first.
func (uc *ApprovalUseCase) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]*domain.ApprovalHistoryEntry, error) {
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return nil, domain.ErrUnknownEntityType
	}

	limit, offset, err := domain.ValidatePagination(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	filter.Offset = offset

	return uc.historyRepo.List(ctx, filter)
}

func eventTypeFor(entityType domain.EntityType) string {
	if entityType == domain.EntityDistribution {
		return domain.EventTypeDistributionTransitioned
	}
	return domain.EventTypeCapitalCallTransitioned
}
