package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

func adminCtx(id string) context.Context {
	return domain.WithUser(context.Background(), &domain.User{ID: id, Role: domain.RoleAdmin, Active: true})
}

func cfoCtx(id string) context.Context {
	return domain.WithUser(context.Background(), &domain.User{ID: id, Role: domain.RoleCFO, Active: true})
}

func viewerCtx(id string) context.Context {
	return domain.WithUser(context.Background(), &domain.User{ID: id, Role: domain.RoleViewer, Active: true})
}

type approvalFixture struct {
	uc      *usecase.ApprovalUseCase
	calls   *mocks.MockCapitalCallRepository
	dists   *mocks.MockDistributionRepository
	history *mocks.MockApprovalHistoryRepository
	outbox  *mocks.MockOutboxRepository
}

func newApprovalFixture() *approvalFixture {
	calls := mocks.NewMockCapitalCallRepository()
	dists := mocks.NewMockDistributionRepository()
	history := mocks.NewMockApprovalHistoryRepository()
	outbox := mocks.NewMockOutboxRepository()

	uc := usecase.NewApprovalUseCase(
		mocks.NewMockTransactionManager(),
		calls,
		dists,
		history,
		outbox,
		mocks.NewMockIDGenerator(),
		nil,
	)

	return &approvalFixture{uc: uc, calls: calls, dists: dists, history: history, outbox: outbox}
}

func seedCall(f *approvalFixture, id, createdBy string, status domain.ApprovalStatus) {
	f.calls.Seed(&domain.CapitalCall{
		ID:          id,
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100000),
		CallDate:    time.Now(),
		FeeConfig:   domain.FeeConfig{Base: domain.FeeBaseCommitted},
		Status:      status,
		CreatedBy:   createdBy,
	})
}

func TestApprovalUseCase_SubmitForReview(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusDraft)

	res, err := f.uc.SubmitForReview(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ToStatus != domain.StatusPendingReview {
		t.Errorf("ToStatus = %s, want pending_review", res.ToStatus)
	}

	entries := f.history.Entries()
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Action != domain.ActionSubmitted {
		t.Errorf("action = %s, want submitted", entries[0].Action)
	}

	events := f.outbox.Events()
	if len(events) != 1 {
		t.Fatalf("outbox events = %d, want 1", len(events))
	}
	if events[0].EventType != domain.EventTypeCapitalCallTransitioned {
		t.Errorf("event type = %s", events[0].EventType)
	}
}

func TestApprovalUseCase_DoubleSubmitConflicts(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusDraft)

	ctx := adminCtx("admin-1")
	if _, err := f.uc.SubmitForReview(ctx, domain.EntityCapitalCall, "call-1"); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := f.uc.SubmitForReview(ctx, domain.EntityCapitalCall, "call-1")
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("second submit error = %v, want ErrStatusConflict", err)
	}

	if len(f.history.Entries()) != 1 {
		t.Errorf("history entries = %d, want 1", len(f.history.Entries()))
	}
}

func TestApprovalUseCase_Approve(t *testing.T) {
	tests := []struct {
		name       string
		requireCFO bool
		wantStatus domain.ApprovalStatus
		wantAction domain.ApprovalAction
	}{
		{"direct approval", false, domain.StatusApproved, domain.ActionApproved},
		{"escalated to cfo stage", true, domain.StatusPendingCFO, domain.ActionCFOSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApprovalFixture()
			seedCall(f, "call-1", "admin-1", domain.StatusPendingReview)

			res, err := f.uc.Approve(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1", tt.requireCFO)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ToStatus != tt.wantStatus {
				t.Errorf("ToStatus = %s, want %s", res.ToStatus, tt.wantStatus)
			}
			if res.Entry.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", res.Entry.Action, tt.wantAction)
			}
		})
	}
}

func TestApprovalUseCase_CFOStageLockedToCFO(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusPendingCFO)

	// The creator cannot act at the CFO stage even on its own transaction.
	_, err := f.uc.CFOApprove(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1")
	if !errors.Is(err, domain.ErrCFORequired) {
		t.Errorf("admin at cfo stage error = %v, want ErrCFORequired", err)
	}

	res, err := f.uc.CFOApprove(cfoCtx("cfo-1"), domain.EntityCapitalCall, "call-1")
	if err != nil {
		t.Fatalf("cfo approve: %v", err)
	}
	if res.ToStatus != domain.StatusApproved {
		t.Errorf("ToStatus = %s, want approved", res.ToStatus)
	}
}

func TestApprovalUseCase_AdminActsOnOwnOnly(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusPendingReview)

	_, err := f.uc.Approve(adminCtx("admin-2"), domain.EntityCapitalCall, "call-1", false)
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("foreign admin error = %v, want ErrNotOwner", err)
	}

	_, err = f.uc.Approve(viewerCtx("viewer-1"), domain.EntityCapitalCall, "call-1", false)
	if !errors.Is(err, domain.ErrInsufficientRole) {
		t.Errorf("viewer error = %v, want ErrInsufficientRole", err)
	}

	// The CFO may act on anyone's transaction.
	if _, err := f.uc.Approve(cfoCtx("cfo-1"), domain.EntityCapitalCall, "call-1", false); err != nil {
		t.Errorf("cfo approve: %v", err)
	}
}

func TestApprovalUseCase_RejectRequiresReason(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusPendingReview)

	_, err := f.uc.Reject(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1", "   ")
	if !errors.Is(err, domain.ErrEmptyReason) {
		t.Errorf("blank reason error = %v, want ErrEmptyReason", err)
	}

	res, err := f.uc.Reject(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1", "numbers do not tie out")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.ToStatus != domain.StatusRejected {
		t.Errorf("ToStatus = %s, want rejected", res.ToStatus)
	}
	if res.Entry.Note != "numbers do not tie out" {
		t.Errorf("note = %q", res.Entry.Note)
	}
}

func TestApprovalUseCase_RejectFromCFOStage(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusPendingCFO)

	res, err := f.uc.Reject(cfoCtx("cfo-1"), domain.EntityCapitalCall, "call-1", "declined")
	if err != nil {
		t.Fatalf("reject from cfo stage: %v", err)
	}
	if res.FromStatus != domain.StatusPendingCFO {
		t.Errorf("FromStatus = %s, want pending_cfo", res.FromStatus)
	}
}

func TestApprovalUseCase_RequestChangesReturnsToDraft(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusPendingReview)

	res, err := f.uc.RequestChanges(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1", "split into two calls")
	if err != nil {
		t.Fatalf("request changes: %v", err)
	}
	if res.ToStatus != domain.StatusDraft {
		t.Errorf("ToStatus = %s, want draft", res.ToStatus)
	}

	// The transaction can go through review again afterwards.
	if _, err := f.uc.SubmitForReview(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1"); err != nil {
		t.Errorf("resubmit after changes: %v", err)
	}
}

func TestApprovalUseCase_HistoryFailureAbortsTransition(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusDraft)

	auditErr := errors.New("history insert failed")
	f.history.CreateTxFunc = func(ctx context.Context, tx usecase.Transaction, entry *domain.ApprovalHistoryEntry) error {
		return auditErr
	}

	_, err := f.uc.SubmitForReview(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1")
	if !errors.Is(err, auditErr) {
		t.Fatalf("error = %v, want history failure", err)
	}

	if len(f.outbox.Events()) != 0 {
		t.Errorf("outbox events = %d, want 0 after aborted transition", len(f.outbox.Events()))
	}
}

func TestApprovalUseCase_TerminalStatesFrozen(t *testing.T) {
	for _, status := range []domain.ApprovalStatus{domain.StatusApproved, domain.StatusRejected} {
		f := newApprovalFixture()
		seedCall(f, "call-1", "admin-1", status)

		_, err := f.uc.SubmitForReview(cfoCtx("cfo-1"), domain.EntityCapitalCall, "call-1")
		if !errors.Is(err, domain.ErrStatusConflict) {
			t.Errorf("submit from %s error = %v, want ErrStatusConflict", status, err)
		}
		_, err = f.uc.Reject(cfoCtx("cfo-1"), domain.EntityCapitalCall, "call-1", "too late")
		if !errors.Is(err, domain.ErrStatusConflict) {
			t.Errorf("reject from %s error = %v, want ErrStatusConflict", status, err)
		}
	}
}

func TestApprovalUseCase_UnknownEntityType(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.uc.SubmitForReview(adminCtx("admin-1"), domain.EntityType("portfolio"), "x")
	if !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("error = %v, want ErrUnknownEntityType", err)
	}
}

func TestApprovalUseCase_DistributionLifecycle(t *testing.T) {
	f := newApprovalFixture()
	f.dists.Seed(&domain.Distribution{
		ID:          "dist-1",
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(500000),
		Status:      domain.StatusDraft,
		CreatedBy:   "admin-1",
	})

	ctx := adminCtx("admin-1")
	if _, err := f.uc.SubmitForReview(ctx, domain.EntityDistribution, "dist-1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.uc.Approve(ctx, domain.EntityDistribution, "dist-1", true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.uc.CFOApprove(cfoCtx("cfo-1"), domain.EntityDistribution, "dist-1"); err != nil {
		t.Fatalf("cfo approve: %v", err)
	}

	// Replaying the recorded history must reconstruct the final status.
	entries, err := f.uc.GetHistory(ctx, domain.EntityDistribution, "dist-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	final, err := domain.ReplayHistory(entries)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if final != domain.StatusApproved {
		t.Errorf("replayed status = %s, want approved", final)
	}
}

type countingRetrier struct {
	attempts int
	maxTries int
}

func (r *countingRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < r.maxTries; i++ {
		r.attempts++
		if err = operation(); err == nil {
			return nil
		}
	}
	return err
}

func TestApprovalUseCase_RetriesTransientBeginFailure(t *testing.T) {
	f := newApprovalFixture()
	seedCall(f, "call-1", "admin-1", domain.StatusDraft)

	txManager := mocks.NewMockTransactionManager()
	failures := 1
	txManager.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("deadlock detected")
		}
		return &mocks.MockTransaction{}, nil
	}

	retrier := &countingRetrier{maxTries: 3}
	uc := usecase.NewApprovalUseCase(
		txManager,
		f.calls,
		f.dists,
		f.history,
		f.outbox,
		mocks.NewMockIDGenerator(),
		nil,
	).WithRetrier(retrier)

	res, err := uc.SubmitForReview(adminCtx("admin-1"), domain.EntityCapitalCall, "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ToStatus != domain.StatusPendingReview {
		t.Errorf("ToStatus = %s, want pending_review", res.ToStatus)
	}
	if retrier.attempts != 2 {
		t.Errorf("attempts = %d, want 2", retrier.attempts)
	}
}
