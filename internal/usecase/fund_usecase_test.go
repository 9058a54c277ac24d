package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

type fundFixture struct {
	uc     *usecase.FundUseCase
	funds  *mocks.MockFundRepository
	outbox *mocks.MockOutboxRepository
}

func newFundFixture() *fundFixture {
	funds := mocks.NewMockFundRepository()
	outbox := mocks.NewMockOutboxRepository()

	funds.SeedFund(&domain.FundContext{ID: "fund-1", Name: "Growth Fund I", Currency: "USD"})
	funds.SeedOwnership("fund-1", []*domain.InvestorOwnership{
		{InvestorID: "inv-a", FundID: "fund-1", Commitment: decimal.NewFromInt(6_000_000), OwnershipPct: decimal.NewFromInt(60)},
		{InvestorID: "inv-b", FundID: "fund-1", Commitment: decimal.NewFromInt(4_000_000), OwnershipPct: decimal.NewFromInt(40)},
	})

	uc := usecase.NewFundUseCase(
		mocks.NewMockTransactionManager(),
		funds,
		outbox,
		mocks.NewMockIDGenerator(),
		zerolog.Nop(),
	)

	return &fundFixture{uc: uc, funds: funds, outbox: outbox}
}

func TestFundUseCase_UpdateInvestorCommitment(t *testing.T) {
	f := newFundFixture()

	// Doubling inv-b's commitment shifts ownership to 42.8571/57.1429.
	investors, err := f.uc.UpdateInvestorCommitment(adminCtx("admin-1"), "fund-1", "inv-b", decimal.NewFromInt(8_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]*domain.InvestorOwnership{}
	sum := decimal.Zero
	for _, inv := range investors {
		byID[inv.InvestorID] = inv
		sum = sum.Add(inv.OwnershipPct)
	}

	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("ownership sum = %s, want exactly 100", sum)
	}
	if !byID["inv-b"].OwnershipPct.GreaterThan(byID["inv-a"].OwnershipPct) {
		t.Errorf("inv-b pct %s should exceed inv-a pct %s", byID["inv-b"].OwnershipPct, byID["inv-a"].OwnershipPct)
	}

	events := f.outbox.Events()
	if len(events) != 1 || events[0].EventType != domain.EventTypeCommitmentChanged {
		t.Errorf("outbox events = %+v, want one commitment_changed", events)
	}
}

func TestFundUseCase_UpdateInvestorCommitmentRejections(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		fundID     string
		investorID string
		commitment decimal.Decimal
		wantErr    error
	}{
		{"viewer forbidden", viewerCtx("viewer-1"), "fund-1", "inv-a", decimal.NewFromInt(1), domain.ErrInsufficientRole},
		{"unauthenticated", context.Background(), "fund-1", "inv-a", decimal.NewFromInt(1), domain.ErrUnauthorized},
		{"negative commitment", adminCtx("admin-1"), "fund-1", "inv-a", decimal.NewFromInt(-1), domain.ErrInvalidCommitment},
		{"unknown fund", adminCtx("admin-1"), "fund-x", "inv-a", decimal.NewFromInt(1), domain.ErrFundNotFound},
		{"unknown investor", adminCtx("admin-1"), "fund-1", "inv-x", decimal.NewFromInt(1), domain.ErrInvestorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFundFixture()

			_, err := f.uc.UpdateInvestorCommitment(tt.ctx, tt.fundID, tt.investorID, tt.commitment)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFundUseCase_ZeroCommitmentAllowed(t *testing.T) {
	f := newFundFixture()

	// Full withdrawal: remaining investor absorbs everything.
	investors, err := f.uc.UpdateInvestorCommitment(adminCtx("admin-1"), "fund-1", "inv-b", decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, inv := range investors {
		switch inv.InvestorID {
		case "inv-a":
			if !inv.OwnershipPct.Equal(decimal.NewFromInt(100)) {
				t.Errorf("inv-a pct = %s, want 100", inv.OwnershipPct)
			}
		case "inv-b":
			if !inv.OwnershipPct.IsZero() {
				t.Errorf("inv-b pct = %s, want 0", inv.OwnershipPct)
			}
		}
	}
}
