package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

type capitalCallFixture struct {
	uc          *usecase.CapitalCallUseCase
	calls       *mocks.MockCapitalCallRepository
	allocations *mocks.MockAllocationRepository
	funds       *mocks.MockFundRepository
}

func newCapitalCallFixture() *capitalCallFixture {
	calls := mocks.NewMockCapitalCallRepository()
	allocations := mocks.NewMockAllocationRepository()
	funds := mocks.NewMockFundRepository()

	uc := usecase.NewCapitalCallUseCase(
		mocks.NewMockTransactionManager(),
		calls,
		allocations,
		funds,
		mocks.NewMockIDGenerator(),
		zerolog.Nop(),
		nil,
	)

	return &capitalCallFixture{uc: uc, calls: calls, allocations: allocations, funds: funds}
}

func seedTwoInvestors(f *capitalCallFixture) {
	f.funds.SeedOwnership("fund-1", []*domain.InvestorOwnership{
		{InvestorID: "inv-a", FundID: "fund-1", Commitment: decimal.NewFromInt(6_000_000), OwnershipPct: decimal.NewFromInt(60)},
		{InvestorID: "inv-b", FundID: "fund-1", Commitment: decimal.NewFromInt(4_000_000), OwnershipPct: decimal.NewFromInt(40)},
	})
}

func standardFeeConfig() domain.FeeConfig {
	return domain.FeeConfig{
		Rate:          decimal.NewFromInt(2),
		Base:          domain.FeeBaseCommitted,
		VATRate:       decimal.NewFromInt(16),
		VATApplicable: true,
		Period:        "annual",
	}
}

func TestCapitalCallUseCase_CreateCapitalCall(t *testing.T) {
	f := newCapitalCallFixture()
	seedTwoInvestors(f)

	call, allocations, err := f.uc.CreateCapitalCall(adminCtx("admin-1"), usecase.CreateCapitalCallInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100_000),
		CallDate:    time.Now(),
		FeeConfig:   standardFeeConfig(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if call.Status != domain.StatusDraft {
		t.Errorf("status = %s, want draft", call.Status)
	}
	if call.CreatedBy != "admin-1" {
		t.Errorf("created by = %s", call.CreatedBy)
	}
	if len(allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(allocations))
	}

	byInvestor := map[string]*domain.Allocation{}
	for _, a := range allocations {
		byInvestor[a.InvestorID] = a
	}

	a := byInvestor["inv-a"]
	if !a.Principal.Equal(decimal.NewFromInt(60_000)) {
		t.Errorf("inv-a principal = %s, want 60000", a.Principal)
	}
	// 60000 x 2% = 1200 gross, 16% VAT = 192
	if !a.GrossFee.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("inv-a gross fee = %s, want 1200", a.GrossFee)
	}
	if !a.VAT.Equal(decimal.NewFromInt(192)) {
		t.Errorf("inv-a vat = %s, want 192", a.VAT)
	}
	if !a.AmountDue.Equal(decimal.NewFromInt(61_392)) {
		t.Errorf("inv-a amount due = %s, want 61392", a.AmountDue)
	}

	b := byInvestor["inv-b"]
	if !b.Principal.Equal(decimal.NewFromInt(40_000)) {
		t.Errorf("inv-b principal = %s, want 40000", b.Principal)
	}

	if !domain.SumPrincipals(allocations).Equal(call.TotalAmount) {
		t.Errorf("principals sum %s != total %s", domain.SumPrincipals(allocations), call.TotalAmount)
	}
}

func TestCapitalCallUseCase_PrincipalDriftToLargestHolder(t *testing.T) {
	f := newCapitalCallFixture()
	third := decimal.RequireFromString("33.3333")
	f.funds.SeedOwnership("fund-1", []*domain.InvestorOwnership{
		{InvestorID: "inv-a", FundID: "fund-1", Commitment: decimal.NewFromInt(2_000_000), OwnershipPct: decimal.RequireFromString("33.3334")},
		{InvestorID: "inv-b", FundID: "fund-1", Commitment: decimal.NewFromInt(1_000_000), OwnershipPct: third},
		{InvestorID: "inv-c", FundID: "fund-1", Commitment: decimal.NewFromInt(1_000_000), OwnershipPct: third},
	})

	call, allocations, err := f.uc.CreateCapitalCall(adminCtx("admin-1"), usecase.CreateCapitalCallInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100),
		CallDate:    time.Now(),
		FeeConfig:   domain.FeeConfig{Base: domain.FeeBaseCommitted},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !domain.SumPrincipals(allocations).Equal(call.TotalAmount) {
		t.Errorf("principals sum %s != total %s", domain.SumPrincipals(allocations), call.TotalAmount)
	}
}

func TestCapitalCallUseCase_CreateRejections(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		input   usecase.CreateCapitalCallInput
		wantErr error
	}{
		{
			name: "viewer cannot create",
			ctx:  viewerCtx("viewer-1"),
			input: usecase.CreateCapitalCallInput{
				FundID:      "fund-1",
				TotalAmount: decimal.NewFromInt(1000),
				FeeConfig:   standardFeeConfig(),
			},
			wantErr: domain.ErrInsufficientRole,
		},
		{
			name: "unauthenticated",
			ctx:  context.Background(),
			input: usecase.CreateCapitalCallInput{
				FundID:      "fund-1",
				TotalAmount: decimal.NewFromInt(1000),
			},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name: "zero amount",
			ctx:  adminCtx("admin-1"),
			input: usecase.CreateCapitalCallInput{
				FundID:    "fund-1",
				FeeConfig: standardFeeConfig(),
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "negative fee rate",
			ctx:  adminCtx("admin-1"),
			input: usecase.CreateCapitalCallInput{
				FundID:      "fund-1",
				TotalAmount: decimal.NewFromInt(1000),
				FeeConfig:   domain.FeeConfig{Rate: decimal.NewFromInt(-1), Base: domain.FeeBaseCommitted},
			},
			wantErr: domain.ErrInvalidFeeRate,
		},
		{
			name: "fund without investors",
			ctx:  adminCtx("admin-1"),
			input: usecase.CreateCapitalCallInput{
				FundID:      "fund-empty",
				TotalAmount: decimal.NewFromInt(1000),
				FeeConfig:   standardFeeConfig(),
			},
			wantErr: domain.ErrInvestorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCapitalCallFixture()
			seedTwoInvestors(f)

			_, _, err := f.uc.CreateCapitalCall(tt.ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCapitalCallUseCase_ComputeFees(t *testing.T) {
	f := newCapitalCallFixture()
	f.funds.SeedOwnership("fund-1", []*domain.InvestorOwnership{
		{InvestorID: "inv-a", FundID: "fund-1", OwnershipPct: decimal.NewFromInt(100), FeeDiscountPct: decimal.NewFromInt(50)},
	})

	previews, err := f.uc.ComputeFees(adminCtx("admin-1"), usecase.CreateCapitalCallInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100_000),
		FeeConfig:   standardFeeConfig(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("previews = %d, want 1", len(previews))
	}

	p := previews[0]
	if !p.Breakdown.Gross.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("gross = %s, want 2000", p.Breakdown.Gross)
	}
	if !p.Breakdown.Discount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("discount = %s, want 1000", p.Breakdown.Discount)
	}
	if !p.Breakdown.Net.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("net = %s, want 1000", p.Breakdown.Net)
	}

	// Nothing was persisted.
	stored, _ := f.calls.ListByFund(context.Background(), "fund-1", 10, 0)
	if len(stored) != 0 {
		t.Errorf("stored calls = %d, want 0", len(stored))
	}
}

func TestCapitalCallUseCase_RecordAllocationPayment(t *testing.T) {
	f := newCapitalCallFixture()
	seedTwoInvestors(f)

	ctx := adminCtx("admin-1")
	call, allocations, err := f.uc.CreateCapitalCall(ctx, usecase.CreateCapitalCallInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100_000),
		CallDate:    time.Now(),
		FeeConfig:   standardFeeConfig(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Payments require an approved call.
	_, err = f.uc.RecordAllocationPayment(ctx, call.ID, allocations[0].ID, decimal.NewFromInt(1000))
	if !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("error = %v, want ErrNotApproved", err)
	}

	stored, _ := f.calls.GetByID(ctx, call.ID)
	stored.Status = domain.StatusApproved

	target := allocations[0]
	partial, err := f.uc.RecordAllocationPayment(ctx, call.ID, target.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if partial.Status != domain.AllocationPartial {
		t.Errorf("status = %s, want partial", partial.Status)
	}

	paid, err := f.uc.RecordAllocationPayment(ctx, call.ID, target.ID, target.AmountDue)
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if paid.Status != domain.AllocationPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}

	_, err = f.uc.RecordAllocationPayment(ctx, call.ID, "missing", decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrAllocationNotFound) {
		t.Errorf("error = %v, want ErrAllocationNotFound", err)
	}
}

func TestCapitalCallUseCase_InterleavedPaymentsAccumulate(t *testing.T) {
	f := newCapitalCallFixture()
	seedTwoInvestors(f)

	ctx := adminCtx("admin-1")
	call, allocations, err := f.uc.CreateCapitalCall(ctx, usecase.CreateCapitalCallInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(100_000),
		CallDate:    time.Now(),
		FeeConfig:   standardFeeConfig(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, _ := f.calls.GetByID(ctx, call.ID)
	stored.Status = domain.StatusApproved

	target := allocations[0]

	// Hand every caller the same pre-payment snapshot, the way two
	// concurrent requests would each read the allocation before either
	// payment lands.
	snapshot := make([]*domain.Allocation, len(allocations))
	for i, a := range allocations {
		cp := *a
		snapshot[i] = &cp
	}
	f.allocations.ListByEntityFunc = func(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.Allocation, error) {
		out := make([]*domain.Allocation, len(snapshot))
		for i, a := range snapshot {
			cp := *a
			out[i] = &cp
		}
		return out, nil
	}

	if _, err := f.uc.RecordAllocationPayment(ctx, call.ID, target.ID, decimal.NewFromInt(600)); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	second, err := f.uc.RecordAllocationPayment(ctx, call.ID, target.ID, decimal.NewFromInt(400))
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}

	if !second.AmountPaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("amount paid = %s, want 1000 (second payment must not overwrite the first)", second.AmountPaid)
	}

	f.allocations.ListByEntityFunc = nil
	live, err := f.allocations.ListByEntity(context.Background(), domain.EntityCapitalCall, call.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, a := range live {
		if a.ID == target.ID && !a.AmountPaid.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("stored amount paid = %s, want 1000", a.AmountPaid)
		}
	}
}
