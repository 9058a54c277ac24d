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

type distributionFixture struct {
	uc          *usecase.DistributionUseCase
	dists       *mocks.MockDistributionRepository
	calls       *mocks.MockCapitalCallRepository
	allocations *mocks.MockAllocationRepository
	funds       *mocks.MockFundRepository
	outbox      *mocks.MockOutboxRepository
}

func newDistributionFixture() *distributionFixture {
	dists := mocks.NewMockDistributionRepository()
	calls := mocks.NewMockCapitalCallRepository()
	allocations := mocks.NewMockAllocationRepository()
	funds := mocks.NewMockFundRepository()
	outbox := mocks.NewMockOutboxRepository()

	uc := usecase.NewDistributionUseCase(
		mocks.NewMockTransactionManager(),
		dists,
		calls,
		allocations,
		funds,
		outbox,
		mocks.NewMockIDGenerator(),
		zerolog.Nop(),
		nil,
	)

	return &distributionFixture{uc: uc, dists: dists, calls: calls, allocations: allocations, funds: funds, outbox: outbox}
}

func seedFund(f *distributionFixture) {
	f.funds.SeedFund(&domain.FundContext{
		ID:         "fund-1",
		Name:       "Growth Fund I",
		Currency:   "USD",
		HurdleRate: decimal.NewFromInt(8),
		CarryPct:   decimal.NewFromInt(20),
		CatchUpPct: decimal.NewFromInt(100),
	})
	f.funds.SeedOwnership("fund-1", []*domain.InvestorOwnership{
		{InvestorID: "inv-a", FundID: "fund-1", Commitment: decimal.NewFromInt(6_000_000), OwnershipPct: decimal.NewFromInt(60)},
		{InvestorID: "inv-b", FundID: "fund-1", Commitment: decimal.NewFromInt(4_000_000), OwnershipPct: decimal.NewFromInt(40)},
	})
}

func TestDistributionUseCase_CreateDistribution(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)

	dist, err := f.uc.CreateDistribution(adminCtx("admin-1"), usecase.CreateDistributionInput{
		FundID:           "fund-1",
		TotalAmount:      decimal.NewFromInt(500_000),
		DistributionDate: time.Now(),
		Source:           "exit proceeds",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dist.Status != domain.StatusDraft {
		t.Errorf("status = %s, want draft", dist.Status)
	}
	if dist.WaterfallApplied {
		t.Error("waterfall applied on a fresh distribution")
	}
	if !dist.ReturnOfCapital.IsZero() || !dist.LPTotal.IsZero() {
		t.Error("tier amounts must be zero before the waterfall runs")
	}
}

func TestDistributionUseCase_CreateDistributionRejections(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)

	_, err := f.uc.CreateDistribution(viewerCtx("viewer-1"), usecase.CreateDistributionInput{
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(1000),
	})
	if !errors.Is(err, domain.ErrInsufficientRole) {
		t.Errorf("viewer error = %v, want ErrInsufficientRole", err)
	}

	_, err = f.uc.CreateDistribution(adminCtx("admin-1"), usecase.CreateDistributionInput{
		FundID:      "fund-missing",
		TotalAmount: decimal.NewFromInt(1000),
	})
	if !errors.Is(err, domain.ErrFundNotFound) {
		t.Errorf("missing fund error = %v, want ErrFundNotFound", err)
	}

	_, err = f.uc.CreateDistribution(adminCtx("admin-1"), usecase.CreateDistributionInput{
		FundID: "fund-1",
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
}

func seedApprovedDistribution(f *distributionFixture, id string, amount int64) {
	f.dists.Seed(&domain.Distribution{
		ID:               id,
		FundID:           "fund-1",
		TotalAmount:      decimal.NewFromInt(amount),
		DistributionDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:           domain.StatusApproved,
		CreatedBy:        "admin-1",
	})
}

func TestDistributionUseCase_ApplyWaterfall(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)

	// 6M called two years before the distribution date.
	f.calls.Seed(&domain.CapitalCall{
		ID:          "call-1",
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(6_000_000),
		CallDate:    time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusApproved,
		CreatedBy:   "admin-1",
	})
	seedApprovedDistribution(f, "dist-1", 7_000_000)

	dist, result, err := f.uc.ApplyWaterfall(adminCtx("admin-1"), "dist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !dist.WaterfallApplied {
		t.Error("waterfall applied flag not set")
	}
	if !dist.ReturnOfCapital.Equal(decimal.NewFromInt(6_000_000)) {
		t.Errorf("return of capital = %s, want 6000000", dist.ReturnOfCapital)
	}

	// Tiers must consume exactly the distribution total.
	tierSum := result.ReturnOfCapital.
		Add(result.PreferredReturn).
		Add(result.GPCatchUp).
		Add(result.ResidualSplit).
		Add(result.ManagementFeeAtExit)
	if !tierSum.Equal(dist.TotalAmount) {
		t.Errorf("tier sum = %s, want %s", tierSum, dist.TotalAmount)
	}

	// Preferred return covers the compounded 8% hurdle on 6M over 2 years.
	if result.PreferredReturn.LessThan(decimal.NewFromInt(990_000)) ||
		result.PreferredReturn.GreaterThan(decimal.NewFromInt(1_000_000)) {
		t.Errorf("preferred return = %s, want ~998400", result.PreferredReturn)
	}

	// Per-investor allocations persisted for the LP side.
	allocs, _ := f.allocations.ListByEntity(context.Background(), domain.EntityDistribution, "dist-1")
	if len(allocs) != 2 {
		t.Fatalf("allocations = %d, want 2", len(allocs))
	}
	shareSum := decimal.Zero
	for _, a := range allocs {
		shareSum = shareSum.Add(a.AmountDue)
	}
	if !shareSum.Equal(result.LPTotal) {
		t.Errorf("share sum = %s, want LP total %s", shareSum, result.LPTotal)
	}

	events := f.outbox.Events()
	if len(events) != 1 || events[0].EventType != domain.EventTypeWaterfallApplied {
		t.Errorf("outbox events = %+v, want one waterfall_applied", events)
	}
}

func TestDistributionUseCase_ApplyWaterfallGuards(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)

	f.dists.Seed(&domain.Distribution{
		ID:          "dist-draft",
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(1000),
		Status:      domain.StatusDraft,
		CreatedBy:   "admin-1",
	})

	_, _, err := f.uc.ApplyWaterfall(adminCtx("admin-1"), "dist-draft")
	if !errors.Is(err, domain.ErrNotApproved) {
		t.Errorf("draft error = %v, want ErrNotApproved", err)
	}

	_, _, err = f.uc.ApplyWaterfall(viewerCtx("viewer-1"), "dist-draft")
	if !errors.Is(err, domain.ErrInsufficientRole) {
		t.Errorf("viewer error = %v, want ErrInsufficientRole", err)
	}

	_, _, err = f.uc.ApplyWaterfall(adminCtx("admin-1"), "dist-missing")
	if !errors.Is(err, domain.ErrDistributionNotFound) {
		t.Errorf("missing error = %v, want ErrDistributionNotFound", err)
	}
}

func TestDistributionUseCase_ApplyWaterfallTwice(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)
	seedApprovedDistribution(f, "dist-1", 1_000_000)

	ctx := adminCtx("admin-1")
	if _, _, err := f.uc.ApplyWaterfall(ctx, "dist-1"); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	_, _, err := f.uc.ApplyWaterfall(ctx, "dist-1")
	if !errors.Is(err, domain.ErrWaterfallApplied) {
		t.Errorf("second apply error = %v, want ErrWaterfallApplied", err)
	}

	// Only the first apply produced allocations and an event.
	allocs, _ := f.allocations.ListByEntity(context.Background(), domain.EntityDistribution, "dist-1")
	if len(allocs) != 2 {
		t.Errorf("allocations = %d, want 2", len(allocs))
	}
	if len(f.outbox.Events()) != 1 {
		t.Errorf("outbox events = %d, want 1", len(f.outbox.Events()))
	}
}

func TestDistributionUseCase_SecondDistributionSeesPriorTiers(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)

	f.calls.Seed(&domain.CapitalCall{
		ID:          "call-1",
		FundID:      "fund-1",
		TotalAmount: decimal.NewFromInt(6_000_000),
		CallDate:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusApproved,
		CreatedBy:   "admin-1",
	})

	ctx := adminCtx("admin-1")
	seedApprovedDistribution(f, "dist-1", 4_000_000)
	first, _, err := f.uc.ApplyWaterfall(ctx, "dist-1")
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !first.ReturnOfCapital.Equal(decimal.NewFromInt(4_000_000)) {
		t.Fatalf("first return of capital = %s, want 4000000", first.ReturnOfCapital)
	}

	seedApprovedDistribution(f, "dist-2", 4_000_000)
	second, _, err := f.uc.ApplyWaterfall(ctx, "dist-2")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	// Only 2M of capital remains unreturned; the rest flows to profit tiers.
	if !second.ReturnOfCapital.Equal(decimal.NewFromInt(2_000_000)) {
		t.Errorf("second return of capital = %s, want 2000000", second.ReturnOfCapital)
	}
	if second.PreferredReturn.IsZero() {
		t.Error("second distribution should pay preferred return")
	}
	if second.GPTotal.IsZero() {
		t.Error("second distribution should carry GP profit")
	}
}

func TestDistributionUseCase_PreviewWaterfall(t *testing.T) {
	f := newDistributionFixture()
	seedFund(f)
	seedApprovedDistribution(f, "dist-1", 1_000_000)

	result, err := f.uc.PreviewWaterfall(context.Background(), "dist-1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if result.LPTotal.Add(result.GPTotal).IsZero() {
		t.Error("preview produced empty result")
	}

	// Preview persists nothing.
	stored, _ := f.dists.GetByID(context.Background(), "dist-1")
	if stored.WaterfallApplied {
		t.Error("preview must not flip the applied flag")
	}
	if len(f.outbox.Events()) != 0 {
		t.Errorf("outbox events = %d, want 0", len(f.outbox.Events()))
	}
}
