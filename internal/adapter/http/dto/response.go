package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// CapitalCallResponse represents a capital call in API responses.
type CapitalCallResponse struct {
	ID          string          `json:"id"`
	FundID      string          `json:"fund_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CallDate    time.Time       `json:"call_date"`
	Status      string          `json:"status"`
	CreatedBy   string          `json:"created_by"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CapitalCallFromDomain converts a domain capital call to a response.
func CapitalCallFromDomain(c *domain.CapitalCall) *CapitalCallResponse {
	return &CapitalCallResponse{
		ID:          c.ID,
		FundID:      c.FundID,
		TotalAmount: c.TotalAmount,
		CallDate:    c.CallDate,
		Status:      string(c.Status),
		CreatedBy:   c.CreatedBy,
		Metadata:    c.Metadata,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CapitalCallsFromDomain converts domain capital calls to responses.
func CapitalCallsFromDomain(calls []*domain.CapitalCall) []*CapitalCallResponse {
	result := make([]*CapitalCallResponse, len(calls))
	for i, c := range calls {
		result[i] = CapitalCallFromDomain(c)
	}
	return result
}

// DistributionResponse represents a distribution in API responses.
// Tier amounts are zero until the waterfall has been applied.
type DistributionResponse struct {
	ID               string          `json:"id"`
	FundID           string          `json:"fund_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DistributionDate time.Time       `json:"distribution_date"`
	Source           string          `json:"source,omitempty"`
	WaterfallApplied bool            `json:"waterfall_applied"`
	ReturnOfCapital  decimal.Decimal `json:"return_of_capital"`
	PreferredReturn  decimal.Decimal `json:"preferred_return"`
	GPCatchUp        decimal.Decimal `json:"gp_catch_up"`
	ResidualSplit    decimal.Decimal `json:"residual_split"`
	LPTotal          decimal.Decimal `json:"lp_total"`
	GPTotal          decimal.Decimal `json:"gp_total"`
	Status           string          `json:"status"`
	CreatedBy        string          `json:"created_by"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DistributionFromDomain converts a domain distribution to a response.
func DistributionFromDomain(d *domain.Distribution) *DistributionResponse {
	return &DistributionResponse{
		ID:               d.ID,
		FundID:           d.FundID,
		TotalAmount:      d.TotalAmount,
		DistributionDate: d.DistributionDate,
		Source:           d.Source,
		WaterfallApplied: d.WaterfallApplied,
		ReturnOfCapital:  d.ReturnOfCapital,
		PreferredReturn:  d.PreferredReturn,
		GPCatchUp:        d.GPCatchUp,
		ResidualSplit:    d.ResidualSplit,
		LPTotal:          d.LPTotal,
		GPTotal:          d.GPTotal,
		Status:           string(d.Status),
		CreatedBy:        d.CreatedBy,
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// DistributionsFromDomain converts domain distributions to responses.
func DistributionsFromDomain(dists []*domain.Distribution) []*DistributionResponse {
	result := make([]*DistributionResponse, len(dists))
	for i, d := range dists {
		result[i] = DistributionFromDomain(d)
	}
	return result
}

// AllocationResponse represents a per-investor allocation in API responses.
type AllocationResponse struct {
	ID              string          `json:"id"`
	EntityType      string          `json:"entity_type"`
	EntityID        string          `json:"entity_id"`
	InvestorID      string          `json:"investor_id"`
	OwnershipPct    decimal.Decimal `json:"ownership_pct"`
	Principal       decimal.Decimal `json:"principal"`
	GrossFee        decimal.Decimal `json:"gross_fee"`
	FeeDiscount     decimal.Decimal `json:"fee_discount"`
	NetFee          decimal.Decimal `json:"net_fee"`
	VAT             decimal.Decimal `json:"vat"`
	ReturnOfCapital decimal.Decimal `json:"return_of_capital"`
	PreferredReturn decimal.Decimal `json:"preferred_return"`
	Residual        decimal.Decimal `json:"residual"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AllocationFromDomain converts a domain allocation to a response.
func AllocationFromDomain(a *domain.Allocation) *AllocationResponse {
	return &AllocationResponse{
		ID:              a.ID,
		EntityType:      string(a.EntityType),
		EntityID:        a.EntityID,
		InvestorID:      a.InvestorID,
		OwnershipPct:    a.OwnershipPct,
		Principal:       a.Principal,
		GrossFee:        a.GrossFee,
		FeeDiscount:     a.FeeDiscount,
		NetFee:          a.NetFee,
		VAT:             a.VAT,
		ReturnOfCapital: a.ReturnOfCapital,
		PreferredReturn: a.PreferredReturn,
		Residual:        a.Residual,
		AmountDue:       a.AmountDue,
		AmountPaid:      a.AmountPaid,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AllocationsFromDomain converts domain allocations to responses.
func AllocationsFromDomain(allocations []*domain.Allocation) []*AllocationResponse {
	result := make([]*AllocationResponse, len(allocations))
	for i, a := range allocations {
		result[i] = AllocationFromDomain(a)
	}
	return result
}

// TransitionResponse represents the outcome of an approval transition.
type TransitionResponse struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// TransitionFromUseCase converts a transition result to a response.
func TransitionFromUseCase(res *usecase.TransitionResult) *TransitionResponse {
	return &TransitionResponse{
		EntityType: string(res.EntityType),
		EntityID:   res.EntityID,
		FromStatus: string(res.FromStatus),
		ToStatus:   string(res.ToStatus),
	}
}

// HistoryEntryResponse represents an approval history entry.
type HistoryEntryResponse struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	FromStatus string         `json:"from_status"`
	ToStatus   string         `json:"to_status"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Note       string         `json:"note,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// HistoryEntryFromDomain converts a domain history entry to a response.
func HistoryEntryFromDomain(e *domain.ApprovalHistoryEntry) *HistoryEntryResponse {
	return &HistoryEntryResponse{
		ID:         e.ID,
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		Action:     string(e.Action),
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		ActorID:    e.ActorID,
		ActorRole:  string(e.ActorRole),
		Note:       e.Note,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

// HistoryVerificationResponse reports whether replaying an entity's
// history reproduces its persisted status.
type HistoryVerificationResponse struct {
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	CurrentStatus  string `json:"current_status"`
	ReplayedStatus string `json:"replayed_status,omitempty"`
	Consistent     bool   `json:"consistent"`
	Error          string `json:"error,omitempty"`
}

// HistoryEntriesFromDomain converts domain history entries to responses.
func HistoryEntriesFromDomain(entries []*domain.ApprovalHistoryEntry) []*HistoryEntryResponse {
	result := make([]*HistoryEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = HistoryEntryFromDomain(e)
	}
	return result
}

// FundResponse represents fund-level terms in API responses.
type FundResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Currency            string          `json:"currency"`
	TotalCommitment     decimal.Decimal `json:"total_commitment"`
	ManagementFeeRate   decimal.Decimal `json:"management_fee_rate"`
	HurdleRate          decimal.Decimal `json:"hurdle_rate"`
	CarryPct            decimal.Decimal `json:"carry_pct"`
	CatchUpPct          decimal.Decimal `json:"catch_up_pct"`
	ManagementFeeAtExit decimal.Decimal `json:"management_fee_at_exit"`
	CreatedAt           time.Time       `json:"created_at"`
}

// FundFromDomain converts a domain fund context to a response.
func FundFromDomain(f *domain.FundContext) *FundResponse {
	return &FundResponse{
		ID:                  f.ID,
		Name:                f.Name,
		Currency:            f.Currency,
		TotalCommitment:     f.TotalCommitment,
		ManagementFeeRate:   f.ManagementFeeRate,
		HurdleRate:          f.HurdleRate,
		CarryPct:            f.CarryPct,
		CatchUpPct:          f.CatchUpPct,
		ManagementFeeAtExit: f.ManagementFeeAtExit,
		CreatedAt:           f.CreatedAt,
	}
}

// OwnershipResponse represents one investor's stake in API responses.
type OwnershipResponse struct {
	InvestorID     string          `json:"investor_id"`
	FundID         string          `json:"fund_id"`
	Commitment     decimal.Decimal `json:"commitment"`
	OwnershipPct   decimal.Decimal `json:"ownership_pct"`
	FeeDiscountPct decimal.Decimal `json:"fee_discount_pct"`
	VATExempt      bool            `json:"vat_exempt"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OwnershipFromDomain converts a domain ownership record to a response.
func OwnershipFromDomain(inv *domain.InvestorOwnership) *OwnershipResponse {
	return &OwnershipResponse{
		InvestorID:     inv.InvestorID,
		FundID:         inv.FundID,
		Commitment:     inv.Commitment,
		OwnershipPct:   inv.OwnershipPct,
		FeeDiscountPct: inv.FeeDiscountPct,
		VATExempt:      inv.VATExempt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

// OwnershipsFromDomain converts domain ownership records to responses.
func OwnershipsFromDomain(investors []*domain.InvestorOwnership) []*OwnershipResponse {
	result := make([]*OwnershipResponse, len(investors))
	for i, inv := range investors {
		result[i] = OwnershipFromDomain(inv)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
