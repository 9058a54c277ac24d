package domain

import "time"

// Event types
const (
	EventTypeCapitalCallTransitioned  = "capital_call.transitioned"
	EventTypeDistributionTransitioned = "distribution.transitioned"
	EventTypeWaterfallApplied         = "distribution.waterfall_applied"
	EventTypeCommitmentChanged        = "fund.commitment_changed"
)

// Aggregate types
const (
	AggregateTypeCapitalCall  = "capital_call"
	AggregateTypeDistribution = "distribution"
	AggregateTypeFund         = "fund"
)

// OutboxEvent represents a downstream notification to be published.
// Events are written in the same database transaction as the state
// change and delivered fire-and-forget; a delivery failure never rolls
// back the transition that produced it.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransitionedEvent payload
type TransitionedEvent struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	FundID     string `json:"fund_id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ActorID    string `json:"actor_id"`
}

// WaterfallAppliedEvent payload
type WaterfallAppliedEvent struct {
	DistributionID string `json:"distribution_id"`
	FundID         string `json:"fund_id"`
	LPTotal        string `json:"lp_total"`
	GPTotal        string `json:"gp_total"`
	Investors      int    `json:"investors"`
}

// CommitmentChangedEvent payload
type CommitmentChangedEvent struct {
	FundID     string `json:"fund_id"`
	InvestorID string `json:"investor_id"`
	Commitment string `json:"commitment"`
}
