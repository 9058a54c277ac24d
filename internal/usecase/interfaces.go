package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
)

// ApprovableRepository is the persistence surface the approval state
// machine needs: a locked snapshot read and a compare-and-swap status
// write. UpdateStatus must return domain.ErrStatusConflict when the
// persisted status no longer equals expected.
type ApprovableRepository interface {
	GetSnapshotForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ApprovalSnapshot, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error
}

// CapitalCallRepository defines data access for capital calls.
type CapitalCallRepository interface {
	ApprovableRepository
	Create(ctx context.Context, tx Transaction, call *domain.CapitalCall) error
	GetByID(ctx context.Context, id string) (*domain.CapitalCall, error)
	ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.CapitalCall, error)
	ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.CapitalCall, error)
}

// DistributionRepository defines data access for distributions.
type DistributionRepository interface {
	ApprovableRepository
	Create(ctx context.Context, tx Transaction, dist *domain.Distribution) error
	GetByID(ctx context.Context, id string) (*domain.Distribution, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Distribution, error)
	ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.Distribution, error)
	ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error)
	ListAppliedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error)
	// ApplyWaterfall persists tier amounts and flips waterfall_applied
	// conditionally; it returns domain.ErrWaterfallApplied when the flag
	// was already set.
	ApplyWaterfall(ctx context.Context, tx Transaction, dist *domain.Distribution, updatedAt time.Time) error
}

// AllocationRepository defines data access for per-investor allocations.
type AllocationRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, allocations []*domain.Allocation) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.Allocation, error)
	AddPayment(ctx context.Context, tx Transaction, id string, amount decimal.Decimal, updatedAt time.Time) (*domain.Allocation, error)
	SumFeesByFund(ctx context.Context, fundID string) (decimal.Decimal, error)
}

// ApprovalHistoryRepository defines data access for the append-only
// approval history. Entries are never updated or deleted.
type ApprovalHistoryRepository interface {
	CreateTx(ctx context.Context, tx Transaction, entry *domain.ApprovalHistoryEntry) error
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.ApprovalHistoryEntry, error)
	GetByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.ApprovalHistoryEntry, error)
}

// FundRepository defines data access for fund context and ownership.
type FundRepository interface {
	GetContext(ctx context.Context, fundID string) (*domain.FundContext, error)
	ListOwnership(ctx context.Context, fundID string) ([]*domain.InvestorOwnership, error)
	GetOwnershipForUpdate(ctx context.Context, tx Transaction, fundID string) ([]*domain.InvestorOwnership, error)
	UpdateOwnership(ctx context.Context, tx Transaction, investors []*domain.InvestorOwnership) error
}

// OutboxRepository defines data access for notification events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient failures such as deadlocks
// or serialization conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key that starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// IdempotencyInFlight marks a claimed idempotency key whose first
// request has not produced a response yet.
const IdempotencyInFlight = "in-flight"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
