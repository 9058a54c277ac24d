// Package mocks provides hand-rolled mock implementations of the
// usecase interfaces for unit tests. Every mock has an optional Func
// override per method and a default in-memory behavior.
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// MockCapitalCallRepository is a mock implementation of CapitalCallRepository.
type MockCapitalCallRepository struct {
	mu    sync.RWMutex
	calls map[string]*domain.CapitalCall

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, call *domain.CapitalCall) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.CapitalCall, error)
	GetSnapshotForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error)
	UpdateStatusFunc         func(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error
	ListByFundFunc           func(ctx context.Context, fundID string, limit, offset int) ([]*domain.CapitalCall, error)
	ListApprovedByFundFunc   func(ctx context.Context, fundID string) ([]*domain.CapitalCall, error)
}

func NewMockCapitalCallRepository() *MockCapitalCallRepository {
	return &MockCapitalCallRepository{
		calls: make(map[string]*domain.CapitalCall),
	}
}

// Seed stores a capital call directly, bypassing Create.
func (m *MockCapitalCallRepository) Seed(call *domain.CapitalCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[call.ID] = call
}

func (m *MockCapitalCallRepository) Create(ctx context.Context, tx usecase.Transaction, call *domain.CapitalCall) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, call)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[call.ID] = call
	return nil
}

func (m *MockCapitalCallRepository) GetByID(ctx context.Context, id string) (*domain.CapitalCall, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.calls[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCapitalCallNotFound
}

func (m *MockCapitalCallRepository) GetSnapshotForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error) {
	if m.GetSnapshotForUpdateFunc != nil {
		return m.GetSnapshotForUpdateFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.calls[id]; ok {
		return c.Snapshot(), nil
	}
	return nil, domain.ErrCapitalCallNotFound
}

func (m *MockCapitalCallRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, expected, next, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return domain.ErrCapitalCallNotFound
	}
	if c.Status != expected {
		return domain.ErrStatusConflict
	}
	c.Status = next
	c.UpdatedAt = updatedAt
	return nil
}

func (m *MockCapitalCallRepository) ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.CapitalCall, error) {
	if m.ListByFundFunc != nil {
		return m.ListByFundFunc(ctx, fundID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.CapitalCall
	for _, c := range m.calls {
		if c.FundID == fundID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCapitalCallRepository) ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.CapitalCall, error) {
	if m.ListApprovedByFundFunc != nil {
		return m.ListApprovedByFundFunc(ctx, fundID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.CapitalCall
	for _, c := range m.calls {
		if c.FundID == fundID && c.Status == domain.StatusApproved {
			out = append(out, c)
		}
	}
	return out, nil
}

// MockDistributionRepository is a mock implementation of DistributionRepository.
type MockDistributionRepository struct {
	mu    sync.RWMutex
	dists map[string]*domain.Distribution

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.Distribution, error)
	GetByIDForUpdateFunc     func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Distribution, error)
	GetSnapshotForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error)
	UpdateStatusFunc         func(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error
	ListByFundFunc           func(ctx context.Context, fundID string, limit, offset int) ([]*domain.Distribution, error)
	ListApprovedByFundFunc   func(ctx context.Context, fundID string) ([]*domain.Distribution, error)
	ListAppliedByFundFunc    func(ctx context.Context, fundID string) ([]*domain.Distribution, error)
	ApplyWaterfallFunc       func(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution, updatedAt time.Time) error
}

func NewMockDistributionRepository() *MockDistributionRepository {
	return &MockDistributionRepository{
		dists: make(map[string]*domain.Distribution),
	}
}

// Seed stores a distribution directly, bypassing Create.
func (m *MockDistributionRepository) Seed(dist *domain.Distribution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dists[dist.ID] = dist
}

func (m *MockDistributionRepository) Create(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, dist)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dists[dist.ID] = dist
	return nil
}

func (m *MockDistributionRepository) GetByID(ctx context.Context, id string) (*domain.Distribution, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.dists[id]; ok {
		return d, nil
	}
	return nil, domain.ErrDistributionNotFound
}

func (m *MockDistributionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Distribution, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockDistributionRepository) GetSnapshotForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ApprovalSnapshot, error) {
	if m.GetSnapshotForUpdateFunc != nil {
		return m.GetSnapshotForUpdateFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.dists[id]; ok {
		return d.Snapshot(), nil
	}
	return nil, domain.ErrDistributionNotFound
}

func (m *MockDistributionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, expected, next domain.ApprovalStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, expected, next, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dists[id]
	if !ok {
		return domain.ErrDistributionNotFound
	}
	if d.Status != expected {
		return domain.ErrStatusConflict
	}
	d.Status = next
	d.UpdatedAt = updatedAt
	return nil
}

func (m *MockDistributionRepository) ListByFund(ctx context.Context, fundID string, limit, offset int) ([]*domain.Distribution, error) {
	if m.ListByFundFunc != nil {
		return m.ListByFundFunc(ctx, fundID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Distribution
	for _, d := range m.dists {
		if d.FundID == fundID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDistributionRepository) ListApprovedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error) {
	if m.ListApprovedByFundFunc != nil {
		return m.ListApprovedByFundFunc(ctx, fundID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Distribution
	for _, d := range m.dists {
		if d.FundID == fundID && d.Status == domain.StatusApproved {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDistributionRepository) ListAppliedByFund(ctx context.Context, fundID string) ([]*domain.Distribution, error) {
	if m.ListAppliedByFundFunc != nil {
		return m.ListAppliedByFundFunc(ctx, fundID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Distribution
	for _, d := range m.dists {
		if d.FundID == fundID && d.WaterfallApplied {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDistributionRepository) ApplyWaterfall(ctx context.Context, tx usecase.Transaction, dist *domain.Distribution, updatedAt time.Time) error {
	if m.ApplyWaterfallFunc != nil {
		return m.ApplyWaterfallFunc(ctx, tx, dist, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.dists[dist.ID]
	if !ok {
		return domain.ErrDistributionNotFound
	}
	if stored != dist && stored.WaterfallApplied {
		return domain.ErrWaterfallApplied
	}
	m.dists[dist.ID] = dist
	return nil
}

// MockAllocationRepository is a mock implementation of AllocationRepository.
type MockAllocationRepository struct {
	mu          sync.RWMutex
	allocations map[string]*domain.Allocation

	CreateBatchFunc   func(ctx context.Context, tx usecase.Transaction, allocations []*domain.Allocation) error
	ListByEntityFunc  func(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.Allocation, error)
	AddPaymentFunc    func(ctx context.Context, tx usecase.Transaction, id string, amount decimal.Decimal, updatedAt time.Time) (*domain.Allocation, error)
	SumFeesByFundFunc func(ctx context.Context, fundID string) (decimal.Decimal, error)
}

func NewMockAllocationRepository() *MockAllocationRepository {
	return &MockAllocationRepository{
		allocations: make(map[string]*domain.Allocation),
	}
}

func (m *MockAllocationRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, allocations []*domain.Allocation) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, allocations)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range allocations {
		m.allocations[a.ID] = a
	}
	return nil
}

func (m *MockAllocationRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.Allocation, error) {
	if m.ListByEntityFunc != nil {
		return m.ListByEntityFunc(ctx, entityType, entityID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Allocation
	for _, a := range m.allocations {
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAllocationRepository) AddPayment(ctx context.Context, tx usecase.Transaction, id string, amount decimal.Decimal, updatedAt time.Time) (*domain.Allocation, error) {
	if m.AddPaymentFunc != nil {
		return m.AddPaymentFunc(ctx, tx, id, amount, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocations[id]
	if !ok {
		return nil, domain.ErrAllocationNotFound
	}
	if err := a.RecordPayment(amount); err != nil {
		return nil, err
	}
	a.UpdatedAt = updatedAt
	out := *a
	return &out, nil
}

func (m *MockAllocationRepository) SumFeesByFund(ctx context.Context, fundID string) (decimal.Decimal, error) {
	if m.SumFeesByFundFunc != nil {
		return m.SumFeesByFundFunc(ctx, fundID)
	}
	return decimal.Zero, nil
}

// MockApprovalHistoryRepository is a mock implementation of ApprovalHistoryRepository.
type MockApprovalHistoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.ApprovalHistoryEntry

	CreateTxFunc    func(ctx context.Context, tx usecase.Transaction, entry *domain.ApprovalHistoryEntry) error
	ListFunc        func(ctx context.Context, filter domain.HistoryFilter) ([]*domain.ApprovalHistoryEntry, error)
	GetByEntityFunc func(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.ApprovalHistoryEntry, error)
}

func NewMockApprovalHistoryRepository() *MockApprovalHistoryRepository {
	return &MockApprovalHistoryRepository{}
}

func (m *MockApprovalHistoryRepository) CreateTx(ctx context.Context, tx usecase.Transaction, entry *domain.ApprovalHistoryEntry) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockApprovalHistoryRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.ApprovalHistoryEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ApprovalHistoryEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MockApprovalHistoryRepository) GetByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.ApprovalHistoryEntry, error) {
	if m.GetByEntityFunc != nil {
		return m.GetByEntityFunc(ctx, entityType, entityID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ApprovalHistoryEntry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns a copy of all recorded history entries.
func (m *MockApprovalHistoryRepository) Entries() []*domain.ApprovalHistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ApprovalHistoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockFundRepository is a mock implementation of FundRepository.
type MockFundRepository struct {
	mu        sync.RWMutex
	funds     map[string]*domain.FundContext
	ownership map[string][]*domain.InvestorOwnership

	GetContextFunc            func(ctx context.Context, fundID string) (*domain.FundContext, error)
	ListOwnershipFunc         func(ctx context.Context, fundID string) ([]*domain.InvestorOwnership, error)
	GetOwnershipForUpdateFunc func(ctx context.Context, tx usecase.Transaction, fundID string) ([]*domain.InvestorOwnership, error)
	UpdateOwnershipFunc       func(ctx context.Context, tx usecase.Transaction, investors []*domain.InvestorOwnership) error
}

func NewMockFundRepository() *MockFundRepository {
	return &MockFundRepository{
		funds:     make(map[string]*domain.FundContext),
		ownership: make(map[string][]*domain.InvestorOwnership),
	}
}

// SeedFund stores a fund context directly.
func (m *MockFundRepository) SeedFund(fund *domain.FundContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funds[fund.ID] = fund
}

// SeedOwnership stores the investor set for a fund directly.
func (m *MockFundRepository) SeedOwnership(fundID string, investors []*domain.InvestorOwnership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownership[fundID] = investors
}

func (m *MockFundRepository) GetContext(ctx context.Context, fundID string) (*domain.FundContext, error) {
	if m.GetContextFunc != nil {
		return m.GetContextFunc(ctx, fundID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.funds[fundID]; ok {
		return f, nil
	}
	return nil, domain.ErrFundNotFound
}

func (m *MockFundRepository) ListOwnership(ctx context.Context, fundID string) ([]*domain.InvestorOwnership, error) {
	if m.ListOwnershipFunc != nil {
		return m.ListOwnershipFunc(ctx, fundID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownership[fundID], nil
}

func (m *MockFundRepository) GetOwnershipForUpdate(ctx context.Context, tx usecase.Transaction, fundID string) ([]*domain.InvestorOwnership, error) {
	if m.GetOwnershipForUpdateFunc != nil {
		return m.GetOwnershipForUpdateFunc(ctx, tx, fundID)
	}
	return m.ListOwnership(ctx, fundID)
}

func (m *MockFundRepository) UpdateOwnership(ctx context.Context, tx usecase.Transaction, investors []*domain.InvestorOwnership) error {
	if m.UpdateOwnershipFunc != nil {
		return m.UpdateOwnershipFunc(ctx, tx, investors)
	}
	return nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	return nil
}

// Events returns a copy of all recorded events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OutboxEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + string(rune('0'+m.counter))
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc            func(ctx context.Context, key string) ([]byte, error)
	SetFunc            func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc         func(ctx context.Context, key string) error
	DeleteByPrefixFunc func(ctx context.Context, prefix string) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if m.DeleteByPrefixFunc != nil {
		return m.DeleteByPrefixFunc(ctx, prefix)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyInFlight)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
