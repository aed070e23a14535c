package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domain "github.com/mediator/backend/internal/domain/sync"
)

// MockSourceGateway is a mock implementation of domain.SourceGateway
type MockSourceGateway struct {
	mock.Mock
}

func (m *MockSourceGateway) ChangedSince(ctx context.Context, since time.Time, page, pageSize int) (*domain.SourcePage, error) {
	args := m.Called(ctx, since, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourcePage), args.Error(1)
}

func (m *MockSourceGateway) FindBySKU(ctx context.Context, sku string) (*domain.SourceRecord, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceRecord), args.Error(1)
}

func (m *MockSourceGateway) UseMode(mode domain.Mode) {
	m.Called(mode)
}

// MockDestinationGateway is a mock implementation of domain.DestinationGateway
type MockDestinationGateway struct {
	mock.Mock
}

func (m *MockDestinationGateway) Upsert(ctx context.Context, payload domain.DestinationPayload, destinationID string) (*domain.PushResult, error) {
	args := m.Called(ctx, payload, destinationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PushResult), args.Error(1)
}

func (m *MockDestinationGateway) FindBySKU(ctx context.Context, sku string) (*domain.DestinationProduct, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DestinationProduct), args.Error(1)
}

func (m *MockDestinationGateway) UseMode(mode domain.Mode) {
	m.Called(mode)
}

func (m *MockDestinationGateway) SetRetryPolicy(maxRetries int, baseDelay time.Duration) {
	m.Called(maxRetries, baseDelay)
}

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySourceID(ctx context.Context, sourceID int64) (*domain.Product, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdatePushState(ctx context.Context, sku, destinationID, fingerprint string, state domain.NormalizedProduct, pushedAt time.Time) error {
	args := m.Called(ctx, sku, destinationID, fingerprint, state, pushedAt)
	return args.Error(0)
}

func (m *MockProductRepository) CountTotal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountPushed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockCursorStore is a mock implementation of domain.CursorStore
type MockCursorStore struct {
	mock.Mock
}

func (m *MockCursorStore) Get(ctx context.Context) (domain.Cursor, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Cursor), args.Error(1)
}

func (m *MockCursorStore) Advance(ctx context.Context, cursor domain.Cursor) error {
	args := m.Called(ctx, cursor)
	return args.Error(0)
}

// MockAuditRecorder is a mock implementation of domain.AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) CreateRun(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAuditRecorder) CloseRun(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAuditRecorder) RecordEntry(ctx context.Context, entry *domain.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRecorder) RecordError(ctx context.Context, itemErr *domain.ItemError) error {
	args := m.Called(ctx, itemErr)
	return args.Error(0)
}

func (m *MockAuditRecorder) LastRun(ctx context.Context) (*domain.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockAuditRecorder) GetEntry(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LogEntry), args.Error(1)
}

func (m *MockAuditRecorder) ListEntries(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.LogEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditRecorder) ListErrors(ctx context.Context, runID uuid.UUID) ([]domain.ItemError, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ItemError), args.Error(1)
}

// MockSettingsStore is a mock implementation of domain.SettingsStore
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Settings), args.Error(1)
}

func (m *MockSettingsStore) Update(ctx context.Context, settings domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}
