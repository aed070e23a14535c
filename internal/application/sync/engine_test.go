package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/mediator/backend/internal/domain/sync"
)

type engineFixture struct {
	source   *MockSourceGateway
	dest     *MockDestinationGateway
	products *MockProductRepository
	cursor   *MockCursorStore
	audit    *MockAuditRecorder
	settings *MockSettingsStore
	engine   *Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		source:   new(MockSourceGateway),
		dest:     new(MockDestinationGateway),
		products: new(MockProductRepository),
		cursor:   new(MockCursorStore),
		audit:    new(MockAuditRecorder),
		settings: new(MockSettingsStore),
	}
	f.engine = NewEngine(f.source, f.dest, f.products, f.cursor, f.audit, f.settings, zap.NewNop())
	return f
}

// expectSettings registers the settings read at cycle start plus the mode
// and retry policy the engine pushes down to both gateways.
func (f *engineFixture) expectSettings(settings domain.Settings) {
	f.settings.On("Get", mock.Anything).Return(settings, nil)
	f.source.On("UseMode", settings.Mode).Return()
	f.dest.On("UseMode", settings.Mode).Return()
	f.dest.On("SetRetryPolicy", settings.MaxRetries, settings.BaseRetryDelay).Return()
}

func (f *engineFixture) assertExpectations(t *testing.T) {
	f.source.AssertExpectations(t)
	f.dest.AssertExpectations(t)
	f.products.AssertExpectations(t)
	f.cursor.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.settings.AssertExpectations(t)
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		PollInterval:   10 * time.Minute,
		PageSize:       100,
		MaxRetries:     3,
		BaseRetryDelay: time.Second,
		Mode:           domain.ModeTest,
	}
}

func decVal(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sourceRecord(sku string, modifiedAt time.Time) domain.SourceRecord {
	return domain.SourceRecord{
		SourceID:   42,
		SKU:        sku,
		Name:       "Steel Widget",
		WeightG:    decVal("500"),
		LengthCM:   decVal("10"),
		ModifiedAt: modifiedAt,
	}
}

func fingerprintFor(t *testing.T, rec domain.SourceRecord) string {
	t.Helper()
	normalized, err := domain.Normalize(rec)
	require.NoError(t, err)
	fp, err := domain.FingerprintOf(normalized.Payload())
	require.NoError(t, err)
	return fp
}

func TestEngine_RunCycle_CreatesNewProduct(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := sourceRecord("SKU-1", modified)

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{rec}, HasMore: false, NextPage: 2}, nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)

	var pushedPayload domain.DestinationPayload
	f.dest.On("Upsert", mock.Anything, mock.AnythingOfType("sync.DestinationPayload"), "").
		Run(func(args mock.Arguments) {
			pushedPayload = args.Get(1).(domain.DestinationPayload)
		}).
		Return(&domain.PushResult{Action: domain.PushActionCreated, DestinationID: "P1"}, nil)

	var entry *domain.LogEntry
	f.audit.On("RecordEntry", mock.Anything, mock.AnythingOfType("*sync.LogEntry")).
		Run(func(args mock.Arguments) {
			entry = args.Get(1).(*domain.LogEntry)
		}).
		Return(nil)
	f.products.On("UpdatePushState", mock.Anything, "SKU-1", "P1", fingerprintFor(t, rec), mock.AnythingOfType("sync.NormalizedProduct"), mock.AnythingOfType("time.Time")).
		Return(nil)
	f.cursor.On("Advance", mock.Anything, domain.Cursor{LastModifiedAt: modified, LastSourceID: 42}).Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, 1, run.Polled)
	assert.Equal(t, 1, run.Pushed)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 0, run.Failed)

	// 500 g and 10 cm go out as 17.64 oz and 3.94 in.
	require.NotNil(t, pushedPayload.WeightOz)
	assert.Equal(t, "17.64", pushedPayload.WeightOz.String())
	require.NotNil(t, pushedPayload.LengthIn)
	assert.Equal(t, "3.94", pushedPayload.LengthIn.String())

	require.NotNil(t, entry)
	assert.Equal(t, domain.PushActionCreated, entry.Action)
	assert.Equal(t, "SKU-1", entry.SKU)
	// Full snapshot diff on first sync, old values nil.
	assert.Nil(t, entry.ChangedFields["name"].Old)
	assert.Equal(t, "Steel Widget", entry.ChangedFields["name"].New)

	f.assertExpectations(t)
}

func TestEngine_RunCycle_SkipsUnchangedProduct(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := sourceRecord("SKU-1", modified)

	existing := &domain.Product{
		ID:            7,
		SourceID:      42,
		SKU:           "SKU-1",
		Name:          "Steel Widget",
		WeightG:       decVal("500"),
		LengthCM:      decVal("10"),
		DestinationID: "P1",
		Fingerprint:   fingerprintFor(t, rec),
	}

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{LastModifiedAt: modified.Add(-time.Hour)}, nil)
	f.source.On("ChangedSince", mock.Anything, modified.Add(-time.Hour), 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{rec}}, nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(existing, nil)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)
	f.cursor.On("Advance", mock.Anything, domain.Cursor{LastModifiedAt: modified, LastSourceID: 42}).Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 0, run.Pushed)

	// No destination call and no new audit entry for the unchanged product.
	f.dest.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "RecordEntry", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_ItemFailureDoesNotAbortCycle(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bad := sourceRecord("SKU-BAD", modified)
	good := sourceRecord("SKU-GOOD", modified.Add(time.Minute))
	good.SourceID = 43

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{bad, good}}, nil)

	f.products.On("FindBySKU", mock.Anything, "SKU-BAD").Return(nil, domain.ErrProductNotFound)
	f.products.On("FindBySKU", mock.Anything, "SKU-GOOD").Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)

	f.dest.On("Upsert", mock.Anything, mock.MatchedBy(func(p domain.DestinationPayload) bool { return p.SKU == "SKU-BAD" }), "").
		Return(nil, domain.ErrPushFailed)
	f.dest.On("Upsert", mock.Anything, mock.MatchedBy(func(p domain.DestinationPayload) bool { return p.SKU == "SKU-GOOD" }), "").
		Return(&domain.PushResult{Action: domain.PushActionCreated, DestinationID: "P2"}, nil)

	var itemErr *domain.ItemError
	f.audit.On("RecordError", mock.Anything, mock.AnythingOfType("*sync.ItemError")).
		Run(func(args mock.Arguments) {
			itemErr = args.Get(1).(*domain.ItemError)
		}).
		Return(nil)
	f.audit.On("RecordEntry", mock.Anything, mock.AnythingOfType("*sync.LogEntry")).Return(nil)
	f.products.On("UpdatePushState", mock.Anything, "SKU-GOOD", "P2", mock.AnythingOfType("string"), mock.AnythingOfType("sync.NormalizedProduct"), mock.AnythingOfType("time.Time")).
		Return(nil)
	f.cursor.On("Advance", mock.Anything, domain.Cursor{LastModifiedAt: good.ModifiedAt, LastSourceID: 43}).Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusPartial, run.Status)
	assert.Equal(t, 2, run.Polled)
	assert.Equal(t, 1, run.Pushed)
	assert.Equal(t, 1, run.Failed)

	require.NotNil(t, itemErr)
	assert.Equal(t, "SKU-BAD", itemErr.SKU)
	assert.Equal(t, domain.ErrorClassTransientPush, itemErr.Class)

	// The failed item never got a push-state update; the cursor still
	// advanced past it so the fingerprint drives the retry.
	f.products.AssertNotCalled(t, "UpdatePushState", mock.Anything, "SKU-BAD", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_SourceUnavailableFailsWithoutCursorAdvance(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).Return(nil, domain.ErrSourceUnavailable)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	f.cursor.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_PersistenceFailureAbortsCycle(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := sourceRecord("SKU-1", modified)
	second := sourceRecord("SKU-2", modified.Add(time.Minute))

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{first, second}}, nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).
		Return(domain.ErrPersistence)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	// The cycle stopped at the first record; silent audit loss is not
	// acceptable, so the second item was never attempted.
	f.products.AssertNotCalled(t, "FindBySKU", mock.Anything, "SKU-2")
	f.cursor.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_PagesUntilExhausted(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := sourceRecord("SKU-1", modified)
	second := sourceRecord("SKU-2", modified.Add(time.Minute))
	second.SourceID = 43

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{first}, HasMore: true, NextPage: 2}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 2, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{second}, HasMore: false, NextPage: 3}, nil)

	f.products.On("FindBySKU", mock.Anything, mock.AnythingOfType("string")).Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)
	f.dest.On("Upsert", mock.Anything, mock.AnythingOfType("sync.DestinationPayload"), "").
		Return(&domain.PushResult{Action: domain.PushActionCreated, DestinationID: "P1"}, nil)
	f.audit.On("RecordEntry", mock.Anything, mock.AnythingOfType("*sync.LogEntry")).Return(nil)
	f.products.On("UpdatePushState", mock.Anything, mock.AnythingOfType("string"), "P1", mock.AnythingOfType("string"), mock.AnythingOfType("sync.NormalizedProduct"), mock.AnythingOfType("time.Time")).
		Return(nil)
	f.cursor.On("Advance", mock.Anything, domain.Cursor{LastModifiedAt: second.ModifiedAt, LastSourceID: 43}).Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Polled)
	assert.Equal(t, 2, run.Pushed)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_RejectsConcurrentEntry(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 100).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&domain.SourcePage{}, nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	var wg stdsync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.engine.RunCycle(ctx)
		assert.NoError(t, err)
	}()

	<-started
	// Both entry points are rejected while the cycle holds the run-lock.
	_, err := f.engine.RunCycle(ctx)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	_, err = f.engine.SyncProduct(ctx, "SKU-1")
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(release)
	wg.Wait()
}

func TestEngine_SyncProduct(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	rec := sourceRecord("SKU-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	f.expectSettings(defaultSettings())
	f.source.On("FindBySKU", mock.Anything, "SKU-1").Return(&rec, nil)
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)
	f.dest.On("Upsert", mock.Anything, mock.AnythingOfType("sync.DestinationPayload"), "").
		Return(&domain.PushResult{Action: domain.PushActionCreated, DestinationID: "P1"}, nil)
	f.audit.On("RecordEntry", mock.Anything, mock.AnythingOfType("*sync.LogEntry")).Return(nil)
	f.products.On("UpdatePushState", mock.Anything, "SKU-1", "P1", mock.AnythingOfType("string"), mock.AnythingOfType("sync.NormalizedProduct"), mock.AnythingOfType("time.Time")).
		Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	result, err := f.engine.SyncProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PushActionCreated, result.Action)
	assert.Equal(t, "SKU-1", result.SKU)

	// The on-demand path never touches the cursor.
	f.cursor.AssertNotCalled(t, "Get", mock.Anything)
	f.cursor.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_SyncProduct_UnknownSKU(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	f.expectSettings(defaultSettings())
	f.source.On("FindBySKU", mock.Anything, "SKU-MISSING").Return(nil, domain.ErrProductNotFound)

	_, err := f.engine.SyncProduct(ctx, "SKU-MISSING")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	f.assertExpectations(t)
}

func TestEngine_SyncProduct_PushFailureRecorded(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	rec := sourceRecord("SKU-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	f.expectSettings(defaultSettings())
	f.source.On("FindBySKU", mock.Anything, "SKU-1").Return(&rec, nil)
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(nil, domain.ErrProductNotFound)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)
	f.dest.On("Upsert", mock.Anything, mock.AnythingOfType("sync.DestinationPayload"), "").
		Return(nil, domain.ErrPushFailed)
	f.audit.On("RecordError", mock.Anything, mock.AnythingOfType("*sync.ItemError")).Return(nil)

	var closed *domain.Run
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).
		Run(func(args mock.Arguments) {
			closed = args.Get(1).(*domain.Run)
		}).
		Return(nil)

	_, err := f.engine.SyncProduct(ctx, "SKU-1")
	assert.ErrorIs(t, err, domain.ErrPushFailed)

	require.NotNil(t, closed)
	assert.Equal(t, domain.RunStatusPartial, closed.Status)
	assert.Equal(t, 1, closed.Failed)

	f.products.AssertNotCalled(t, "UpdatePushState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_EmptyPollSucceeds(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	cursorAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{LastModifiedAt: cursorAt}, nil)
	f.source.On("ChangedSince", mock.Anything, cursorAt, 1, 100).Return(&domain.SourcePage{}, nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, 0, run.Polled)

	// No new records, no cursor movement.
	f.cursor.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_AppliesOperatorSettings(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	// Operators bumped the retry knobs and switched to live credentials;
	// the cycle must hand all three to the gateways before polling.
	tuned := domain.Settings{
		PollInterval:   5 * time.Minute,
		PageSize:       50,
		MaxRetries:     5,
		BaseRetryDelay: 2 * time.Second,
		Mode:           domain.ModeLive,
	}
	f.expectSettings(tuned)
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{}, nil)
	f.source.On("ChangedSince", mock.Anything, time.Time{}, 1, 50).Return(&domain.SourcePage{}, nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	_, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)

	f.source.AssertCalled(t, "UseMode", domain.ModeLive)
	f.dest.AssertCalled(t, "UseMode", domain.ModeLive)
	f.dest.AssertCalled(t, "SetRetryPolicy", 5, 2*time.Second)
	f.assertExpectations(t)
}

func TestEngine_RunCycle_DiffAgainstLastPushedState(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	modified := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec := sourceRecord("SKU-1", modified)

	// A previous cycle already overwrote the mirror with the renamed
	// product but failed before the push, so the destination still holds
	// the old name.
	oldRec := sourceRecord("SKU-1", modified.Add(-24*time.Hour))
	oldRec.Name = "Iron Widget"
	pushed, err := domain.Normalize(oldRec)
	require.NoError(t, err)

	existing := &domain.Product{
		ID:              7,
		SourceID:        42,
		SKU:             "SKU-1",
		Name:            "Steel Widget",
		WeightG:         decVal("500"),
		LengthCM:        decVal("10"),
		DestinationID:   "P1",
		Fingerprint:     fingerprintFor(t, oldRec),
		LastPushedState: &pushed,
	}

	f.expectSettings(defaultSettings())
	f.audit.On("CreateRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)
	f.cursor.On("Get", mock.Anything).Return(domain.Cursor{LastModifiedAt: modified.Add(-time.Hour)}, nil)
	f.source.On("ChangedSince", mock.Anything, modified.Add(-time.Hour), 1, 100).
		Return(&domain.SourcePage{Records: []domain.SourceRecord{rec}}, nil)
	f.products.On("FindBySKU", mock.Anything, "SKU-1").Return(existing, nil)
	f.products.On("Save", mock.Anything, mock.AnythingOfType("*sync.Product")).Return(nil)
	f.dest.On("Upsert", mock.Anything, mock.AnythingOfType("sync.DestinationPayload"), "P1").
		Return(&domain.PushResult{Action: domain.PushActionUpdated, DestinationID: "P1"}, nil)

	var entry *domain.LogEntry
	f.audit.On("RecordEntry", mock.Anything, mock.AnythingOfType("*sync.LogEntry")).
		Run(func(args mock.Arguments) {
			entry = args.Get(1).(*domain.LogEntry)
		}).
		Return(nil)

	var storedState domain.NormalizedProduct
	f.products.On("UpdatePushState", mock.Anything, "SKU-1", "P1", fingerprintFor(t, rec), mock.AnythingOfType("sync.NormalizedProduct"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			storedState = args.Get(4).(domain.NormalizedProduct)
		}).
		Return(nil)
	f.cursor.On("Advance", mock.Anything, domain.Cursor{LastModifiedAt: modified, LastSourceID: 42}).Return(nil)
	f.audit.On("CloseRun", mock.Anything, mock.AnythingOfType("*sync.Run")).Return(nil)

	run, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Pushed)

	// Even though the mirror already carried the new name, the entry
	// reports the rename against what the destination last acknowledged.
	require.NotNil(t, entry)
	assert.Equal(t, "Iron Widget", entry.ChangedFields["name"].Old)
	assert.Equal(t, "Steel Widget", entry.ChangedFields["name"].New)
	assert.NotContains(t, entry.ChangedFields, "weight_g")

	// The acknowledged state becomes the baseline for the next diff.
	assert.Equal(t, "Steel Widget", storedState.Name)
	f.assertExpectations(t)
}
