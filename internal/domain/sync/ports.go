package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// Cursor is the watermark of sync progress: the modification time of the
// latest successfully processed source record. It never moves backward.
type Cursor struct {
	LastModifiedAt time.Time
	LastSourceID   int64
}

// IsZero reports whether no sync has completed yet (initial sync).
func (c Cursor) IsZero() bool {
	return c.LastModifiedAt.IsZero()
}

// CursorStore persists the cursor. Advanced only by the orchestrator, once
// per cycle, after the poll phase succeeded.
type CursorStore interface {
	Get(ctx context.Context) (Cursor, error)
	Advance(ctx context.Context, cursor Cursor) error
}

// ---------------------------------------------------------------------------
// Source gateway
// ---------------------------------------------------------------------------

// SourcePage is one page of changed records, ordered by modification time
// ascending.
type SourcePage struct {
	Records  []SourceRecord
	HasMore  bool
	NextPage int
}

// SourceGateway reads product records from the catalog API.
type SourceGateway interface {
	// ChangedSince returns records whose modification time is strictly
	// greater than since. A zero since means everything (initial sync).
	// Fails with ErrSourceUnavailable on network or auth errors.
	ChangedSince(ctx context.Context, since time.Time, page, pageSize int) (*SourcePage, error)

	// FindBySKU fetches a single record for the on-demand path.
	FindBySKU(ctx context.Context, sku string) (*SourceRecord, error)

	// UseMode selects the credential set subsequent calls authenticate
	// with. Applied by the orchestrator before each cycle.
	UseMode(mode Mode)
}

// ---------------------------------------------------------------------------
// Destination gateway
// ---------------------------------------------------------------------------

// PushResult is the outcome of a successful upsert.
type PushResult struct {
	Action        PushAction
	DestinationID string
}

// DestinationProduct is the destination's view of a product, used by the
// operator-facing product check.
type DestinationProduct struct {
	ID       string
	SKU      string
	Name     string
	Barcode  string
	WeightOz string
}

// DestinationGateway writes products to the fulfillment API.
type DestinationGateway interface {
	// Upsert creates the product, falling back to update when the
	// destination reports it already exists, or updates directly when the
	// destination ID is already known. Transient failures are retried per
	// the configured backoff policy before ErrPushFailed surfaces.
	Upsert(ctx context.Context, payload DestinationPayload, destinationID string) (*PushResult, error)

	// FindBySKU fetches the destination's current view of a product.
	FindBySKU(ctx context.Context, sku string) (*DestinationProduct, error)

	// UseMode selects the credential set subsequent calls authenticate
	// with. Applied by the orchestrator before each cycle.
	UseMode(mode Mode)

	// SetRetryPolicy applies the current retry settings to subsequent
	// Upsert calls. Applied by the orchestrator before each cycle so
	// operator changes take effect without a restart.
	SetRetryPolicy(maxRetries int, baseDelay time.Duration)
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// ProductRepository persists the local product mirror, which doubles as the
// fingerprint store.
type ProductRepository interface {
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindBySourceID(ctx context.Context, sourceID int64) (*Product, error)
	Save(ctx context.Context, product *Product) error

	// UpdatePushState records a successful push: destination ID, new
	// fingerprint, the pushed canonical state and push time, in one
	// write. The stored state is the baseline for the next push's diff.
	UpdatePushState(ctx context.Context, sku, destinationID, fingerprint string, state NormalizedProduct, pushedAt time.Time) error

	CountTotal(ctx context.Context) (int64, error)
	CountPushed(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
}

// LogFilter narrows and pages the audit log listing.
type LogFilter struct {
	Query    string // matches SKU or product name, case-insensitive
	Page     int
	PageSize int
}

// AuditRecorder durably records runs, log entries and item errors.
// Failures here are fatal to the cycle: silent loss of audit data is
// unacceptable.
type AuditRecorder interface {
	CreateRun(ctx context.Context, run *Run) error
	CloseRun(ctx context.Context, run *Run) error
	RecordEntry(ctx context.Context, entry *LogEntry) error
	RecordError(ctx context.Context, itemErr *ItemError) error

	LastRun(ctx context.Context) (*Run, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*LogEntry, error)
	ListEntries(ctx context.Context, filter LogFilter) ([]LogEntry, int64, error)
	ListErrors(ctx context.Context, runID uuid.UUID) ([]ItemError, error)
}

// TokenStore persists the OAuth credentials for the fulfillment API, one
// token per mode.
type TokenStore interface {
	Get(ctx context.Context, mode Mode) (*Token, error)
	Save(ctx context.Context, token *Token) error
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Mode selects which credential set a cycle runs against. It is read at
// cycle start and passed through the cycle, never a process-wide global.
type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// Settings are the engine-level knobs operators may change between cycles
// without a restart.
type Settings struct {
	PollInterval   time.Duration
	PageSize       int
	MaxRetries     int
	BaseRetryDelay time.Duration
	Mode           Mode
}

// SettingsStore reads and updates engine settings. Get is called at the
// start of every cycle so changes take effect on the next cycle.
type SettingsStore interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, settings Settings) error
}
