package sync

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/mediator/backend/internal/domain/sync"
)

// StatusSummary is the operator-facing sync overview.
type StatusSummary struct {
	TotalProducts   int64
	PushedProducts  int64
	PendingProducts int64
	SyncedLast24h   int64
	LastRun         *domain.Run
	PollInterval    time.Duration
	NextRunAt       *time.Time
}

// ProductCheck is the manual cross-system view of one product: the local
// mirror row next to the destination's live state.
type ProductCheck struct {
	SKU              string
	Local            *domain.Product
	Destination      *domain.DestinationProduct
	DestinationError string
}

// SyncProductResult is the outcome of an on-demand single-product sync.
type SyncProductResult struct {
	SKU    string
	Action domain.PushAction
	RunID  uuid.UUID
}
