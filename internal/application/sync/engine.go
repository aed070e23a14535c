package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/mediator/backend/internal/domain/sync"
	"github.com/mediator/backend/internal/infrastructure/logger"
)

// Engine drives sync cycles: poll the source for changes, mirror each record
// locally, gate pushes through the fingerprint, push to the destination and
// record every outcome. At most one cycle runs at a time; the run-lock covers
// both the scheduled and the on-demand entry points.
type Engine struct {
	source   domain.SourceGateway
	dest     domain.DestinationGateway
	products domain.ProductRepository
	cursor   domain.CursorStore
	audit    domain.AuditRecorder
	settings domain.SettingsStore
	logger   *zap.Logger

	// runLock guards cycle entry. TryLock keeps busy triggers from queuing.
	runLock stdsync.Mutex
}

// NewEngine creates a sync engine
func NewEngine(
	source domain.SourceGateway,
	dest domain.DestinationGateway,
	products domain.ProductRepository,
	cursor domain.CursorStore,
	audit domain.AuditRecorder,
	settings domain.SettingsStore,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		source:   source,
		dest:     dest,
		products: products,
		cursor:   cursor,
		audit:    audit,
		settings: settings,
		logger:   logger.Named("engine"),
	}
}

// RunCycle executes one full sync cycle. When a cycle is already running the
// trigger is rejected with ErrSyncInProgress instead of queuing.
func (e *Engine) RunCycle(ctx context.Context) (*domain.Run, error) {
	if !e.runLock.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer e.runLock.Unlock()
	return e.runCycle(ctx)
}

func (e *Engine) runCycle(ctx context.Context) (*domain.Run, error) {
	// Settings are re-read at cycle start so operator changes take effect
	// on the next cycle without a restart.
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	e.applySettings(settings)

	run := domain.NewRun()
	if err := e.audit.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	ctx, log := logger.WithRunID(ctx, e.logger, run.ID.String())

	cursor, err := e.cursor.Get(ctx)
	if err != nil {
		return e.closeFailed(ctx, run, err)
	}

	log.Info("sync cycle started",
		zap.Time("cursor", cursor.LastModifiedAt),
		zap.Bool("initial", cursor.IsZero()),
		zap.String("mode", string(settings.Mode)),
	)

	watermark := cursor
	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return e.closeFailed(ctx, run, err)
		}

		sourcePage, err := e.source.ChangedSince(ctx, cursor.LastModifiedAt, page, settings.PageSize)
		if err != nil {
			// No cursor advance when the poll phase failed; nothing
			// fetched in this cycle is lost.
			return e.closeFailed(ctx, run, err)
		}

		for _, rec := range sourcePage.Records {
			run.Polled++
			if rec.ModifiedAt.After(watermark.LastModifiedAt) {
				watermark = domain.Cursor{LastModifiedAt: rec.ModifiedAt, LastSourceID: rec.SourceID}
			}
			if err := e.processRecord(ctx, run, rec, log); err != nil {
				return e.closeFailed(ctx, run, err)
			}
		}

		if !sourcePage.HasMore {
			break
		}
		page = sourcePage.NextPage
	}

	// The cursor moves once per cycle, to the highest modification time
	// among fetched records. Failed items are retried through their
	// unchanged fingerprints, not by rewinding.
	if watermark.LastModifiedAt.After(cursor.LastModifiedAt) {
		if err := e.cursor.Advance(ctx, watermark); err != nil {
			return e.closeFailed(ctx, run, err)
		}
	}

	run.Complete()
	if err := e.audit.CloseRun(ctx, run); err != nil {
		return run, err
	}

	log.Info("sync cycle finished",
		zap.String("status", string(run.Status)),
		zap.Int("polled", run.Polled),
		zap.Int("pushed", run.Pushed),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
	return run, nil
}

// SyncProduct pushes one named product on demand, re-entering at
// normalization. The cursor is not consulted and not advanced. The current
// settings apply to the on-demand push the same as to a cycle.
func (e *Engine) SyncProduct(ctx context.Context, sku string) (*SyncProductResult, error) {
	if !e.runLock.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer e.runLock.Unlock()

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	e.applySettings(settings)

	rec, err := e.source.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	normalized, err := domain.Normalize(*rec)
	if err != nil {
		return nil, err
	}

	run := domain.NewRun()
	run.Polled = 1
	if err := e.audit.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	ctx, log := logger.WithRunID(ctx, e.logger, run.ID.String())
	log = log.With(zap.String("sku", sku))

	action, err := e.syncOne(ctx, run.ID, normalized, log)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			_, closeErr := e.closeFailed(ctx, run, err)
			return nil, closeErr
		}
		run.Failed = 1
		if recErr := e.audit.RecordError(ctx, domain.NewItemError(run.ID, sku, normalized.SourceID, err)); recErr != nil {
			_, closeErr := e.closeFailed(ctx, run, recErr)
			return nil, closeErr
		}
		run.Complete()
		if closeErr := e.audit.CloseRun(ctx, run); closeErr != nil {
			return nil, closeErr
		}
		return nil, err
	}

	switch action {
	case domain.PushActionSkipped:
		run.Skipped = 1
	default:
		run.Pushed = 1
	}
	run.Complete()
	if err := e.audit.CloseRun(ctx, run); err != nil {
		return nil, err
	}

	log.Info("on-demand sync finished", zap.String("action", string(action)))
	return &SyncProductResult{SKU: sku, Action: action, RunID: run.ID}, nil
}

// applySettings pushes the current mode and retry settings down to the
// gateways so a cycle runs entirely under one consistent configuration.
func (e *Engine) applySettings(settings domain.Settings) {
	e.source.UseMode(settings.Mode)
	e.dest.UseMode(settings.Mode)
	e.dest.SetRetryPolicy(settings.MaxRetries, settings.BaseRetryDelay)
}

// processRecord contains one item's failure within the cycle. Only
// persistence failures (audit or mirror writes) propagate and abort the run.
func (e *Engine) processRecord(ctx context.Context, run *domain.Run, rec domain.SourceRecord, log *zap.Logger) error {
	normalized, err := domain.Normalize(rec)
	if err != nil {
		return e.recordItemFailure(ctx, run, rec.SKU, rec.SourceID, err, log)
	}

	action, err := e.syncOne(ctx, run.ID, normalized, log)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return err
		}
		return e.recordItemFailure(ctx, run, normalized.SKU, normalized.SourceID, err, log)
	}

	if action == domain.PushActionSkipped {
		run.Skipped++
	} else {
		run.Pushed++
	}
	return nil
}

// syncOne mirrors, gates and pushes one normalized product. The returned
// action is Skipped when the stored fingerprint matched. A log entry is
// written only after the destination confirmed the push, and the fingerprint
// only after the entry.
func (e *Engine) syncOne(ctx context.Context, runID uuid.UUID, normalized domain.NormalizedProduct, log *zap.Logger) (domain.PushAction, error) {
	now := time.Now().UTC()

	product := &domain.Product{}
	var prev *domain.NormalizedProduct
	existing, err := e.products.FindBySKU(ctx, normalized.SKU)
	switch {
	case err == nil:
		product = existing
		prev = existing.LastPushedState
	case errors.Is(err, domain.ErrProductNotFound):
	default:
		return "", err
	}

	// The diff baseline is the state the destination last acknowledged,
	// not the mirror row. A push retried after a failed cycle still
	// reports the fields that changed downstream, even though the mirror
	// was already overwritten in the failed attempt.
	changes := domain.Diff(prev, normalized)

	product.Apply(normalized, now)
	if err := e.products.Save(ctx, product); err != nil {
		return "", err
	}

	payload := normalized.Payload()
	fingerprint, err := domain.FingerprintOf(payload)
	if err != nil {
		return "", err
	}
	if product.Fingerprint == fingerprint {
		log.Debug("fingerprint unchanged, skipping push", zap.String("sku", normalized.SKU))
		return domain.PushActionSkipped, nil
	}

	result, err := e.dest.Upsert(ctx, payload, product.DestinationID)
	if err != nil {
		// The fingerprint stays untouched so the next cycle retries.
		return "", err
	}

	entry := domain.NewLogEntry(runID, normalized.SKU, normalized.Name, result.Action, changes)
	if err := e.audit.RecordEntry(ctx, entry); err != nil {
		return "", err
	}
	if err := e.products.UpdatePushState(ctx, normalized.SKU, result.DestinationID, fingerprint, normalized, now); err != nil {
		return "", err
	}

	log.Info("pushed product",
		zap.String("sku", normalized.SKU),
		zap.String("action", string(result.Action)),
		zap.String("destination_id", result.DestinationID),
	)
	return result.Action, nil
}

func (e *Engine) recordItemFailure(ctx context.Context, run *domain.Run, sku string, sourceID int64, cause error, log *zap.Logger) error {
	run.Failed++
	log.Warn("item failed",
		zap.String("sku", sku),
		zap.Error(cause),
	)
	return e.audit.RecordError(ctx, domain.NewItemError(run.ID, sku, sourceID, cause))
}

// closeFailed records a cycle-level failure. The close itself is best effort;
// the original cause wins over a secondary audit error.
func (e *Engine) closeFailed(ctx context.Context, run *domain.Run, cause error) (*domain.Run, error) {
	run.Fail(cause.Error())
	if err := e.audit.CloseRun(ctx, run); err != nil {
		e.logger.Error("failed to close run record",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
	return run, cause
}
