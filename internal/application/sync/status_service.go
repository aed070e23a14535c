package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/mediator/backend/internal/domain/sync"
)

// NextRunProvider reports when the scheduler will fire the next cycle.
type NextRunProvider interface {
	NextRunAt() *time.Time
}

// StatusService is the operator-facing read surface: status summary,
// paginated audit log, cross-system product check and settings access.
type StatusService struct {
	products domain.ProductRepository
	audit    domain.AuditRecorder
	dest     domain.DestinationGateway
	settings domain.SettingsStore
	schedule NextRunProvider
	logger   *zap.Logger
}

// NewStatusService creates the read service. schedule may be nil when no
// scheduler is running (tests, one-shot invocations).
func NewStatusService(
	products domain.ProductRepository,
	audit domain.AuditRecorder,
	dest domain.DestinationGateway,
	settings domain.SettingsStore,
	schedule NextRunProvider,
	logger *zap.Logger,
) *StatusService {
	return &StatusService{
		products: products,
		audit:    audit,
		dest:     dest,
		settings: settings,
		schedule: schedule,
		logger:   logger.Named("status"),
	}
}

// Summary builds the sync overview: product totals, the last run and the
// next scheduled one.
func (s *StatusService) Summary(ctx context.Context) (*StatusSummary, error) {
	total, err := s.products.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	pushed, err := s.products.CountPushed(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.products.CountSyncedSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	lastRun, err := s.audit.LastRun(ctx)
	if err != nil && !errors.Is(err, domain.ErrRunNotFound) {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{
		TotalProducts:   total,
		PushedProducts:  pushed,
		PendingProducts: total - pushed,
		SyncedLast24h:   recent,
		LastRun:         lastRun,
		PollInterval:    settings.PollInterval,
	}
	if s.schedule != nil {
		summary.NextRunAt = s.schedule.NextRunAt()
	}
	return summary, nil
}

// Logs lists audit entries, newest first, optionally filtered by a text
// query over SKU and product name.
func (s *StatusService) Logs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.audit.ListEntries(ctx, filter)
}

// LogDetail returns one audit entry with its changed-field diff.
func (s *StatusService) LogDetail(ctx context.Context, id uuid.UUID) (*domain.LogEntry, error) {
	return s.audit.GetEntry(ctx, id)
}

// RunErrors lists the item failures of one run.
func (s *StatusService) RunErrors(ctx context.Context, runID uuid.UUID) ([]domain.ItemError, error) {
	return s.audit.ListErrors(ctx, runID)
}

// CheckProduct returns the local mirror row and the destination's live view
// of one SKU. The destination lookup is best effort; its failure is reported
// in the result, not as an error.
func (s *StatusService) CheckProduct(ctx context.Context, sku string) (*ProductCheck, error) {
	check := &ProductCheck{SKU: sku}

	local, err := s.products.FindBySKU(ctx, sku)
	switch {
	case err == nil:
		check.Local = local
	case errors.Is(err, domain.ErrProductNotFound):
	default:
		return nil, err
	}

	remote, err := s.dest.FindBySKU(ctx, sku)
	switch {
	case err == nil:
		check.Destination = remote
	case errors.Is(err, domain.ErrProductNotFound):
	default:
		s.logger.Warn("destination lookup failed",
			zap.String("sku", sku),
			zap.Error(err),
		)
		check.DestinationError = err.Error()
	}

	if check.Local == nil && check.Destination == nil && check.DestinationError == "" {
		return nil, domain.ErrProductNotFound
	}
	return check, nil
}

// Settings returns the current engine settings.
func (s *StatusService) Settings(ctx context.Context) (domain.Settings, error) {
	return s.settings.Get(ctx)
}

// UpdateSettings validates and persists new engine settings. They take
// effect at the start of the next cycle.
func (s *StatusService) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	if err := s.settings.Update(ctx, settings); err != nil {
		return err
	}
	s.logger.Info("settings updated",
		zap.Duration("poll_interval", settings.PollInterval),
		zap.Int("page_size", settings.PageSize),
		zap.Int("max_retries", settings.MaxRetries),
		zap.Duration("base_retry_delay", settings.BaseRetryDelay),
		zap.String("mode", string(settings.Mode)),
	)
	return nil
}

func validateSettings(settings domain.Settings) error {
	if settings.PollInterval < time.Minute {
		return fmt.Errorf("%w: poll interval must be at least one minute", domain.ErrValidation)
	}
	if settings.PageSize < 1 {
		return fmt.Errorf("%w: page size must be at least 1", domain.ErrValidation)
	}
	if settings.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1", domain.ErrValidation)
	}
	if settings.BaseRetryDelay <= 0 {
		return fmt.Errorf("%w: base retry delay must be positive", domain.ErrValidation)
	}
	if settings.Mode != domain.ModeLive && settings.Mode != domain.ModeTest {
		return fmt.Errorf("%w: unknown sync mode %q", domain.ErrValidation, settings.Mode)
	}
	return nil
}
