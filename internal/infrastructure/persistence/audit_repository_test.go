package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
)

func newMockAuditRepository(t *testing.T) (*GormAuditRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormAuditRepository(gormDB), mock, mockDB
}

func TestGormAuditRepository_CreateRun(t *testing.T) {
	t.Run("inserts an open run", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		run := sync.NewRun()

		mock.ExpectExec(`INSERT INTO "sync_runs"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CreateRun(context.Background(), run)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("classifies insert failures as persistence errors", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "sync_runs"`).
			WillReturnError(sql.ErrConnDone)

		err := repo.CreateRun(context.Background(), sync.NewRun())

		assert.ErrorIs(t, err, sync.ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_CloseRun(t *testing.T) {
	t.Run("writes final counters and status", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		run := sync.NewRun()
		run.Polled = 5
		run.Pushed = 4
		run.Skipped = 1
		run.Complete()

		mock.ExpectExec(`UPDATE "sync_runs" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CloseRun(context.Background(), run)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_RecordEntry(t *testing.T) {
	t.Run("appends a push record with its field diff", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		entry := sync.NewLogEntry(uuid.New(), "SKU-1", "Widget", sync.PushActionCreated,
			map[string]sync.FieldChange{"name": {Old: nil, New: "Widget"}})

		mock.ExpectExec(`INSERT INTO "sync_logs"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RecordEntry(context.Background(), entry)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_RecordError(t *testing.T) {
	t.Run("appends an item failure", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		itemErr := sync.NewItemError(uuid.New(), "SKU-1", 42, sync.ErrTransientPush)

		mock.ExpectExec(`INSERT INTO "sync_errors"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.RecordError(context.Background(), itemErr)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_LastRun(t *testing.T) {
	t.Run("returns the most recently started run", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		runID := uuid.New()
		started := time.Now().UTC()
		rows := sqlmock.NewRows([]string{"id", "started_at", "status", "polled", "pushed", "skipped", "failed"}).
			AddRow(runID, started, "success", 10, 8, 2, 0)

		mock.ExpectQuery(`SELECT \* FROM "sync_runs" ORDER BY started_at DESC,.* LIMIT .*`).
			WillReturnRows(rows)

		run, err := repo.LastRun(context.Background())

		assert.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, runID, run.ID)
		assert.Equal(t, sync.RunStatusSuccess, run.Status)
		assert.Equal(t, 10, run.Polled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrRunNotFound when no run exists", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "sync_runs" ORDER BY started_at DESC,.* LIMIT .*`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.LastRun(context.Background())

		assert.ErrorIs(t, err, sync.ErrRunNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_ListEntries(t *testing.T) {
	t.Run("filters by SKU or name and pages", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "sync_logs" WHERE sku ILIKE \$1 OR product_name ILIKE \$2`).
			WithArgs("%widget%", "%widget%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		entryID := uuid.New()
		runID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "run_id", "sku", "product_name", "action", "changed_fields", "created_at"}).
			AddRow(entryID, runID, "SKU-1", "Widget", "updated", []byte(`{"name":{"old":"Old","new":"Widget"}}`), time.Now().UTC())

		mock.ExpectQuery(`SELECT \* FROM "sync_logs" WHERE sku ILIKE \$1 OR product_name ILIKE \$2 ORDER BY created_at DESC LIMIT .*`).
			WithArgs("%widget%", "%widget%", 20).
			WillReturnRows(rows)

		entries, total, err := repo.ListEntries(context.Background(), sync.LogFilter{
			Query:    "widget",
			Page:     1,
			PageSize: 20,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, entryID, entries[0].ID)
		assert.Equal(t, sync.PushActionUpdated, entries[0].Action)
		require.Contains(t, entries[0].ChangedFields, "name")
		assert.Equal(t, "Widget", entries[0].ChangedFields["name"].New)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuditRepository_ListErrors(t *testing.T) {
	t.Run("returns item errors for a run", func(t *testing.T) {
		repo, mock, mockDB := newMockAuditRepository(t)
		defer mockDB.Close()

		runID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "run_id", "sku", "source_id", "class", "message", "created_at"}).
			AddRow(uuid.New(), runID, "SKU-1", 42, "TRANSIENT_PUSH", "503 from destination", time.Now().UTC())

		mock.ExpectQuery(`SELECT \* FROM "sync_errors" WHERE run_id = \$1 ORDER BY created_at ASC`).
			WithArgs(runID).
			WillReturnRows(rows)

		itemErrors, err := repo.ListErrors(context.Background(), runID)

		assert.NoError(t, err)
		require.Len(t, itemErrors, 1)
		assert.Equal(t, sync.ErrorClassTransientPush, itemErrors[0].Class)
		assert.Equal(t, int64(42), itemErrors[0].SourceID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
