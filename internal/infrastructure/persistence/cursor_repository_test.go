package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mediator/backend/internal/domain/sync"
)

func newMockCursorRepository(t *testing.T) (*GormCursorRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormCursorRepository(gormDB), mock, mockDB
}

func TestGormCursorRepository_Get(t *testing.T) {
	t.Run("returns stored cursor", func(t *testing.T) {
		repo, mock, mockDB := newMockCursorRepository(t)
		defer mockDB.Close()

		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "last_modified_at", "last_source_id"}).
			AddRow(1, at, 77)

		mock.ExpectQuery(`SELECT \* FROM "source_cursors" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(cursorRowID, 1).
			WillReturnRows(rows)

		cursor, err := repo.Get(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, at, cursor.LastModifiedAt)
		assert.Equal(t, int64(77), cursor.LastSourceID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row yields zero cursor, not an error", func(t *testing.T) {
		repo, mock, mockDB := newMockCursorRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "source_cursors" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(cursorRowID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		cursor, err := repo.Get(context.Background())

		assert.NoError(t, err)
		assert.True(t, cursor.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCursorRepository_Advance(t *testing.T) {
	t.Run("rejects a cursor behind the stored watermark", func(t *testing.T) {
		repo, mock, mockDB := newMockCursorRepository(t)
		defer mockDB.Close()

		stored := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "last_modified_at", "last_source_id"}).
			AddRow(1, stored, 10)

		mock.ExpectQuery(`SELECT \* FROM "source_cursors" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(cursorRowID, 1).
			WillReturnRows(rows)
		// No write expected: the stale cursor is dropped.

		err := repo.Advance(context.Background(), sync.Cursor{
			LastModifiedAt: stored.Add(-time.Hour),
			LastSourceID:   9,
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("persists a forward cursor", func(t *testing.T) {
		repo, mock, mockDB := newMockCursorRepository(t)
		defer mockDB.Close()

		stored := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "last_modified_at", "last_source_id"}).
			AddRow(1, stored, 10)

		mock.ExpectQuery(`SELECT \* FROM "source_cursors" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(cursorRowID, 1).
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "source_cursors" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Advance(context.Background(), sync.Cursor{
			LastModifiedAt: stored.Add(time.Hour),
			LastSourceID:   11,
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
