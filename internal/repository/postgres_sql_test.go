package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestFollowRepository_PostgresUsesOnConflictDoNothing(t *testing.T) {
	db, mock := newMockPostgres(t)
	repo := NewFollowRepository(db)

	mock.ExpectExec(`INSERT INTO "follows" .* ON CONFLICT DO NOTHING`).
		WithArgs(2, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Follow(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.False(t, created, "a conflicting insert affects no rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_PostgresLocksParentBeforeCounting(t *testing.T) {
	db, mock := newMockPostgres(t)
	repo := NewHistoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "histories" WHERE "histories"."id" = \$1 .*FOR UPDATE`).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "info", "user_id"}).AddRow(7, "Saga", "info", 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "characters" WHERE history_id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.DeleteIfChildless(context.Background(), 7)
	assert.ErrorIs(t, err, ErrHasChildren)
	assert.NoError(t, mock.ExpectationsWereMet())
}
