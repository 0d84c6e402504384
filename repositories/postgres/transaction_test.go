package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

func newTxTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &DB{DB: sqlDB}, mock
}

func txTestDocument(businessID uuid.UUID) *models.Document {
	now := time.Now()
	return &models.Document{
		Collection: "orders",
		ID:         "o-1",
		BusinessID: &businessID,
		Data:       map[string]interface{}{"status": "open"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInTransaction_SharedAcrossRepositories(t *testing.T) {
	db, mock := newTxTestDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	store := NewDocumentStore(db, zap.NewNop())
	businesses := NewBusinessRepository(db, zap.NewNop())

	businessID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("jsonb_set").
		WithArgs(businessID, "documents", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(ctx context.Context) error {
		if err := store.Insert(ctx, txTestDocument(businessID)); err != nil {
			return err
		}
		return businesses.IncrementUsage(ctx, businessID, "documents", 1)
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newTxTestDB(t)
	tm := NewTransactionManager(db, zap.NewNop())
	store := NewDocumentStore(db, zap.NewNop())

	businessID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := tm.InTransaction(context.Background(), func(ctx context.Context) error {
		if err := store.Insert(ctx, txTestDocument(businessID)); err != nil {
			return err
		}
		return services.ErrCrossTenantAccess
	})

	assert.ErrorIs(t, err, services.ErrCrossTenantAccess)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_CommitFailureSurfaces(t *testing.T) {
	db, mock := newTxTestDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(assert.AnError)

	err := tm.InTransaction(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutor_FallsBackToPool(t *testing.T) {
	db, _ := newTxTestDB(t)

	executor := GetExecutor(context.Background(), db)
	assert.Equal(t, Executor(db.DB), executor)
}
