package scoped

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"github.com/upb/tenant-control-plane/services/authorize"
	"go.uber.org/zap"
)

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	args := m.Called(ctx, collection, id)
	if doc := args.Get(0); doc != nil {
		return doc.(*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentStore) Query(ctx context.Context, businessID uuid.UUID, collection string, q repositories.DocumentQuery) ([]*models.Document, error) {
	args := m.Called(ctx, businessID, collection, q)
	if docs := args.Get(0); docs != nil {
		return docs.([]*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) Update(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *MockDocumentStore) ApplyBatch(ctx context.Context, businessID uuid.UUID, ops []repositories.DocumentOp) error {
	args := m.Called(ctx, businessID, ops)
	return args.Error(0)
}

func newTestAccessor(store *MockDocumentStore) (*Accessor, uuid.UUID, uuid.UUID) {
	businessID := uuid.New()
	userID := uuid.New()

	business := models.NewBusiness("Acme Retail")
	business.ID = businessID

	authCtx := &authorize.Context{
		UserID:   userID,
		Business: business,
	}

	return NewAccessor(store, authCtx, zap.NewNop()), businessID, userID
}

func ownedDocument(businessID uuid.UUID, collection, id string) *models.Document {
	return &models.Document{
		Collection: collection,
		ID:         id,
		BusinessID: &businessID,
		Data:       map[string]interface{}{"status": "open"},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestRead_Owned(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, _ := newTestAccessor(store)

	doc := ownedDocument(businessID, "orders", "o-1")
	store.On("Get", mock.Anything, "orders", "o-1").Return(doc, nil)

	got, err := accessor.Read(context.Background(), "orders", "o-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestRead_CrossTenant(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	other := uuid.New()
	doc := ownedDocument(other, "orders", "o-1")
	store.On("Get", mock.Anything, "orders", "o-1").Return(doc, nil)

	_, err := accessor.Read(context.Background(), "orders", "o-1")
	assert.ErrorIs(t, err, services.ErrCrossTenantAccess)
	assert.Equal(t, "o-1", services.GetErrorDetails(err)["id"])
}

func TestRead_LegacyDocument(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	// Legacy rows predate tenant stamping and carry no business id
	doc := &models.Document{Collection: "orders", ID: "o-legacy", Data: map[string]interface{}{}}
	store.On("Get", mock.Anything, "orders", "o-legacy").Return(doc, nil)

	got, err := accessor.Read(context.Background(), "orders", "o-legacy")
	require.NoError(t, err)
	assert.Nil(t, got.BusinessID)
}

func TestRead_NotFound(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	store.On("Get", mock.Anything, "orders", "missing").Return(nil, services.ErrDocumentNotFound)

	_, err := accessor.Read(context.Background(), "orders", "missing")
	assert.ErrorIs(t, err, services.ErrDocumentNotFound)
}

func TestCreate_StampsOwnership(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, userID := newTestAccessor(store)

	var inserted *models.Document
	store.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(*models.Document)
	}).Return(nil)

	doc, err := accessor.Create(context.Background(), "orders", "o-2", map[string]interface{}{"total": 42})
	require.NoError(t, err)

	require.NotNil(t, inserted)
	require.NotNil(t, inserted.BusinessID)
	assert.Equal(t, businessID, *inserted.BusinessID)
	require.NotNil(t, inserted.CreatedBy)
	assert.Equal(t, userID, *inserted.CreatedBy)
	assert.False(t, inserted.CreatedAt.IsZero())
	assert.Equal(t, inserted, doc)
}

func TestUpdate_ReverifiesOwnership(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	other := uuid.New()
	store.On("Get", mock.Anything, "orders", "o-1").Return(ownedDocument(other, "orders", "o-1"), nil)

	_, err := accessor.Update(context.Background(), "orders", "o-1", map[string]interface{}{"status": "closed"})
	assert.ErrorIs(t, err, services.ErrCrossTenantAccess)
	store.AssertNotCalled(t, "Update")
}

func TestUpdate_ReplacesData(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, _ := newTestAccessor(store)

	existing := ownedDocument(businessID, "orders", "o-1")
	createdAt := existing.CreatedAt
	store.On("Get", mock.Anything, "orders", "o-1").Return(existing, nil)
	store.On("Update", mock.Anything, mock.Anything).Return(nil)

	doc, err := accessor.Update(context.Background(), "orders", "o-1", map[string]interface{}{"status": "closed"})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"status": "closed"}, doc.Data)
	assert.Equal(t, createdAt, doc.CreatedAt, "creation metadata is preserved")
	assert.Equal(t, businessID, *doc.BusinessID)
}

func TestDelete_ReverifiesOwnership(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	other := uuid.New()
	store.On("Get", mock.Anything, "orders", "o-1").Return(ownedDocument(other, "orders", "o-1"), nil)

	err := accessor.Delete(context.Background(), "orders", "o-1")
	assert.ErrorIs(t, err, services.ErrCrossTenantAccess)
	store.AssertNotCalled(t, "Delete")
}

func TestDelete_Owned(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, _ := newTestAccessor(store)

	store.On("Get", mock.Anything, "orders", "o-1").Return(ownedDocument(businessID, "orders", "o-1"), nil)
	store.On("Delete", mock.Anything, "orders", "o-1").Return(nil)

	assert.NoError(t, accessor.Delete(context.Background(), "orders", "o-1"))
	store.AssertExpectations(t)
}

func TestQuery_AlwaysScoped(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, _ := newTestAccessor(store)

	expected := repositories.DocumentQuery{
		Filters: []repositories.DocumentFilter{
			{Field: "status", Op: "==", Value: "open"},
		},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      25,
	}

	store.On("Query", mock.Anything, businessID, "orders", expected).
		Return([]*models.Document{ownedDocument(businessID, "orders", "o-1")}, nil)

	docs, err := accessor.Query("orders").
		Where("status", "==", "open").
		OrderByDesc("createdAt").
		Limit(25).
		Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 1)
	store.AssertExpectations(t)
}

func TestQuery_ValueSemantics(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	base := accessor.Query("orders").Where("status", "==", "open")
	withLimit := base.Limit(10)
	withFilter := base.Where("region", "==", "emea")

	// Extending a shared base must not mutate it
	assert.Equal(t, 0, base.spec.Limit)
	assert.Len(t, base.spec.Filters, 1)
	assert.Equal(t, 10, withLimit.spec.Limit)
	assert.Len(t, withFilter.spec.Filters, 2)
}

func TestBatch_Commit(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, userID := newTestAccessor(store)

	var applied []repositories.DocumentOp
	store.On("ApplyBatch", mock.Anything, businessID, mock.Anything).Run(func(args mock.Arguments) {
		applied = args.Get(2).([]repositories.DocumentOp)
	}).Return(nil)

	batch := accessor.Batch().
		Create("orders", "o-10", map[string]interface{}{"total": 1}).
		Update("orders", "o-11", map[string]interface{}{"status": "closed"}).
		Delete("orders", "o-12")

	require.Equal(t, 3, batch.Size())
	require.NoError(t, batch.Commit(context.Background()))

	require.Len(t, applied, 3)
	assert.Equal(t, repositories.DocumentOpCreate, applied[0].Kind)
	assert.Equal(t, businessID, *applied[0].Document.BusinessID)
	assert.Equal(t, userID, *applied[0].Document.CreatedBy)
	assert.Equal(t, repositories.DocumentOpUpdate, applied[1].Kind)
	assert.Equal(t, repositories.DocumentOpDelete, applied[2].Kind)
	assert.Nil(t, applied[2].Document)
}

func TestBatch_Empty(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, _, _ := newTestAccessor(store)

	err := accessor.Batch().Commit(context.Background())
	assert.ErrorIs(t, err, services.ErrInvalidInput)
	store.AssertNotCalled(t, "ApplyBatch")
}

func TestBatch_Atomic(t *testing.T) {
	store := &MockDocumentStore{}
	accessor, businessID, _ := newTestAccessor(store)

	store.On("ApplyBatch", mock.Anything, businessID, mock.Anything).
		Return(services.ErrCrossTenantAccess)

	err := accessor.Batch().
		Delete("orders", "o-1").
		Delete("orders", "someone-elses").
		Commit(context.Background())

	assert.ErrorIs(t, err, services.ErrCrossTenantAccess)
}
