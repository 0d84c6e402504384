package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
)

// TransactionManager runs functions inside a single database transaction
type TransactionManager interface {
	// InTransaction runs fn inside one transaction. Repository calls made
	// with the context passed to fn share that transaction; an error from fn
	// rolls everything back, otherwise the transaction commits.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository reads user-directory records. The directory itself is owned
// by an external collaborator; the authorization layer only reads it.
type UserRepository interface {
	// GetByID retrieves a user record by identity. Returns ErrUserNotFound
	// when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Create creates a new user record
	Create(ctx context.Context, user *models.User) error

	// Update updates a user record
	Update(ctx context.Context, user *models.User) error
}

// BusinessRepository handles tenant record operations
type BusinessRepository interface {
	// Create creates a new business
	Create(ctx context.Context, business *models.Business) error

	// GetByID retrieves a business by ID. Returns ErrBusinessNotFound when
	// absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error)

	// Update updates a business
	Update(ctx context.Context, business *models.Business) error

	// IncrementUsage adds delta to one named usage counter
	IncrementUsage(ctx context.Context, id uuid.UUID, counter string, delta int64) error
}

// MembershipRepository handles staff membership lookups
type MembershipRepository interface {
	// Get retrieves the membership for a (business, user) pair. Returns
	// ErrNoAccess when absent.
	Get(ctx context.Context, businessID, userID uuid.UUID) (*models.Membership, error)

	// Upsert creates or replaces a membership
	Upsert(ctx context.Context, membership *models.Membership) error

	// Delete removes a membership
	Delete(ctx context.Context, businessID, userID uuid.UUID) error
}

// AuditRepository appends audit entries. This layer never reads them back.
type AuditRepository interface {
	// Insert appends a new audit entry
	Insert(ctx context.Context, entry *models.AuditEntry) error
}

// DocumentFilter is one predicate on a document field
type DocumentFilter struct {
	Field string
	Op    string // one of ==, !=, >, >=, <, <=
	Value interface{}
}

// DocumentQuery describes a query over one collection. The business id is
// supplied separately by the store so callers cannot smuggle a different
// tenant into the query.
type DocumentQuery struct {
	Filters    []DocumentFilter
	OrderBy    string
	Descending bool
	Limit      int
}

// DocumentOpKind is the kind of a queued batch operation
type DocumentOpKind string

const (
	DocumentOpCreate DocumentOpKind = "create"
	DocumentOpUpdate DocumentOpKind = "update"
	DocumentOpDelete DocumentOpKind = "delete"
)

// DocumentOp is one operation queued into an atomic batch
type DocumentOp struct {
	Kind       DocumentOpKind
	Collection string
	ID         string
	Document   *models.Document // nil for deletes
}

// DocumentStore is the backing document store consumed by the scoped
// accessor. Get fetches by (collection, id) regardless of tenant so the
// accessor can detect cross-tenant references; Query and ApplyBatch are
// always bound to one business id.
type DocumentStore interface {
	// Get retrieves a document by collection and id. Returns
	// ErrDocumentNotFound when absent.
	Get(ctx context.Context, collection, id string) (*models.Document, error)

	// Query retrieves documents in one collection belonging to one business
	Query(ctx context.Context, businessID uuid.UUID, collection string, q DocumentQuery) ([]*models.Document, error)

	// Insert writes a new document
	Insert(ctx context.Context, doc *models.Document) error

	// Update replaces a document's data and updated_at
	Update(ctx context.Context, doc *models.Document) error

	// Delete removes a document
	Delete(ctx context.Context, collection, id string) error

	// ApplyBatch applies all operations atomically, re-verifying inside the
	// transaction that every touched document belongs to businessID. Any
	// failure rolls back the whole batch.
	ApplyBatch(ctx context.Context, businessID uuid.UUID, ops []DocumentOp) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users       UserRepository
	Businesses  BusinessRepository
	Memberships MembershipRepository
	AuditLogs   AuditRepository
	Documents   DocumentStore
}
