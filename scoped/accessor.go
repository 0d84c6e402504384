// Package scoped provides the only sanctioned path to the shared document
// store. An Accessor is constructed from an authorized request context and
// pins every read and write to the business that was verified for that
// request; handlers never see the raw store.
package scoped

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"github.com/upb/tenant-control-plane/services/authorize"
	"go.uber.org/zap"
)

// Accessor reads and writes documents on behalf of one verified business
type Accessor struct {
	store      repositories.DocumentStore
	businessID uuid.UUID
	userID     uuid.UUID
	logger     *zap.Logger
}

// NewAccessor creates an accessor bound to the business of an authorized
// request. The business id comes from the verified context, never from
// request input.
func NewAccessor(store repositories.DocumentStore, authCtx *authorize.Context, logger *zap.Logger) *Accessor {
	return &Accessor{
		store:      store,
		businessID: authCtx.BusinessID(),
		userID:     authCtx.UserID,
		logger:     logger,
	}
}

// BusinessID returns the business this accessor is bound to
func (a *Accessor) BusinessID() uuid.UUID {
	return a.businessID
}

// Read fetches one document and verifies ownership. A document owned by
// another business fails with ErrCrossTenantAccess rather than not-found, so
// cross-tenant references are detectable in the audit trail. Legacy documents
// with no business id are readable through any tenant's scoped path.
func (a *Accessor) Read(ctx context.Context, collection, id string) (*models.Document, error) {
	doc, err := a.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	if err := a.verifyOwnership(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Create writes a new document. The business id, creator and timestamps are
// stamped here unconditionally; nothing the caller passes can override them.
func (a *Accessor) Create(ctx context.Context, collection, id string, data map[string]interface{}) (*models.Document, error) {
	now := time.Now()
	businessID := a.businessID
	userID := a.userID

	doc := &models.Document{
		Collection: collection,
		ID:         id,
		BusinessID: &businessID,
		Data:       data,
		CreatedAt:  now,
		CreatedBy:  &userID,
		UpdatedAt:  now,
	}

	if err := a.store.Insert(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Update replaces a document's data after re-verifying ownership
func (a *Accessor) Update(ctx context.Context, collection, id string, data map[string]interface{}) (*models.Document, error) {
	doc, err := a.Read(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	doc.Data = data
	doc.UpdatedAt = time.Now()

	if err := a.store.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Delete removes a document after re-verifying ownership
func (a *Accessor) Delete(ctx context.Context, collection, id string) error {
	if _, err := a.Read(ctx, collection, id); err != nil {
		return err
	}

	return a.store.Delete(ctx, collection, id)
}

// verifyOwnership checks a fetched document belongs to the bound business
func (a *Accessor) verifyOwnership(doc *models.Document) error {
	if doc.BusinessID == nil {
		return nil
	}
	if *doc.BusinessID == a.businessID {
		return nil
	}

	a.logger.Warn("cross-tenant document access denied",
		zap.String("business_id", a.businessID.String()),
		zap.String("user_id", a.userID.String()),
		zap.String("collection", doc.Collection),
		zap.String("document_id", doc.ID))

	return services.ErrCrossTenantAccess.
		WithDetail("collection", doc.Collection).
		WithDetail("id", doc.ID)
}
