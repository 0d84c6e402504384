package scoped

import (
	"context"
	"time"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
)

// Batch queues writes for atomic application. Nothing touches the store until
// Commit; the store applies all operations in one transaction and re-verifies
// ownership of every touched document, so a batch either fully applies or
// leaves no trace.
type Batch struct {
	accessor *Accessor
	ops      []repositories.DocumentOp
}

// Batch starts an empty batch
func (a *Accessor) Batch() *Batch {
	return &Batch{accessor: a}
}

// Create queues a document creation. Stamping rules match Accessor.Create.
func (b *Batch) Create(collection, id string, data map[string]interface{}) *Batch {
	now := time.Now()
	businessID := b.accessor.businessID
	userID := b.accessor.userID

	b.ops = append(b.ops, repositories.DocumentOp{
		Kind:       repositories.DocumentOpCreate,
		Collection: collection,
		ID:         id,
		Document: &models.Document{
			Collection: collection,
			ID:         id,
			BusinessID: &businessID,
			Data:       data,
			CreatedAt:  now,
			CreatedBy:  &userID,
			UpdatedAt:  now,
		},
	})
	return b
}

// Update queues a data replacement
func (b *Batch) Update(collection, id string, data map[string]interface{}) *Batch {
	b.ops = append(b.ops, repositories.DocumentOp{
		Kind:       repositories.DocumentOpUpdate,
		Collection: collection,
		ID:         id,
		Document: &models.Document{
			Collection: collection,
			ID:         id,
			Data:       data,
			UpdatedAt:  time.Now(),
		},
	})
	return b
}

// Delete queues a document removal
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, repositories.DocumentOp{
		Kind:       repositories.DocumentOpDelete,
		Collection: collection,
		ID:         id,
	})
	return b
}

// Size returns the number of queued operations
func (b *Batch) Size() int {
	return len(b.ops)
}

// Commit applies all queued operations atomically
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return services.ErrInvalidInput.WithDetail("reason", "empty batch")
	}

	return b.accessor.store.ApplyBatch(ctx, b.accessor.businessID, b.ops)
}
