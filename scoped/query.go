package scoped

import (
	"context"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
)

// Query is an immutable builder over one collection. Each method returns a
// new value, so a partially built query can be shared and extended safely.
// The business filter is applied by the store and cannot be removed or
// overridden by the builder.
type Query struct {
	accessor   *Accessor
	collection string
	spec       repositories.DocumentQuery
}

// Query starts a query over one collection
func (a *Accessor) Query(collection string) Query {
	return Query{
		accessor:   a,
		collection: collection,
	}
}

// Where adds a field predicate. Supported operators: ==, !=, >, >=, <, <=.
func (q Query) Where(field, op string, value interface{}) Query {
	filters := make([]repositories.DocumentFilter, len(q.spec.Filters), len(q.spec.Filters)+1)
	copy(filters, q.spec.Filters)
	q.spec.Filters = append(filters, repositories.DocumentFilter{
		Field: field,
		Op:    op,
		Value: value,
	})
	return q
}

// OrderBy sorts results by a document field, ascending
func (q Query) OrderBy(field string) Query {
	q.spec.OrderBy = field
	q.spec.Descending = false
	return q
}

// OrderByDesc sorts results by a document field, descending
func (q Query) OrderByDesc(field string) Query {
	q.spec.OrderBy = field
	q.spec.Descending = true
	return q
}

// Limit caps the number of results
func (q Query) Limit(n int) Query {
	q.spec.Limit = n
	return q
}

// Fetch executes the query. Results only ever contain documents of the
// accessor's business.
func (q Query) Fetch(ctx context.Context) ([]*models.Document, error) {
	return q.accessor.store.Query(ctx, q.accessor.businessID, q.collection, q.spec)
}
