package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// fieldNamePattern restricts filter and order-by fields to plain identifiers,
// since they end up inside the SQL text rather than as bind parameters.
var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var filterOperators = map[string]string{
	"==": "=",
	"!=": "<>",
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
}

// DocumentStore implements the repositories.DocumentStore interface over a
// single documents table keyed by (collection, id).
type DocumentStore struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentStore creates a new document store
func NewDocumentStore(db *DB, logger *zap.Logger) repositories.DocumentStore {
	return &DocumentStore{
		db:     db,
		logger: logger,
	}
}

const documentColumns = "collection, id, business_id, data, created_at, created_by, updated_at"

func scanDocument(scan func(...interface{}) error) (*models.Document, error) {
	doc := &models.Document{}
	var data []byte

	err := scan(
		&doc.Collection,
		&doc.ID,
		&doc.BusinessID,
		&data,
		&doc.CreatedAt,
		&doc.CreatedBy,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &doc.Data); err != nil {
		return nil, services.WrapInternal("failed to unmarshal document data", err)
	}
	return doc, nil
}

// Get retrieves a document by collection and id, regardless of which business
// owns it. Callers compare the business id themselves.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE collection = $1 AND id = $2`, documentColumns)

	executor := GetExecutor(ctx, s.db)
	row := executor.QueryRowContext(ctx, query, collection, id)

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrDocumentNotFound
		}
		if services.IsInternalError(err) {
			return nil, err
		}
		return nil, services.WrapInternal("failed to get document", err)
	}

	return doc, nil
}

// Query retrieves documents in one collection belonging to one business
func (s *DocumentStore) Query(ctx context.Context, businessID uuid.UUID, collection string, q repositories.DocumentQuery) ([]*models.Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM documents WHERE collection = $1 AND business_id = $2`, documentColumns)

	args := []interface{}{collection, businessID}

	for _, f := range q.Filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return nil, services.ErrInvalidInput.WithDetail("field", f.Field)
		}
		op, ok := filterOperators[f.Op]
		if !ok {
			return nil, services.ErrInvalidInput.WithDetail("op", f.Op)
		}

		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, services.ErrInvalidInput.WithDetail("field", f.Field)
		}

		args = append(args, string(value))
		fmt.Fprintf(&sb, " AND data -> '%s' %s $%d::jsonb", f.Field, op, len(args))
	}

	if q.OrderBy != "" {
		if !fieldNamePattern.MatchString(q.OrderBy) {
			return nil, services.ErrInvalidInput.WithDetail("order_by", q.OrderBy)
		}
		fmt.Fprintf(&sb, " ORDER BY data -> '%s'", q.OrderBy)
		if q.Descending {
			sb.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	executor := GetExecutor(ctx, s.db)
	rows, err := executor.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, services.WrapInternal("failed to query documents", err)
	}
	defer rows.Close()

	documents := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, services.WrapInternal("failed to scan document", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, services.WrapInternal("failed to iterate documents", err)
	}

	return documents, nil
}

// Insert writes a new document
func (s *DocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return services.WrapInternal("failed to marshal document data", err)
	}

	query := `
		INSERT INTO documents (collection, id, business_id, data, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, s.db)
	_, err = executor.ExecContext(ctx, query,
		doc.Collection,
		doc.ID,
		doc.BusinessID,
		data,
		doc.CreatedAt,
		doc.CreatedBy,
		doc.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return services.ErrInvalidInput.WithDetail("id", doc.ID)
		}
		return services.WrapInternal("failed to insert document", err)
	}

	s.logger.Debug("document inserted",
		zap.String("collection", doc.Collection),
		zap.String("id", doc.ID))
	return nil
}

// Update replaces a document's data and updated_at
func (s *DocumentStore) Update(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return services.WrapInternal("failed to marshal document data", err)
	}

	query := `
		UPDATE documents
		SET data = $3, updated_at = $4
		WHERE collection = $1 AND id = $2
	`

	executor := GetExecutor(ctx, s.db)
	result, err := executor.ExecContext(ctx, query, doc.Collection, doc.ID, data, doc.UpdatedAt)
	if err != nil {
		return services.WrapInternal("failed to update document", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return services.ErrDocumentNotFound
	}

	s.logger.Debug("document updated",
		zap.String("collection", doc.Collection),
		zap.String("id", doc.ID))
	return nil
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	executor := GetExecutor(ctx, s.db)
	result, err := executor.ExecContext(ctx, query, collection, id)
	if err != nil {
		return services.WrapInternal("failed to delete document", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return services.ErrDocumentNotFound
	}

	s.logger.Debug("document deleted",
		zap.String("collection", collection),
		zap.String("id", id))
	return nil
}

// ApplyBatch applies all operations atomically inside one transaction. Every
// update and delete re-checks ownership with a row lock before touching the
// row, so a batch can never modify another business's documents even if the
// caller's earlier reads went stale.
func (s *DocumentStore) ApplyBatch(ctx context.Context, businessID uuid.UUID, ops []repositories.DocumentOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.WrapInternal("failed to begin batch transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error("failed to rollback batch transaction", zap.Error(rbErr))
			}
		}
	}()

	for _, op := range ops {
		if err := s.applyOp(ctx, tx, businessID, op); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return services.WrapInternal("failed to commit batch transaction", err)
	}
	committed = true

	s.logger.Debug("batch applied",
		zap.String("business_id", businessID.String()),
		zap.Int("operations", len(ops)))
	return nil
}

func (s *DocumentStore) applyOp(ctx context.Context, tx *sql.Tx, businessID uuid.UUID, op repositories.DocumentOp) error {
	switch op.Kind {
	case repositories.DocumentOpCreate:
		data, err := json.Marshal(op.Document.Data)
		if err != nil {
			return services.WrapInternal("failed to marshal document data", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, business_id, data, created_at, created_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			op.Document.Collection,
			op.Document.ID,
			op.Document.BusinessID,
			data,
			op.Document.CreatedAt,
			op.Document.CreatedBy,
			op.Document.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return services.ErrInvalidInput.WithDetail("id", op.Document.ID)
			}
			return services.WrapInternal("failed to insert document in batch", err)
		}
		return nil

	case repositories.DocumentOpUpdate:
		if err := s.lockAndVerify(ctx, tx, businessID, op.Collection, op.ID); err != nil {
			return err
		}

		data, err := json.Marshal(op.Document.Data)
		if err != nil {
			return services.WrapInternal("failed to marshal document data", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET data = $3, updated_at = $4
			WHERE collection = $1 AND id = $2
		`, op.Collection, op.ID, data, op.Document.UpdatedAt)
		if err != nil {
			return services.WrapInternal("failed to update document in batch", err)
		}
		return nil

	case repositories.DocumentOpDelete:
		if err := s.lockAndVerify(ctx, tx, businessID, op.Collection, op.ID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			DELETE FROM documents WHERE collection = $1 AND id = $2
		`, op.Collection, op.ID)
		if err != nil {
			return services.WrapInternal("failed to delete document in batch", err)
		}
		return nil

	default:
		return services.ErrInvalidInput.WithDetail("kind", string(op.Kind))
	}
}

// lockAndVerify locks one document row and checks it belongs to businessID.
// Documents with a NULL business id predate tenant stamping and are treated
// as owned by whichever business reaches them through the scoped path.
func (s *DocumentStore) lockAndVerify(ctx context.Context, tx *sql.Tx, businessID uuid.UUID, collection, id string) error {
	var owner *uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT business_id FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, collection, id).Scan(&owner)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrDocumentNotFound.WithDetail("id", id)
		}
		return services.WrapInternal("failed to verify document ownership", err)
	}

	if owner != nil && *owner != businessID {
		return services.ErrCrossTenantAccess.WithDetail("id", id)
	}
	return nil
}
