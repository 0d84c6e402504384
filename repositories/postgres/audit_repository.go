package postgres

import (
	"context"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a new audit entry
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries
			(id, subject, business_id, is_super_admin, method, path, outcome,
			 status_code, details, ip_address, user_agent, request_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.Subject,
		entry.BusinessID,
		entry.IsSuperAdmin,
		entry.Method,
		entry.Path,
		entry.Outcome,
		entry.StatusCode,
		nullableJSON(entry.Details),
		entry.IPAddress,
		entry.UserAgent,
		entry.RequestID,
		entry.Timestamp,
	)

	if err != nil {
		return services.WrapInternal("failed to insert audit entry", err)
	}

	return nil
}

// nullableJSON converts empty JSON payloads to NULL
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
