package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the membership for a (business, user) pair
func (r *MembershipRepository) Get(ctx context.Context, businessID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT business_id, user_id, permissions, employment_status, created_at, updated_at
		FROM memberships
		WHERE business_id = $1 AND user_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	membership := &models.Membership{}

	var permissions []byte
	err := executor.QueryRowContext(ctx, query, businessID, userID).Scan(
		&membership.BusinessID,
		&membership.UserID,
		&permissions,
		&membership.EmploymentStatus,
		&membership.CreatedAt,
		&membership.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrNoAccess
		}
		return nil, services.WrapInternal("failed to get membership", err)
	}

	if err := json.Unmarshal(permissions, &membership.Permissions); err != nil {
		return nil, services.WrapInternal("failed to unmarshal permissions", err)
	}

	return membership, nil
}

// Upsert creates or replaces a membership
func (r *MembershipRepository) Upsert(ctx context.Context, membership *models.Membership) error {
	permissions, err := json.Marshal(membership.Permissions)
	if err != nil {
		return services.WrapInternal("failed to marshal permissions", err)
	}

	query := `
		INSERT INTO memberships
			(business_id, user_id, permissions, employment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id, user_id)
		DO UPDATE SET
			permissions = EXCLUDED.permissions,
			employment_status = EXCLUDED.employment_status,
			updated_at = EXCLUDED.updated_at
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		membership.BusinessID,
		membership.UserID,
		permissions,
		membership.EmploymentStatus,
		membership.CreatedAt,
		membership.UpdatedAt,
	)

	if err != nil {
		return services.WrapInternal("failed to upsert membership", err)
	}

	r.logger.Debug("membership upserted",
		zap.String("business_id", membership.BusinessID.String()),
		zap.String("user_id", membership.UserID.String()))
	return nil
}

// Delete removes a membership
func (r *MembershipRepository) Delete(ctx context.Context, businessID, userID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE business_id = $1 AND user_id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, businessID, userID)
	if err != nil {
		return services.WrapInternal("failed to delete membership", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return services.ErrNoAccess
	}

	r.logger.Debug("membership deleted",
		zap.String("business_id", businessID.String()),
		zap.String("user_id", userID.String()))
	return nil
}
