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

// BusinessRepository implements the repositories.BusinessRepository interface
type BusinessRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *DB, logger *zap.Logger) repositories.BusinessRepository {
	return &BusinessRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new business
func (r *BusinessRepository) Create(ctx context.Context, business *models.Business) error {
	flags, err := json.Marshal(business.FeatureFlags)
	if err != nil {
		return services.WrapInternal("failed to marshal feature flags", err)
	}
	counters, err := json.Marshal(business.UsageCounters)
	if err != nil {
		return services.WrapInternal("failed to marshal usage counters", err)
	}
	limits, err := json.Marshal(business.UsageLimits)
	if err != nil {
		return services.WrapInternal("failed to marshal usage limits", err)
	}

	query := `
		INSERT INTO businesses
			(id, name, plan, status, subscription, suspension_reason,
			 feature_flags, usage_counters, usage_limits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		business.ID,
		business.Name,
		business.Plan,
		business.Status,
		business.Subscription,
		business.SuspensionReason,
		flags,
		counters,
		limits,
		business.CreatedAt,
		business.UpdatedAt,
	)

	if err != nil {
		return services.WrapInternal("failed to create business", err)
	}

	r.logger.Debug("business created", zap.String("id", business.ID.String()), zap.String("name", business.Name))
	return nil
}

// GetByID retrieves a business by ID
func (r *BusinessRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	query := `
		SELECT id, name, plan, status, subscription, suspension_reason,
		       feature_flags, usage_counters, usage_limits, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	business := &models.Business{}

	var flags, counters, limits []byte
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&business.ID,
		&business.Name,
		&business.Plan,
		&business.Status,
		&business.Subscription,
		&business.SuspensionReason,
		&flags,
		&counters,
		&limits,
		&business.CreatedAt,
		&business.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrBusinessNotFound
		}
		return nil, services.WrapInternal("failed to get business", err)
	}

	if err := json.Unmarshal(flags, &business.FeatureFlags); err != nil {
		return nil, services.WrapInternal("failed to unmarshal feature flags", err)
	}
	if err := json.Unmarshal(counters, &business.UsageCounters); err != nil {
		return nil, services.WrapInternal("failed to unmarshal usage counters", err)
	}
	if err := json.Unmarshal(limits, &business.UsageLimits); err != nil {
		return nil, services.WrapInternal("failed to unmarshal usage limits", err)
	}

	return business, nil
}

// Update updates a business
func (r *BusinessRepository) Update(ctx context.Context, business *models.Business) error {
	flags, err := json.Marshal(business.FeatureFlags)
	if err != nil {
		return services.WrapInternal("failed to marshal feature flags", err)
	}
	counters, err := json.Marshal(business.UsageCounters)
	if err != nil {
		return services.WrapInternal("failed to marshal usage counters", err)
	}
	limits, err := json.Marshal(business.UsageLimits)
	if err != nil {
		return services.WrapInternal("failed to marshal usage limits", err)
	}

	query := `
		UPDATE businesses
		SET name = $2,
		    plan = $3,
		    status = $4,
		    subscription = $5,
		    suspension_reason = $6,
		    feature_flags = $7,
		    usage_counters = $8,
		    usage_limits = $9,
		    updated_at = $10
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		business.ID,
		business.Name,
		business.Plan,
		business.Status,
		business.Subscription,
		business.SuspensionReason,
		flags,
		counters,
		limits,
		business.UpdatedAt,
	)

	if err != nil {
		return services.WrapInternal("failed to update business", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return services.ErrBusinessNotFound
	}

	r.logger.Debug("business updated", zap.String("id", business.ID.String()))
	return nil
}

// IncrementUsage adds delta to one named usage counter via a JSONB upsert,
// so concurrent increments from different requests do not lose updates.
func (r *BusinessRepository) IncrementUsage(ctx context.Context, id uuid.UUID, counter string, delta int64) error {
	query := `
		UPDATE businesses
		SET usage_counters = jsonb_set(
				COALESCE(usage_counters, '{}'::jsonb),
				ARRAY[$2],
				to_jsonb(COALESCE((usage_counters->>$2)::bigint, 0) + $3),
				true),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, counter, delta)
	if err != nil {
		return services.WrapInternal("failed to increment usage counter", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return services.ErrBusinessNotFound
	}

	r.logger.Debug("usage counter incremented",
		zap.String("business_id", id.String()),
		zap.String("counter", counter),
		zap.Int64("delta", delta))
	return nil
}
