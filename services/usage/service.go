package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// Service enforces per-business usage limits and records consumption.
//
// CheckLimit and Record are separate calls, so two requests racing past the
// same limit can both pass the check before either increments. The limits
// here are billing guardrails, not hard quotas; an occasional overshoot by
// one is acceptable and the counter stays correct.
type Service struct {
	businesses repositories.BusinessRepository
	logger     *zap.Logger
}

// NewService creates a new usage service
func NewService(businesses repositories.BusinessRepository, logger *zap.Logger) *Service {
	return &Service{
		businesses: businesses,
		logger:     logger,
	}
}

// CheckLimit fails with ErrUsageLimitExceeded when the named counter has
// reached the named limit. A missing limit means the plan does not cap this
// counter; the "unlimited" sentinel always passes. Super admins bypass usage
// limits.
func (s *Service) CheckLimit(business *models.Business, isSuperAdmin bool, counter, limitName string) error {
	if isSuperAdmin {
		return nil
	}

	limit, ok := business.UsageLimits[limitName]
	if !ok || limit.Unlimited {
		return nil
	}

	current := business.UsageCounters[counter]
	if current >= limit.Value {
		s.logger.Info("usage limit exceeded",
			zap.String("business_id", business.ID.String()),
			zap.String("counter", counter),
			zap.Int64("current", current),
			zap.Int64("limit", limit.Value))

		return services.ErrUsageLimitExceeded.
			WithDetail("counter", counter).
			WithDetail("current", current).
			WithDetail("limit", limit.Value)
	}

	return nil
}

// Record adds delta to the named counter for a business
func (s *Service) Record(ctx context.Context, businessID uuid.UUID, counter string, delta int64) error {
	return s.businesses.IncrementUsage(ctx, businessID, counter, delta)
}
