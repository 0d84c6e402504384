package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/services"
	"github.com/upb/tenant-control-plane/utils"
	"go.uber.org/zap"
)

// WriteDomainError maps a domain error to its HTTP response and records the
// matching audit outcome on the request context. The status mapping is fixed:
// authentication failures are 401, missing tenant context is 400, access and
// permission denials are 403, suspended accounts are 403 while expired
// subscriptions are 402, usage limits are 429, and anything internal is an
// opaque 500.
func WriteDomainError(ctx context.Context, w http.ResponseWriter, err error, logger *zap.Logger) {
	if outcome, ok := OutcomeForError(err); ok {
		SetAuditOutcome(ctx, outcome)
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unexpected non-domain error", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	details := domainErr.Details

	switch domainErr.Type {
	case services.ErrorTypeUnauthenticated:
		_ = utils.WriteUnauthorized(w, domainErr.Message)
	case services.ErrorTypeTenantContext:
		_ = utils.WriteBadRequest(w, domainErr.Message, details)
	case services.ErrorTypeAccess:
		_ = utils.WriteForbidden(w, domainErr.Message, details)
	case services.ErrorTypeTenantState:
		switch {
		case errors.Is(err, services.ErrBusinessNotFound):
			_ = utils.WriteNotFound(w, domainErr.Message)
		case errors.Is(err, services.ErrSubscriptionExpired):
			_ = utils.WritePaymentRequired(w, domainErr.Message, details)
		default:
			_ = utils.WriteForbidden(w, domainErr.Message, details)
		}
	case services.ErrorTypeForbidden, services.ErrorTypeFeature:
		_ = utils.WriteForbidden(w, domainErr.Message, details)
	case services.ErrorTypeUsageLimit:
		_ = utils.WriteTooManyRequests(w, domainErr.Message, details)
	case services.ErrorTypeValidation:
		_ = utils.WriteBadRequest(w, domainErr.Message, details)
	case services.ErrorTypeNotFound:
		_ = utils.WriteNotFound(w, domainErr.Message)
	default:
		// Internal failures never leak their cause to the client
		logger.Error("internal error", zap.Error(err))
		SetAuditOutcome(ctx, models.AuditOutcomeInternalError)
		_ = utils.WriteInternalServerError(w, "")
	}
}

// OutcomeForError maps an authorization failure to its audit outcome.
// Handler-level errors like validation and document lookups are not
// authorization decisions and report no outcome.
func OutcomeForError(err error) (models.AuditOutcome, bool) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return models.AuditOutcomeTokenExpired, true
	case errors.Is(err, services.ErrInvalidToken):
		return models.AuditOutcomeInvalidToken, true
	case errors.Is(err, services.ErrUnauthenticated):
		return models.AuditOutcomeUnauthenticated, true
	case errors.Is(err, services.ErrNoBusinessContext):
		return models.AuditOutcomeNoBusinessContext, true
	case errors.Is(err, services.ErrCrossTenantAccess):
		return models.AuditOutcomeCrossTenantAccess, true
	case errors.Is(err, services.ErrInactiveStaff):
		return models.AuditOutcomeInactiveStaff, true
	case errors.Is(err, services.ErrNoAccess):
		return models.AuditOutcomeNoAccess, true
	case errors.Is(err, services.ErrBusinessNotFound):
		return models.AuditOutcomeBusinessNotFound, true
	case errors.Is(err, services.ErrBusinessSuspended):
		return models.AuditOutcomeBusinessSuspended, true
	case errors.Is(err, services.ErrSubscriptionExpired):
		return models.AuditOutcomeSubscriptionExpired, true
	case services.IsForbiddenError(err):
		return models.AuditOutcomeForbidden, true
	case services.IsFeatureError(err):
		return models.AuditOutcomeFeatureNotAvailable, true
	case services.IsUsageLimitError(err):
		return models.AuditOutcomeUsageLimitExceeded, true
	case services.IsInternalError(err):
		return models.AuditOutcomeInternalError, true
	default:
		return "", false
	}
}
