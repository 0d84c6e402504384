package middleware

import (
	"net/http"

	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/services/authorize"
	"github.com/upb/tenant-control-plane/utils"
	"go.uber.org/zap"
)

// FeatureChecker gates plan features. *authorize.Service is the production
// implementation.
type FeatureChecker interface {
	RequireFeature(authCtx *authorize.Context, name string) error
}

// LimitChecker gates usage limits. *usage.Service is the production
// implementation.
type LimitChecker interface {
	CheckLimit(business *models.Business, isSuperAdmin bool, counter, limitName string) error
}

// Guards provides per-route authorization middleware. All guards assume the
// Authorize middleware already ran; a missing authorized context is a wiring
// bug and fails closed with 401.
type Guards struct {
	features FeatureChecker
	limits   LimitChecker
	logger   *zap.Logger
}

// NewGuards creates a new Guards
func NewGuards(features FeatureChecker, limits LimitChecker, logger *zap.Logger) *Guards {
	return &Guards{
		features: features,
		limits:   limits,
		logger:   logger,
	}
}

// RequirePermission requires the caller to hold the named permission
func (g *Guards) RequirePermission(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authCtx := GetAuthContext(ctx)
			if authCtx == nil {
				g.failClosed(w, r, "permission guard reached without authorization")
				return
			}

			if err := authCtx.RequirePermission(name); err != nil {
				g.logger.Info("permission denied",
					zap.String("user_id", authCtx.UserID.String()),
					zap.String("business_id", authCtx.BusinessID().String()),
					zap.String("permission", name))
				WriteDomainError(ctx, w, err, g.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature requires the business plan to include the named feature
func (g *Guards) RequireFeature(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authCtx := GetAuthContext(ctx)
			if authCtx == nil {
				g.failClosed(w, r, "feature guard reached without authorization")
				return
			}

			if err := g.features.RequireFeature(authCtx, name); err != nil {
				g.logger.Info("feature not available",
					zap.String("business_id", authCtx.BusinessID().String()),
					zap.String("feature", name))
				WriteDomainError(ctx, w, err, g.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckUsageLimit rejects the request when the named counter has reached the
// named limit. The check reads the business loaded during authorization; the
// matching counter increment happens in the handler after the write succeeds.
func (g *Guards) CheckUsageLimit(counter, limitName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authCtx := GetAuthContext(ctx)
			if authCtx == nil {
				g.failClosed(w, r, "usage guard reached without authorization")
				return
			}

			if err := g.limits.CheckLimit(authCtx.Business, authCtx.IsSuperAdmin, counter, limitName); err != nil {
				WriteDomainError(ctx, w, err, g.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guards) failClosed(w http.ResponseWriter, r *http.Request, msg string) {
	g.logger.Error(msg, zap.String("path", r.URL.Path))
	SetAuditOutcome(r.Context(), models.AuditOutcomeUnauthenticated)
	_ = utils.WriteUnauthorized(w, "")
}
