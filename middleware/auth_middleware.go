package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/scoped"
	"github.com/upb/tenant-control-plane/services"
	"github.com/upb/tenant-control-plane/services/authorize"
	"go.uber.org/zap"
)

// BusinessIDHeader lets a caller explicitly select the business to act on.
// The selection is only a request for tenant resolution; membership is still
// verified before anything is granted.
const BusinessIDHeader = "X-Business-ID"

// Authorizer runs the authorization pipeline for one request.
// *authorize.Service is the production implementation.
type Authorizer interface {
	Authorize(ctx context.Context, req authorize.Request) (*authorize.Context, error)
}

// AuthMiddleware authorizes requests and installs the scoped accessor
type AuthMiddleware struct {
	authorizer Authorizer
	documents  repositories.DocumentStore
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authorizer Authorizer, documents repositories.DocumentStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authorizer: authorizer,
		documents:  documents,
		logger:     logger,
	}
}

// Authorize runs the full authorization pipeline and, on success, places the
// authorized context and a scoped document accessor bound to the verified
// business into the request context. Handlers below this middleware can only
// reach the document store through that accessor.
func (m *AuthMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimw.GetReqID(ctx)

		requestedBusinessID, err := m.parseBusinessHeader(r)
		if err != nil {
			m.logger.Warn("malformed business selection header",
				zap.String("request_id", requestID),
				zap.String("header", r.Header.Get(BusinessIDHeader)))
			WriteDomainError(ctx, w, err, m.logger)
			return
		}

		authCtx, err := m.authorizer.Authorize(ctx, authorize.Request{
			Token:               extractToken(r),
			RequestedBusinessID: requestedBusinessID,
		})
		if err != nil {
			m.logger.Warn("authorization failed",
				zap.String("request_id", requestID),
				zap.String("type", string(services.GetErrorType(err))),
				zap.Error(err))
			WriteDomainError(ctx, w, err, m.logger)
			return
		}

		userID := authCtx.UserID
		var auditBusinessID *uuid.UUID
		if authCtx.HasBusiness() {
			businessID := authCtx.BusinessID()
			auditBusinessID = &businessID
		}
		SetAuditActor(ctx, &userID, auditBusinessID, authCtx.IsSuperAdmin)

		ctx = WithAuthContext(ctx, authCtx)

		// Super admins on platform-wide routes have no business to scope to;
		// tenant-scoped handlers fail closed when no accessor is present.
		if authCtx.HasBusiness() {
			ctx = WithAccessor(ctx, scoped.NewAccessor(m.documents, authCtx, m.logger))
		}

		m.logger.Debug("request authorized",
			zap.String("request_id", requestID),
			zap.String("user_id", userID.String()),
			zap.String("business_id", authCtx.BusinessID().String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseBusinessHeader reads the optional explicit business selection
func (m *AuthMiddleware) parseBusinessHeader(r *http.Request) (*uuid.UUID, error) {
	raw := r.Header.Get(BusinessIDHeader)
	if raw == "" {
		return nil, nil
	}

	// an unparseable selection is bad input, not a missing tenant context
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, services.ErrInvalidInput.WithDetail("business_id", raw)
	}
	return &id, nil
}

// extractToken pulls the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
