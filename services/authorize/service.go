package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/idp"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/repositories"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// TokenVerifier verifies a raw bearer token and returns the caller identity.
// *idp.Validator is the production implementation.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*idp.Identity, error)
}

// Request carries the inputs of one authorization decision
type Request struct {
	// Token is the raw bearer token from the Authorization header
	Token string

	// RequestedBusinessID is an explicit tenant selection from the request
	// (header or route), taking precedence over the token hint and the
	// user's default business
	RequestedBusinessID *uuid.UUID
}

// Service runs the authorization pipeline. The stages always run in the same
// order: token verification, role resolution, tenant resolution, membership
// verification, tenant status checks. A failure at any stage stops the
// pipeline; nothing downstream observes a partially authorized request.
type Service struct {
	verifier    TokenVerifier
	users       repositories.UserRepository
	businesses  repositories.BusinessRepository
	memberships repositories.MembershipRepository
	logger      *zap.Logger
}

// NewService creates a new authorization service
func NewService(
	verifier TokenVerifier,
	users repositories.UserRepository,
	businesses repositories.BusinessRepository,
	memberships repositories.MembershipRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		verifier:    verifier,
		users:       users,
		businesses:  businesses,
		memberships: memberships,
		logger:      logger,
	}
}

// Authorize runs the full pipeline for one request
func (s *Service) Authorize(ctx context.Context, req Request) (*Context, error) {
	identity, err := s.verifyToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	businessID, resolved, err := s.resolveBusinessID(req, identity, user)
	if err != nil {
		return nil, err
	}

	// Super admins may operate without a business on platform-wide routes;
	// anything tenant-scoped still requires one downstream.
	if !resolved {
		s.logger.Debug("request authorized without business context",
			zap.String("user_id", user.ID.String()))
		return &Context{
			UserID:       user.ID,
			Email:        user.Email,
			IsSuperAdmin: true,
		}, nil
	}

	var membership *models.Membership
	if !user.IsSuperAdmin() {
		membership, err = s.verifyMembership(ctx, businessID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	business, err := s.checkBusinessStatus(ctx, businessID, user.IsSuperAdmin())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("request authorized",
		zap.String("user_id", user.ID.String()),
		zap.String("business_id", businessID.String()),
		zap.Bool("super_admin", user.IsSuperAdmin()))

	return &Context{
		UserID:       user.ID,
		Email:        user.Email,
		IsSuperAdmin: user.IsSuperAdmin(),
		Business:     business,
		Membership:   membership,
	}, nil
}

// verifyToken validates the bearer token and maps provider errors onto the
// domain taxonomy
func (s *Service) verifyToken(ctx context.Context, token string) (*idp.Identity, error) {
	if token == "" {
		return nil, services.ErrUnauthenticated
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, idp.ErrTokenExpired) {
			return nil, services.ErrTokenExpired
		}
		s.logger.Debug("token verification failed", zap.Error(err))
		return nil, services.ErrInvalidToken
	}

	return identity, nil
}

// resolveUser loads the user-directory record for the verified identity.
// Identities not yet present in the directory get the normal role and no
// default business; any access they have still comes from memberships.
func (s *Service) resolveUser(ctx context.Context, identity *idp.Identity) (*models.User, error) {
	user, err := s.users.GetByID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return models.NewUser(identity.Subject, identity.Email), nil
		}
		return nil, err
	}
	return user, nil
}

// resolveBusinessID picks the tenant for this request. Precedence: explicit
// request selection, then the token hint, then the user's default business.
// The result is only a candidate; membership is verified next. No resolvable
// business is an error for everyone except super admins, who may act on
// platform-wide routes with no tenant at all.
func (s *Service) resolveBusinessID(req Request, identity *idp.Identity, user *models.User) (uuid.UUID, bool, error) {
	switch {
	case req.RequestedBusinessID != nil:
		return *req.RequestedBusinessID, true, nil
	case identity.BusinessHint != nil:
		return *identity.BusinessHint, true, nil
	case user.DefaultBusinessID != nil:
		return *user.DefaultBusinessID, true, nil
	case user.IsSuperAdmin():
		return uuid.Nil, false, nil
	default:
		return uuid.Nil, false, services.ErrNoBusinessContext
	}
}

// verifyMembership checks the caller is active staff of the business
func (s *Service) verifyMembership(ctx context.Context, businessID, userID uuid.UUID) (*models.Membership, error) {
	membership, err := s.memberships.Get(ctx, businessID, userID)
	if err != nil {
		return nil, err
	}

	if membership.EmploymentStatus != models.EmploymentActive {
		return nil, services.ErrInactiveStaff.WithDetail("employment_status", string(membership.EmploymentStatus))
	}

	return membership, nil
}

// checkBusinessStatus loads the business and enforces account and
// subscription state. Super admins see suspended and expired businesses so
// platform operators can service them; a missing business fails for everyone.
func (s *Service) checkBusinessStatus(ctx context.Context, businessID uuid.UUID, isSuperAdmin bool) (*models.Business, error) {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if isSuperAdmin {
		return business, nil
	}

	switch business.Status {
	case models.BusinessStatusSuspended, models.BusinessStatusCancelled:
		e := services.ErrBusinessSuspended.WithDetail("status", string(business.Status))
		if business.SuspensionReason != nil {
			e = e.WithDetail("reason", *business.SuspensionReason)
		}
		return nil, e
	}

	switch business.Subscription {
	case models.SubscriptionExpired, models.SubscriptionCanceled:
		return nil, services.ErrSubscriptionExpired.WithDetail("subscription", string(business.Subscription))
	}

	return business, nil
}

// RequireFeature fails with ErrFeatureNotAvailable unless the business has
// the named feature enabled. Super admins bypass feature gates.
func (s *Service) RequireFeature(authCtx *Context, name string) error {
	if authCtx.IsSuperAdmin {
		return nil
	}
	if authCtx.Business.HasFeature(name) {
		return nil
	}
	return services.ErrFeatureNotAvailable.
		WithDetail("feature", name).
		WithDetail("plan", authCtx.Business.Plan)
}
