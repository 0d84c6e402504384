package authorize

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-control-plane/idp"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/services"
	"go.uber.org/zap"
)

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*idp.Identity, error) {
	args := m.Called(ctx, token)
	if identity := args.Get(0); identity != nil {
		return identity.(*idp.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockBusinessRepository is a mock implementation of BusinessRepository
type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) Create(ctx context.Context, business *models.Business) error {
	args := m.Called(ctx, business)
	return args.Error(0)
}

func (m *MockBusinessRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	args := m.Called(ctx, id)
	if business := args.Get(0); business != nil {
		return business.(*models.Business), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBusinessRepository) Update(ctx context.Context, business *models.Business) error {
	args := m.Called(ctx, business)
	return args.Error(0)
}

func (m *MockBusinessRepository) IncrementUsage(ctx context.Context, id uuid.UUID, counter string, delta int64) error {
	args := m.Called(ctx, id, counter, delta)
	return args.Error(0)
}

// MockMembershipRepository is a mock implementation of MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Get(ctx context.Context, businessID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, businessID, userID)
	if membership := args.Get(0); membership != nil {
		return membership.(*models.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMembershipRepository) Upsert(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, businessID, userID uuid.UUID) error {
	args := m.Called(ctx, businessID, userID)
	return args.Error(0)
}

type fixture struct {
	verifier    *MockTokenVerifier
	users       *MockUserRepository
	businesses  *MockBusinessRepository
	memberships *MockMembershipRepository
	service     *Service

	userID     uuid.UUID
	businessID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		verifier:    &MockTokenVerifier{},
		users:       &MockUserRepository{},
		businesses:  &MockBusinessRepository{},
		memberships: &MockMembershipRepository{},
		userID:      uuid.New(),
		businessID:  uuid.New(),
	}
	f.service = NewService(f.verifier, f.users, f.businesses, f.memberships, zap.NewNop())
	return f
}

func (f *fixture) identity() *idp.Identity {
	return &idp.Identity{
		Subject:      f.userID,
		Email:        "staff@example.com",
		BusinessHint: &f.businessID,
	}
}

func (f *fixture) user(role models.PlatformRole) *models.User {
	user := models.NewUser(f.userID, "staff@example.com")
	user.PlatformRole = role
	return user
}

func (f *fixture) business() *models.Business {
	business := models.NewBusiness("Acme Retail")
	business.ID = f.businessID
	return business
}

func (f *fixture) membership(permissions ...string) *models.Membership {
	return models.NewMembership(f.businessID, f.userID, permissions)
}

func TestAuthorize_Success(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(f.membership("documents:view"), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(f.business(), nil)

	authCtx, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	require.NoError(t, err)

	assert.Equal(t, f.userID, authCtx.UserID)
	assert.Equal(t, f.businessID, authCtx.BusinessID())
	assert.False(t, authCtx.IsSuperAdmin)
	require.NotNil(t, authCtx.Membership)
	assert.True(t, authCtx.HasPermission("documents:view"))
	assert.False(t, authCtx.HasPermission("documents:edit"))
}

func TestAuthorize_MissingToken(t *testing.T) {
	f := newFixture()

	_, err := f.service.Authorize(context.Background(), Request{Token: ""})
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	f.verifier.AssertNotCalled(t, "Verify")
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	f := newFixture()
	f.verifier.On("Verify", mock.Anything, "stale").Return(nil, idp.ErrTokenExpired)

	_, err := f.service.Authorize(context.Background(), Request{Token: "stale"})
	assert.ErrorIs(t, err, services.ErrTokenExpired)
}

func TestAuthorize_InvalidToken(t *testing.T) {
	f := newFixture()
	f.verifier.On("Verify", mock.Anything, "garbage").Return(nil, idp.ErrInvalidToken)

	_, err := f.service.Authorize(context.Background(), Request{Token: "garbage"})
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthorize_NoBusinessContext(t *testing.T) {
	f := newFixture()

	identity := f.identity()
	identity.BusinessHint = nil
	f.verifier.On("Verify", mock.Anything, "good-token").Return(identity, nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrNoBusinessContext)
}

func TestAuthorize_SuperAdminWithoutBusinessContext(t *testing.T) {
	f := newFixture()

	identity := f.identity()
	identity.BusinessHint = nil
	f.verifier.On("Verify", mock.Anything, "good-token").Return(identity, nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleSuperAdmin), nil)

	authCtx, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	require.NoError(t, err)

	assert.True(t, authCtx.IsSuperAdmin)
	assert.False(t, authCtx.HasBusiness())
	assert.Equal(t, uuid.Nil, authCtx.BusinessID())
	f.memberships.AssertNotCalled(t, "Get")
	f.businesses.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_ExplicitSelectionBeatsHintAndDefault(t *testing.T) {
	f := newFixture()
	selected := uuid.New()

	user := f.user(models.PlatformRoleNormal)
	defaultBiz := uuid.New()
	user.DefaultBusinessID = &defaultBiz

	business := models.NewBusiness("Selected Shop")
	business.ID = selected

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(user, nil)
	f.memberships.On("Get", mock.Anything, selected, f.userID).Return(models.NewMembership(selected, f.userID, nil), nil)
	f.businesses.On("GetByID", mock.Anything, selected).Return(business, nil)

	authCtx, err := f.service.Authorize(context.Background(), Request{
		Token:               "good-token",
		RequestedBusinessID: &selected,
	})
	require.NoError(t, err)
	assert.Equal(t, selected, authCtx.BusinessID())
}

func TestAuthorize_DefaultBusinessFallback(t *testing.T) {
	f := newFixture()

	identity := f.identity()
	identity.BusinessHint = nil

	user := f.user(models.PlatformRoleNormal)
	user.DefaultBusinessID = &f.businessID

	f.verifier.On("Verify", mock.Anything, "good-token").Return(identity, nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(user, nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(f.membership(), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(f.business(), nil)

	authCtx, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, f.businessID, authCtx.BusinessID())
}

func TestAuthorize_NoMembership(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(nil, services.ErrNoAccess)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrNoAccess)

	// Membership check runs before the business lookup
	f.businesses.AssertNotCalled(t, "GetByID")
}

func TestAuthorize_InactiveStaff(t *testing.T) {
	f := newFixture()

	membership := f.membership("documents:view")
	membership.EmploymentStatus = models.EmploymentTerminated

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(membership, nil)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrInactiveStaff)
}

func TestAuthorize_BusinessNotFound(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(f.membership(), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(nil, services.ErrBusinessNotFound)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrBusinessNotFound)
}

func TestAuthorize_SuspendedBusiness(t *testing.T) {
	f := newFixture()

	reason := "payment fraud investigation"
	business := f.business()
	business.Status = models.BusinessStatusSuspended
	business.SuspensionReason = &reason

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(f.membership(), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(business, nil)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrBusinessSuspended)
	assert.Equal(t, reason, services.GetErrorDetails(err)["reason"])
}

func TestAuthorize_ExpiredSubscription(t *testing.T) {
	f := newFixture()

	business := f.business()
	business.Subscription = models.SubscriptionExpired

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleNormal), nil)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(f.membership(), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(business, nil)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrSubscriptionExpired)
}

func TestAuthorize_SuperAdminSkipsMembership(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleSuperAdmin), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(f.business(), nil)

	authCtx, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	require.NoError(t, err)

	assert.True(t, authCtx.IsSuperAdmin)
	assert.Nil(t, authCtx.Membership)
	assert.True(t, authCtx.HasPermission("anything"))
	f.memberships.AssertNotCalled(t, "Get")
}

func TestAuthorize_SuperAdminSeesSuspendedBusiness(t *testing.T) {
	f := newFixture()

	business := f.business()
	business.Status = models.BusinessStatusSuspended

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(f.user(models.PlatformRoleSuperAdmin), nil)
	f.businesses.On("GetByID", mock.Anything, f.businessID).Return(business, nil)

	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.NoError(t, err)
}

func TestAuthorize_UnknownUserGetsNormalRole(t *testing.T) {
	f := newFixture()

	f.verifier.On("Verify", mock.Anything, "good-token").Return(f.identity(), nil)
	f.users.On("GetByID", mock.Anything, f.userID).Return(nil, services.ErrUserNotFound)
	f.memberships.On("Get", mock.Anything, f.businessID, f.userID).Return(nil, services.ErrNoAccess)

	// Unknown directory users still go through membership verification
	_, err := f.service.Authorize(context.Background(), Request{Token: "good-token"})
	assert.ErrorIs(t, err, services.ErrNoAccess)
}

func TestRequirePermission(t *testing.T) {
	authCtx := &Context{
		Membership: models.NewMembership(uuid.New(), uuid.New(), []string{"documents:view"}),
		Business:   models.NewBusiness("Acme Retail"),
	}

	assert.NoError(t, authCtx.RequirePermission("documents:view"))

	err := authCtx.RequirePermission("documents:edit")
	assert.ErrorIs(t, err, services.ErrMissingPermission)
	assert.Equal(t, "documents:edit", services.GetErrorDetails(err)["permission"])
}

func TestRequireFeature(t *testing.T) {
	f := newFixture()

	business := f.business()
	business.FeatureFlags["bulk_operations"] = true

	authCtx := &Context{Business: business}

	assert.NoError(t, f.service.RequireFeature(authCtx, "bulk_operations"))

	err := f.service.RequireFeature(authCtx, "advanced_reports")
	assert.ErrorIs(t, err, services.ErrFeatureNotAvailable)

	// the denial names the missing feature and the current plan, so the
	// client can render an upgrade prompt
	details := services.GetErrorDetails(err)
	assert.Equal(t, "advanced_reports", details["feature"])
	assert.Equal(t, business.Plan, details["plan"])

	// Super admins bypass feature gates
	authCtx.IsSuperAdmin = true
	assert.NoError(t, f.service.RequireFeature(authCtx, "advanced_reports"))
}
