package middleware

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/scoped"
	"github.com/upb/tenant-control-plane/services/authorize"
)

// Context key type to avoid collisions
type contextKey string

const (
	// AuthContextKey is the context key for the authorized request context
	AuthContextKey contextKey = "auth_context"

	// AccessorKey is the context key for the scoped document accessor
	AccessorKey contextKey = "scoped_accessor"

	// auditStateKey is the context key for the per-request audit state
	auditStateKey contextKey = "audit_state"
)

// GetAuthContext retrieves the authorized context from the request context
func GetAuthContext(ctx context.Context) *authorize.Context {
	if val := ctx.Value(AuthContextKey); val != nil {
		if authCtx, ok := val.(*authorize.Context); ok {
			return authCtx
		}
	}
	return nil
}

// WithAuthContext adds the authorized context to the request context
func WithAuthContext(ctx context.Context, authCtx *authorize.Context) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAccessor retrieves the scoped document accessor from the request context
func GetAccessor(ctx context.Context) *scoped.Accessor {
	if val := ctx.Value(AccessorKey); val != nil {
		if accessor, ok := val.(*scoped.Accessor); ok {
			return accessor
		}
	}
	return nil
}

// WithAccessor adds the scoped document accessor to the request context
func WithAccessor(ctx context.Context, accessor *scoped.Accessor) context.Context {
	return context.WithValue(ctx, AccessorKey, accessor)
}

// auditState accumulates the outcome of one request. It is placed in the
// context as a pointer so inner middleware and handlers can update it while
// the audit middleware, wrapping everything, reads the final value.
type auditState struct {
	mu           sync.Mutex
	outcome      models.AuditOutcome
	details      interface{}
	subject      *uuid.UUID
	businessID   *uuid.UUID
	isSuperAdmin bool
}

// withAuditState seeds a fresh audit state into the context
func withAuditState(ctx context.Context) (context.Context, *auditState) {
	state := &auditState{outcome: models.AuditOutcomeSuccess}
	return context.WithValue(ctx, auditStateKey, state), state
}

func getAuditState(ctx context.Context) *auditState {
	if val := ctx.Value(auditStateKey); val != nil {
		if state, ok := val.(*auditState); ok {
			return state
		}
	}
	return nil
}

// SetAuditOutcome records the audit outcome for the current request. A no-op
// when no audit middleware is installed (tests, health endpoints).
func SetAuditOutcome(ctx context.Context, outcome models.AuditOutcome) {
	if state := getAuditState(ctx); state != nil {
		state.mu.Lock()
		state.outcome = outcome
		state.mu.Unlock()
	}
}

// SetAuditDetails attaches structured detail to the current request's audit
// entry
func SetAuditDetails(ctx context.Context, details interface{}) {
	if state := getAuditState(ctx); state != nil {
		state.mu.Lock()
		state.details = details
		state.mu.Unlock()
	}
}

// SetAuditActor records who acted and on which business. Called by the
// authorization middleware as soon as the facts are known, including on
// partially authorized requests.
func SetAuditActor(ctx context.Context, subject, businessID *uuid.UUID, isSuperAdmin bool) {
	if state := getAuditState(ctx); state != nil {
		state.mu.Lock()
		state.subject = subject
		state.businessID = businessID
		state.isSuperAdmin = isSuperAdmin
		state.mu.Unlock()
	}
}

func (s *auditState) apply(entry *models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Outcome = s.outcome
	if s.subject != nil {
		entry.WithSubject(*s.subject)
	}
	if s.businessID != nil {
		entry.WithBusiness(*s.businessID)
	}
	entry.WithSuperAdmin(s.isSuperAdmin)
	if s.details != nil {
		entry.WithDetails(s.details)
	}
}
