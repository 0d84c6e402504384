package authorize

import (
	"github.com/google/uuid"
	"github.com/upb/tenant-control-plane/models"
	"github.com/upb/tenant-control-plane/services"
)

// Context is the result of a successful authorization. It carries everything
// downstream gates and handlers need without touching the database again
// within the same request.
type Context struct {
	UserID       uuid.UUID
	Email        string
	IsSuperAdmin bool
	Business     *models.Business   // nil only for super admins on platform-wide routes
	Membership   *models.Membership // nil for super admins acting outside their memberships
}

// BusinessID returns the id of the resolved business, or uuid.Nil when the
// request carries no business context (super admins on platform-wide routes)
func (c *Context) BusinessID() uuid.UUID {
	if c.Business == nil {
		return uuid.Nil
	}
	return c.Business.ID
}

// HasBusiness reports whether a business was resolved for this request
func (c *Context) HasBusiness() bool {
	return c.Business != nil
}

// HasPermission reports whether the caller holds the named permission.
// Super admins implicitly hold every permission.
func (c *Context) HasPermission(name string) bool {
	if c.IsSuperAdmin {
		return true
	}
	if c.Membership == nil {
		return false
	}
	return c.Membership.HasPermission(name)
}

// RequirePermission fails with ErrMissingPermission unless the caller holds
// the named permission
func (c *Context) RequirePermission(name string) error {
	if c.HasPermission(name) {
		return nil
	}
	return services.ErrMissingPermission.WithDetail("permission", name)
}
