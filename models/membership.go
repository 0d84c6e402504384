package models

import (
	"time"

	"github.com/google/uuid"
)

// EmploymentStatus is the staff state of a membership
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentInactive   EmploymentStatus = "inactive"
	EmploymentTerminated EmploymentStatus = "terminated"
)

// Membership grants a user staff access to one business. There is at most
// one membership per (business, user) pair; absence means no access.
type Membership struct {
	BusinessID       uuid.UUID        `json:"business_id" db:"business_id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	Permissions      []string         `json:"permissions" db:"permissions"` // JSONB
	EmploymentStatus EmploymentStatus `json:"employment_status" db:"employment_status"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates an active membership with the given permissions
func NewMembership(businessID, userID uuid.UUID, permissions []string) *Membership {
	now := time.Now()
	return &Membership{
		BusinessID:       businessID,
		UserID:           userID,
		Permissions:      permissions,
		EmploymentStatus: EmploymentActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// HasPermission reports whether the membership grants the named permission
func (m *Membership) HasPermission(name string) bool {
	for _, p := range m.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
