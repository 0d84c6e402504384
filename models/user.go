package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformRole is the platform-wide role of a user, independent of any
// business membership
type PlatformRole string

const (
	PlatformRoleNormal     PlatformRole = "normal"
	PlatformRoleSuperAdmin PlatformRole = "super_admin"
)

// User represents a user-directory record. The identity provider owns the
// identity; this record only adds platform role and default business.
type User struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	Email             string       `json:"email" db:"email"`
	DefaultBusinessID *uuid.UUID   `json:"default_business_id,omitempty" db:"default_business_id"`
	PlatformRole      PlatformRole `json:"platform_role" db:"platform_role"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User with the normal platform role
func NewUser(id uuid.UUID, email string) *User {
	now := time.Now()
	return &User{
		ID:           id,
		Email:        email,
		PlatformRole: PlatformRoleNormal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsSuperAdmin reports whether the user holds the elevated platform role
func (u *User) IsSuperAdmin() bool {
	return u.PlatformRole == PlatformRoleSuperAdmin
}
