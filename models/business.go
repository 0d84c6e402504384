package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BusinessStatus represents the lifecycle state of a business account
type BusinessStatus string

const (
	BusinessStatusActive    BusinessStatus = "active"
	BusinessStatusTrial     BusinessStatus = "trial"
	BusinessStatusSuspended BusinessStatus = "suspended"
	BusinessStatusCancelled BusinessStatus = "cancelled"
)

// SubscriptionStatus represents the billing state of a business
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Business plan identifiers
const (
	PlanStarter    = "starter"
	PlanGrowth     = "growth"
	PlanEnterprise = "enterprise"
)

// LimitValue is a usage limit that is either a non-negative integer or the
// "unlimited" sentinel. It marshals to a JSON number or the string
// "unlimited" so limits round-trip through the JSONB column unchanged.
type LimitValue struct {
	Unlimited bool
	Value     int64
}

// Unlimited is the sentinel limit that always passes usage checks
var Unlimited = LimitValue{Unlimited: true}

// Limit returns a bounded LimitValue
func Limit(n int64) LimitValue {
	return LimitValue{Value: n}
}

// MarshalJSON implements json.Marshaler
func (l LimitValue) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (l *LimitValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"unlimited"`)) {
		*l = LimitValue{Unlimited: true}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("limit must be an integer or \"unlimited\": %w", err)
	}
	*l = LimitValue{Value: n}
	return nil
}

// String returns a display form of the limit
func (l LimitValue) String() string {
	if l.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.Value)
}

// Business represents a tenant in the multi-tenant system. It is the unit of
// data partitioning: every scoped document carries the owning business id.
type Business struct {
	ID               uuid.UUID             `json:"id" db:"id"`
	Name             string                `json:"name" db:"name"`
	Plan             string                `json:"plan" db:"plan"`
	Status           BusinessStatus        `json:"status" db:"status"`
	Subscription     SubscriptionStatus    `json:"subscription" db:"subscription"`
	SuspensionReason *string               `json:"suspension_reason,omitempty" db:"suspension_reason"`
	FeatureFlags     map[string]bool       `json:"feature_flags" db:"feature_flags"`       // JSONB
	UsageCounters    map[string]int64      `json:"usage_counters" db:"usage_counters"`     // JSONB
	UsageLimits      map[string]LimitValue `json:"usage_limits" db:"usage_limits"`         // JSONB
	CreatedAt        time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Business model
func (Business) TableName() string {
	return "businesses"
}

// NewBusiness creates a new active Business on the starter plan
func NewBusiness(name string) *Business {
	now := time.Now()
	return &Business{
		ID:            uuid.New(),
		Name:          name,
		Plan:          PlanStarter,
		Status:        BusinessStatusActive,
		Subscription:  SubscriptionActive,
		FeatureFlags:  make(map[string]bool),
		UsageCounters: make(map[string]int64),
		UsageLimits:   make(map[string]LimitValue),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasFeature reports whether a feature flag is enabled for the business
func (b *Business) HasFeature(name string) bool {
	return b.FeatureFlags[name]
}
