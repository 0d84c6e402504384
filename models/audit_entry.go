package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditOutcome labels the result of one authorization decision
type AuditOutcome string

const (
	AuditOutcomeSuccess             AuditOutcome = "success"
	AuditOutcomeUnauthenticated     AuditOutcome = "unauthenticated"
	AuditOutcomeInvalidToken        AuditOutcome = "invalid_token"
	AuditOutcomeTokenExpired        AuditOutcome = "token_expired"
	AuditOutcomeNoBusinessContext   AuditOutcome = "no_business_context"
	AuditOutcomeNoAccess            AuditOutcome = "no_access"
	AuditOutcomeInactiveStaff       AuditOutcome = "inactive_staff"
	AuditOutcomeCrossTenantAccess   AuditOutcome = "cross_tenant_access_denied"
	AuditOutcomeBusinessNotFound    AuditOutcome = "business_not_found"
	AuditOutcomeBusinessSuspended   AuditOutcome = "business_suspended"
	AuditOutcomeSubscriptionExpired AuditOutcome = "subscription_expired"
	AuditOutcomeForbidden           AuditOutcome = "forbidden"
	AuditOutcomeFeatureNotAvailable AuditOutcome = "feature_not_available"
	AuditOutcomeUsageLimitExceeded  AuditOutcome = "usage_limit_exceeded"
	AuditOutcomeInternalError       AuditOutcome = "internal_error"
)

// AuditEntry is an append-only record of one authorization decision.
// This layer writes entries and never reads them back.
type AuditEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Subject      *uuid.UUID      `json:"subject,omitempty" db:"subject"`
	BusinessID   *uuid.UUID      `json:"business_id,omitempty" db:"business_id"`
	IsSuperAdmin bool            `json:"is_super_admin" db:"is_super_admin"`
	Method       string          `json:"method" db:"method"`
	Path         string          `json:"path" db:"path"`
	Outcome      AuditOutcome    `json:"outcome" db:"outcome"`
	StatusCode   int             `json:"status_code" db:"status_code"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"` // JSONB
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates a new AuditEntry for a request decision
func NewAuditEntry(method, path string, outcome AuditOutcome) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.New(),
		Method:    method,
		Path:      path,
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
}

// WithSubject sets the acting identity
func (a *AuditEntry) WithSubject(subject uuid.UUID) *AuditEntry {
	a.Subject = &subject
	return a
}

// WithBusiness sets the resolved business
func (a *AuditEntry) WithBusiness(businessID uuid.UUID) *AuditEntry {
	a.BusinessID = &businessID
	return a
}

// WithSuperAdmin marks the entry as made under the elevated role
func (a *AuditEntry) WithSuperAdmin(isSuperAdmin bool) *AuditEntry {
	a.IsSuperAdmin = isSuperAdmin
	return a
}

// WithRequest sets request metadata
func (a *AuditEntry) WithRequest(requestID, ipAddress, userAgent string) *AuditEntry {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithStatus sets the HTTP status code of the response
func (a *AuditEntry) WithStatus(code int) *AuditEntry {
	a.StatusCode = code
	return a
}

// WithDetails attaches structured detail to the entry
func (a *AuditEntry) WithDetails(details interface{}) *AuditEntry {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}
