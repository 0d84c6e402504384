package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is a generic tenant-scoped record in the shared document store.
// BusinessID is nil only on legacy rows written before scoping was enforced;
// such rows are implicitly trusted to belong to the tenant whose scoped path
// fetched them.
type Document struct {
	Collection string                 `json:"collection" db:"collection"`
	ID         string                 `json:"id" db:"id"`
	BusinessID *uuid.UUID             `json:"business_id,omitempty" db:"business_id"`
	Data       map[string]interface{} `json:"data" db:"data"` // JSONB
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	CreatedBy  *uuid.UUID             `json:"created_by,omitempty" db:"created_by"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}
