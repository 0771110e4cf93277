package models

import (
	"time"

	"github.com/google/uuid"
)

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeClosed      DisputeStatus = "closed"
)

// Dispute is embedded in requests and transactions with a dispute_ column prefix.
// An empty Status means no dispute was ever raised.
type Dispute struct {
	RaisedBy    *uuid.UUID    `gorm:"type:uuid" json:"raised_by,omitempty"`
	RaisedAt    *time.Time    `json:"raised_at,omitempty"`
	Reason      string        `gorm:"size:120" json:"reason,omitempty"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      DisputeStatus `gorm:"size:16" json:"status,omitempty"`
	Resolution  string        `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID    `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

func (d Dispute) Raised() bool {
	return d.Status != ""
}

// Settled reports whether a moderator has closed the dispute out.
func (d Dispute) Settled() bool {
	return d.Status == DisputeResolved || d.Status == DisputeClosed
}
