package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	ActorID      string // Who performed the action
	Action       string // journal.post, account.create, ...
	ResourceType string // journal_entry, account, period
	ResourceID   string
	RequestID    string
	Reason       string // Free text supplied with return-to-draft and delete
	BeforeState  JSON
	AfterState   JSON
	Status       string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Journal actions
	AuditActionJournalCreate        AuditAction = "journal.create"
	AuditActionJournalUpdate        AuditAction = "journal.update"
	AuditActionJournalPost          AuditAction = "journal.post"
	AuditActionJournalReverse       AuditAction = "journal.reverse"
	AuditActionJournalReturnToDraft AuditAction = "journal.return_to_draft"
	AuditActionJournalDelete        AuditAction = "journal.delete"

	// Account actions
	AuditActionAccountCreate AuditAction = "account.create"
	AuditActionAccountUpdate AuditAction = "account.update"
	AuditActionAccountDelete AuditAction = "account.delete"
	AuditActionAccountRepair AuditAction = "account.repair"

	// Period actions
	AuditActionPeriodClose  AuditAction = "period.close"
	AuditActionPeriodReopen AuditAction = "period.reopen"
)

// Audited resource types
const (
	ResourceTypeJournalEntry = "journal_entry"
	ResourceTypeAccount      = "account"
	ResourceTypePeriod       = "period"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
