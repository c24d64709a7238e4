package domain

import "time"

// Event types
const (
	EventTypeJournalCreated         = "journal.created"
	EventTypeJournalUpdated         = "journal.updated"
	EventTypeJournalPosted          = "journal.posted"
	EventTypeJournalReversed        = "journal.reversed"
	EventTypeJournalReturnedToDraft = "journal.returned_to_draft"
	EventTypeJournalDeleted         = "journal.deleted"
	EventTypeAccountCreated         = "account.created"
	EventTypeAccountUpdated         = "account.updated"
	EventTypeAccountDeleted         = "account.deleted"
	EventTypePeriodClosed           = "period.closed"
	EventTypePeriodReopened         = "period.reopened"
)

// Aggregate types
const (
	AggregateTypeJournalEntry = "journal_entry"
	AggregateTypeAccount      = "account"
	AggregateTypePeriod       = "period"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// JournalEventPayload builds the payload shared by journal events.
func JournalEventPayload(e *JournalEntry) map[string]any {
	debit, credit := e.Totals()
	payload := map[string]any{
		"entry_id":     e.ID,
		"entry_number": e.EntryNumber,
		"status":       string(e.Status),
		"date":         e.Date.Format("2006-01-02"),
		"total_debit":  debit.String(),
		"total_credit": credit.String(),
	}
	if e.RelatedType != RelatedTypeNone {
		payload["related_type"] = string(e.RelatedType)
		payload["related_id"] = e.RelatedID
	}
	if e.Branch != "" {
		payload["branch"] = e.Branch
	}
	return payload
}
