package usecase

import (
	"context"

	"github.com/iho/gojournal/internal/domain"
)

// recorder writes the audit trail and outbox events of a mutation inside its transaction.
type recorder struct {
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
}

type auditRecord struct {
	action       domain.AuditAction
	resourceType string
	resourceID   string
	reason       string
	before       any
	after        any
}

func (r recorder) audit(ctx context.Context, tx Transaction, rec auditRecord) error {
	if r.auditRepo == nil {
		return nil
	}

	log := &domain.AuditLog{
		ActorID:      actorFrom(ctx).ID,
		Action:       string(rec.action),
		ResourceType: rec.resourceType,
		ResourceID:   rec.resourceID,
		RequestID:    domain.RequestIDFromContext(ctx),
		Reason:       rec.reason,
		Status:       string(domain.AuditStatusSuccess),
	}
	if rec.before != nil {
		log.BeforeState = domain.MarshalState(rec.before)
	}
	if rec.after != nil {
		log.AfterState = domain.MarshalState(rec.after)
	}

	return r.auditRepo.CreateTx(ctx, tx, log)
}

func (r recorder) event(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	if r.outboxRepo == nil {
		return nil
	}

	return r.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            r.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		Published:     false,
	})
}
