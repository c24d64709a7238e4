package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return newAuditRepository(pool)
}

func newAuditRepository(db querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateTx inserts a new audit log entry inside tx
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	beforeState, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	afterState, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id, request_id,
			reason, before_state, after_state, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.RequestID,
		log.Reason,
		beforeState,
		afterState,
		log.Status,
		log.CreatedAt,
	)
	return err
}

// List retrieves audit logs with filtering, oldest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s $%d", column, len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id =", filter.ActorID)
	}
	if filter.Action != "" {
		add("action =", filter.Action)
	}
	if filter.ResourceType != "" {
		add("resource_type =", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		add("resource_id =", filter.ResourceID)
	}
	if filter.StartDate != nil {
		add("created_at >=", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <=", *filter.EndDate)
	}

	query := `
		SELECT id, actor_id, action, resource_type, resource_id, request_id,
		       reason, before_state, after_state, status, created_at
		FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var (
			log                     domain.AuditLog
			beforeState, afterState []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.RequestID,
			&log.Reason,
			&beforeState,
			&afterState,
			&log.Status,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if beforeState != nil {
			_ = json.Unmarshal(beforeState, &log.BeforeState)
		}
		if afterState != nil {
			_ = json.Unmarshal(afterState, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// GetByResourceID retrieves all audit logs for a specific resource
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	return r.List(ctx, domain.AuditFilter{
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
