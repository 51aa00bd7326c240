package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends to call_audit_events. It only ever INSERTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO call_audit_events
    (id, type, call_id, actor_user_id, actor_role, ip_address, message, metadata, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, '')::jsonb, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.CallID,
		e.ActorUserID, e.ActorRole, e.IPAddress,
		e.Message, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
