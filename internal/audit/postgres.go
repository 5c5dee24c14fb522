package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to an insert-only table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS audit_events (
    id             TEXT PRIMARY KEY,
    type           TEXT NOT NULL,
    actor_username TEXT NOT NULL DEFAULT '',
    ip_address     TEXT NOT NULL DEFAULT '',
    conference_id  TEXT NOT NULL DEFAULT '',
    call_id        TEXT NOT NULL DEFAULT '',
    pin            INTEGER NOT NULL DEFAULT 0,
    message        TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL
)`)
	return err
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_events (id, type, actor_username, ip_address, conference_id, call_id, pin, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, string(e.Type), e.ActorUsername, e.IPAddress, e.ConferenceID, e.CallID, e.PIN, e.Message, e.CreatedAt,
	)
	return err
}
