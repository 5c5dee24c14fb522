package registry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRegistry implements Registry on database/sql with the pgx stdlib
// driver. The unique constraint on call_id enforces the duplicate-call
// invariant even across processes.
type PostgresRegistry struct {
	db *sql.DB
}

func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS live_calls (
  call_id       TEXT PRIMARY KEY,
  conference_id TEXT NOT NULL,
  pin           INTEGER NOT NULL,
  is_bridge     BOOLEAN NOT NULL DEFAULT FALSE,
  caller_number TEXT NOT NULL DEFAULT '',
  display_name  TEXT NOT NULL DEFAULT '',
  external_id   TEXT NOT NULL DEFAULT '',
  joined_at     TIMESTAMPTZ NOT NULL,
  notified_room BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_live_calls_conference ON live_calls(conference_id, joined_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const liveCallColumns = `call_id, conference_id, pin, is_bridge, caller_number, display_name, external_id, joined_at, notified_room`

func scanLiveCall(row interface{ Scan(...any) error }) (LiveCall, error) {
	var c LiveCall
	err := row.Scan(
		&c.CallID,
		&c.ConferenceID,
		&c.PIN,
		&c.IsBridge,
		&c.CallerNumber,
		&c.DisplayName,
		&c.ExternalID,
		&c.JoinedAt,
		&c.NotifiedRoom,
	)
	return c, err
}

func (r *PostgresRegistry) Add(ctx context.Context, call LiveCall) error {
	const q = `
INSERT INTO live_calls (` + liveCallColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		call.CallID,
		call.ConferenceID,
		call.PIN,
		call.IsBridge,
		call.CallerNumber,
		call.DisplayName,
		call.ExternalID,
		call.JoinedAt,
		call.NotifiedRoom,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCall
	}
	return err
}

func (r *PostgresRegistry) Remove(ctx context.Context, callID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM live_calls WHERE call_id = $1`, callID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRegistry) Get(ctx context.Context, callID string) (LiveCall, error) {
	const q = `
SELECT ` + liveCallColumns + `
FROM live_calls
WHERE call_id = $1
`
	c, err := scanLiveCall(r.db.QueryRowContext(ctx, q, callID))
	if errors.Is(err, sql.ErrNoRows) {
		return LiveCall{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRegistry) ListByConference(ctx context.Context, conferenceID string, excludeBridge bool) ([]LiveCall, error) {
	q := `
SELECT ` + liveCallColumns + `
FROM live_calls
WHERE conference_id = $1
ORDER BY joined_at, call_id
`
	if excludeBridge {
		q = `
SELECT ` + liveCallColumns + `
FROM live_calls
WHERE conference_id = $1 AND NOT is_bridge
ORDER BY joined_at, call_id
`
	}

	rows, err := r.db.QueryContext(ctx, q, conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLiveCalls(rows)
}

func (r *PostgresRegistry) HasActiveBridge(ctx context.Context, conferenceID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM live_calls WHERE conference_id = $1 AND is_bridge
)
`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, conferenceID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PostgresRegistry) MarkNotified(ctx context.Context, callID string, notified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE live_calls SET notified_room = $1 WHERE call_id = $2`, notified, callID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The call may have disconnected while its notification was in
		// flight; nothing to record in that case.
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) ListAll(ctx context.Context) ([]LiveCall, error) {
	const q = `
SELECT ` + liveCallColumns + `
FROM live_calls
ORDER BY conference_id, joined_at, call_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLiveCalls(rows)
}

func collectLiveCalls(rows *sql.Rows) ([]LiveCall, error) {
	var out []LiveCall
	for rows.Next() {
		c, err := scanLiveCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
