package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"dialin-bridge/pkg/utils"
)

// PostgresStore implements Store on database/sql with the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the directory tables when absent. The original
// deployment provisioned these at startup, so the bridge keeps doing that
// rather than requiring an external migration step.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS conferences (
  conference_id TEXT PRIMARY KEY CHECK (length(conference_id) <= 64),
  room_id       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS users (
  pin           INTEGER PRIMARY KEY,
  conference_id TEXT NOT NULL REFERENCES conferences(conference_id),
  display_name  TEXT NOT NULL DEFAULT '',
  external_id   TEXT NOT NULL DEFAULT '',
  role          TEXT NOT NULL DEFAULT 'phone'
);
CREATE INDEX IF NOT EXISTS idx_users_conference ON users(conference_id);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *PostgresStore) GetConference(ctx context.Context, conferenceID string) (Conference, error) {
	const q = `
SELECT conference_id, room_id
FROM conferences
WHERE conference_id = $1
`
	var c Conference
	if err := s.db.QueryRowContext(ctx, q, conferenceID).Scan(&c.ConferenceID, &c.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conference{}, ErrNotFound
		}
		return Conference{}, err
	}
	return c, nil
}

func (s *PostgresStore) CreateConference(ctx context.Context, c Conference) error {
	if err := validateConference(c); err != nil {
		return err
	}
	const q = `
INSERT INTO conferences (conference_id, room_id)
VALUES ($1, $2)
`
	_, err := s.db.ExecContext(ctx, q, c.ConferenceID, c.RoomID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PostgresStore) ListConferences(ctx context.Context) ([]Conference, error) {
	const q = `
SELECT conference_id, room_id
FROM conferences
ORDER BY conference_id
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conference
	for rows.Next() {
		var c Conference
		if err := rows.Scan(&c.ConferenceID, &c.RoomID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteConference(ctx context.Context, conferenceID string) error {
	// Users reference the conference, so both go in one transaction.
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE conference_id = $1`, conferenceID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM conferences WHERE conference_id = $1`, conferenceID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *PostgresStore) ByPin(ctx context.Context, pin int) (User, error) {
	const q = `
SELECT pin, conference_id, display_name, external_id, role
FROM users
WHERE pin = $1
`
	var u User
	if err := s.db.QueryRowContext(ctx, q, pin).Scan(
		&u.PIN,
		&u.ConferenceID,
		&u.DisplayName,
		&u.ExternalID,
		&u.Role,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	u.Role = ClassifyRole(u.Role, u.DisplayName)

	const q = `
INSERT INTO users (pin, conference_id, display_name, external_id, role)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := s.db.ExecContext(ctx, q, u.PIN, u.ConferenceID, u.DisplayName, u.ExternalID, string(u.Role))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PostgresStore) ListUsers(ctx context.Context, conferenceID string) ([]User, error) {
	q := `
SELECT pin, conference_id, display_name, external_id, role
FROM users
ORDER BY pin
`
	args := []any{}
	if conferenceID != "" {
		q = `
SELECT pin, conference_id, display_name, external_id, role
FROM users
WHERE conference_id = $1
ORDER BY pin
`
		args = append(args, conferenceID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.PIN, &u.ConferenceID, &u.DisplayName, &u.ExternalID, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteUserByPin(ctx context.Context, pin int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE pin = $1`, pin)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUserExternalID(ctx context.Context, pin int, externalID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET external_id = $1 WHERE pin = $2`, externalID, pin)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
