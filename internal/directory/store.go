package directory

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("directory: not found")
	ErrConflict = errors.New("directory: already exists")

	ErrInvalidArgument = errors.New("directory: invalid argument")
)

// ConferenceStore is the read surface the call core depends on, plus the
// CRUD used by the admin API. Conference rows are created out-of-band and
// are read-only from the call core's perspective.
type ConferenceStore interface {
	GetConference(ctx context.Context, conferenceID string) (Conference, error)
	CreateConference(ctx context.Context, c Conference) error
	ListConferences(ctx context.Context) ([]Conference, error)
	// DeleteConference removes the conference and all of its users.
	DeleteConference(ctx context.Context, conferenceID string) error
}

// UserStore resolves PIN identities.
type UserStore interface {
	// ByPin returns ErrNotFound when the PIN is unassigned. Any other
	// error is a store failure and must not be treated as a bad PIN.
	ByPin(ctx context.Context, pin int) (User, error)

	CreateUser(ctx context.Context, u User) error
	// ListUsers returns all users, or only those of one conference when
	// conferenceID is non-empty.
	ListUsers(ctx context.Context, conferenceID string) ([]User, error)
	DeleteUserByPin(ctx context.Context, pin int) error
	UpdateUserExternalID(ctx context.Context, pin int, externalID string) error
}

// Store combines both surfaces; the Postgres and in-memory implementations
// satisfy it.
type Store interface {
	ConferenceStore
	UserStore
}

const maxConferenceIDLen = 64

func validateConference(c Conference) error {
	if c.ConferenceID == "" || len(c.ConferenceID) > maxConferenceIDLen {
		return ErrInvalidArgument
	}
	return nil
}

func validateUser(u User) error {
	if u.PIN <= 0 {
		return ErrInvalidArgument
	}
	if u.ConferenceID == "" {
		return ErrInvalidArgument
	}
	return nil
}
