package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one engine run, from a camera or a replay file.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	// EndedAt is zero while the session is open.
	EndedAt time.Time
	Ticks   int64
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start opens a new session for source.
func (r *SessionRepository) Start(ctx context.Context, source string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// End closes the session and records how many ticks it ran.
func (r *SessionRepository) End(ctx context.Context, id string, ticks int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, ticks = ? WHERE id = ?`,
		time.Now().UTC(), ticks, id,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, started_at, ended_at, ticks FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, started_at, ended_at, ticks FROM sessions
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Source, &sess.StartedAt, &ended, &sess.Ticks); err != nil {
		return nil, err
	}
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return sess, nil
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
