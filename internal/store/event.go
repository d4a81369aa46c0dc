package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event is a discrete occurrence recorded during a session.
type Event struct {
	ID        int64
	SessionID string
	Seq       uint64
	Kind      string
	Value     string
	Tool      string
	At        time.Time
}

// EventRepository provides access to recorded events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append inserts events in one transaction.
func (r *EventRepository) Append(ctx context.Context, events []Event) (err error) {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (session_id, seq, kind, value, tool, at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err = stmt.ExecContext(ctx, e.SessionID, int64(e.Seq), e.Kind, e.Value, e.Tool, e.At.UTC()); err != nil {
			return fmt.Errorf("insert event %s: %w", e.Kind, err)
		}
	}
	return tx.Commit()
}

// ListBySession returns the events of a session in tick order.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, seq, kind, value, tool, at FROM events
		 WHERE session_id = ? ORDER BY seq, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var seq int64
		if err := rows.Scan(&e.ID, &e.SessionID, &seq, &e.Kind, &e.Value, &e.Tool, &e.At); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByKind returns how many events of each kind a session recorded.
func (r *EventRepository) CountByKind(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
