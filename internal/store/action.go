package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action binds an engine event to a plugin action. Event is written as
// "kind:value", for example "swipe:LEFT" or "selected:MEDIA"; a bare kind
// matches every value.
type Action struct {
	ID         string
	Event      string
	PluginName string
	ActionName string
	Params     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// ActionRepository provides CRUD operations for actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const actionColumns = `id, event, plugin_name, action_name, params, enabled, created_at`

// Create inserts a new action. An empty ID is filled with a fresh UUID.
func (r *ActionRepository) Create(ctx context.Context, a *Action) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actions (`+actionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Event, a.PluginName, a.ActionName, paramsText(a.Params), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(ctx context.Context, id string) (*Action, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListEnabled returns the enabled actions, oldest first.
func (r *ActionRepository) ListEnabled(ctx context.Context) ([]*Action, error) {
	return r.query(ctx, `SELECT `+actionColumns+` FROM actions WHERE enabled = 1 ORDER BY created_at`)
}

// List retrieves all actions, newest first.
func (r *ActionRepository) List(ctx context.Context) ([]*Action, error) {
	return r.query(ctx, `SELECT `+actionColumns+` FROM actions ORDER BY created_at DESC`)
}

func (r *ActionRepository) query(ctx context.Context, q string, args ...any) ([]*Action, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Update updates an existing action.
func (r *ActionRepository) Update(ctx context.Context, a *Action) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE actions SET event = ?, plugin_name = ?, action_name = ?, params = ?, enabled = ?
		 WHERE id = ?`,
		a.Event, a.PluginName, a.ActionName, paramsText(a.Params), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Delete removes an action by its ID.
func (r *ActionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func scanAction(row scanner) (*Action, error) {
	a := &Action{}
	var params string
	var enabled int
	if err := row.Scan(&a.ID, &a.Event, &a.PluginName, &a.ActionName, &params, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Params = json.RawMessage(params)
	a.Enabled = enabled != 0
	return a, nil
}

func paramsText(p json.RawMessage) string {
	if len(p) == 0 {
		return "{}"
	}
	return string(p)
}
