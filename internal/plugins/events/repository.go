package events

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// EventRepository defines persistence operations for stored events. Every
// lookup is scoped to the owning user.
type EventRepository interface {
	Create(ctx context.Context, evt *Event) error
	GetByID(ctx context.Context, ownerID, id string) (*Event, error)
	Update(ctx context.Context, evt *Event) error
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	ListRange(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error)
}

// eventRepo is the MariaDB implementation of EventRepository.
type eventRepo struct {
	db *sql.DB
}

// NewEventRepository creates a new MariaDB-backed event repository.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepo{db: db}
}

// eventCols is the column list for event queries.
const eventCols = `id, owner_id, task_id, title, start_at, end_at, color,
        private, billable, created_at, updated_at`

// scanEvent reads a row into an Event struct.
func scanEvent(scanner interface{ Scan(...any) error }) (*Event, error) {
	evt := &Event{}
	err := scanner.Scan(&evt.ID, &evt.OwnerID, &evt.TaskID, &evt.Title,
		&evt.StartAt, &evt.EndAt, &evt.Color,
		&evt.Private, &evt.Billable, &evt.CreatedAt, &evt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return evt, err
}

// Create inserts a new event.
func (r *eventRepo) Create(ctx context.Context, evt *Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calendar_events (id, owner_id, task_id, title, start_at, end_at,
		        color, private, billable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.OwnerID, evt.TaskID, evt.Title, evt.StartAt.UTC(), evt.EndAt.UTC(),
		evt.Color, evt.Private, evt.Billable,
	)
	return err
}

// GetByID returns the owner's event with id, or nil if there is none.
func (r *eventRepo) GetByID(ctx context.Context, ownerID, id string) (*Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events WHERE id = ? AND owner_id = ?`, id, ownerID))
}

// Update writes every mutable field of an existing event.
func (r *eventRepo) Update(ctx context.Context, evt *Event) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, start_at = ?, end_at = ?, color = ?, private = ?, billable = ?
		 WHERE id = ? AND owner_id = ?`,
		evt.Title, evt.StartAt.UTC(), evt.EndAt.UTC(), evt.Color, evt.Private, evt.Billable,
		evt.ID, evt.OwnerID,
	)
	return err
}

// Delete removes the owner's event and reports whether a row was deleted.
func (r *eventRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRange returns the owner's events overlapping [from, to), ordered by
// start time.
func (r *eventRepo) ListRange(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE owner_id = ? AND start_at < ? AND end_at > ?
		 ORDER BY start_at, id`,
		ownerID, to.UTC(), from.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *evt)
	}
	return out, rows.Err()
}
