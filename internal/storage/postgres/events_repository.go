package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/jackc/pgx/v5"
)

// The owner's display name is joined in at read time; only owner_id is stored.
const eventSelect = `
SELECT e.id, e.title, e.event_date, e.event_time, e.location, e.description,
       e.category, e.color, e.owner_id, u.name, e.created_at, e.updated_at
  FROM %s e
  JOIN users u ON u.id = e.owner_id`

const eventOrder = ` ORDER BY e.event_date ASC, e.event_time ASC`

var selectEvents = fmt.Sprintf(eventSelect, "events")

// EventRepository implements events.Repository. Date uniqueness is enforced
// by the events_event_date_key constraint.
type EventRepository struct {
	db queryer
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (event *events.Event, err error) {
	defer func(start time.Time) { observe("events.create", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `
WITH e AS (
  INSERT INTO events (id, title, event_date, event_time, location, description, category, color, owner_id)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
  RETURNING *
)`+fmt.Sprintf(eventSelect, "e"),
		params.ID,
		params.Title,
		events.Day(params.Date),
		params.Time,
		params.Location,
		params.Description,
		string(params.Category),
		params.Color,
		params.OwnerID,
	)
	event, err = scanEvent(row)
	switch {
	case uniqueViolation(err, eventsEventDateKey):
		return nil, events.ErrDateConflict
	case foreignKeyViolation(err, eventsOwnerIDFkey):
		return nil, events.ErrUnknownOwner
	}
	return event, err
}

func (r *EventRepository) List(ctx context.Context) (list []events.Event, err error) {
	defer func(start time.Time) { observe("events.list", start, err) }(time.Now())

	rows, err := r.db.Query(ctx, selectEvents+eventOrder)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

func (r *EventRepository) ListByOwner(ctx context.Context, ownerID string) (list []events.Event, err error) {
	defer func(start time.Time) { observe("events.list_by_owner", start, err) }(time.Now())

	rows, err := r.db.Query(ctx, selectEvents+` WHERE e.owner_id = $1`+eventOrder, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events by owner: %w", err)
	}
	return collectEvents(rows)
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (event *events.Event, err error) {
	defer func(start time.Time) { observe("events.get", start, err) }(time.Now())

	return scanEvent(r.db.QueryRow(ctx, selectEvents+` WHERE e.id = $1`, id))
}

func (r *EventRepository) FindByDate(ctx context.Context, date time.Time, excludeID string) (event *events.Event, err error) {
	defer func(start time.Time) { observe("events.find_by_date", start, err) }(time.Now())

	return scanEvent(r.db.QueryRow(ctx,
		selectEvents+` WHERE e.event_date = $1 AND e.id <> $2`,
		events.Day(date), excludeID,
	))
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (event *events.Event, err error) {
	defer func(start time.Time) { observe("events.update", start, err) }(time.Now())

	row := r.db.QueryRow(ctx, `
WITH e AS (
  UPDATE events
     SET title = $2, event_date = $3, event_time = $4, location = $5,
         description = $6, category = $7, color = $8, updated_at = now()
   WHERE id = $1
  RETURNING *
)`+fmt.Sprintf(eventSelect, "e"),
		id,
		params.Title,
		events.Day(params.Date),
		params.Time,
		params.Location,
		params.Description,
		string(params.Category),
		params.Color,
	)
	event, err = scanEvent(row)
	if uniqueViolation(err, eventsEventDateKey) {
		return nil, events.ErrDateConflict
	}
	return event, err
}

func (r *EventRepository) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("events.delete", start, err) }(time.Now())

	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func scanEvent(row rowScanner) (*events.Event, error) {
	var (
		e        events.Event
		category string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.Time, &e.Location, &e.Description,
		&category, &e.Color, &e.OwnerID, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Category = events.Category(category)
	e.Date = events.Day(e.Date)
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]events.Event, error) {
	defer rows.Close()

	list := make([]events.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return list, nil
}
