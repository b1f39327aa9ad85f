package events

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrForbidden    = errors.New("actor does not own event")
	ErrDateConflict = errors.New("an event already exists on this date")
	ErrUnknownOwner = errors.New("event owner does not exist")
)

// DateLayout is the wire and storage layout of Event.Date.
const DateLayout = "2006-01-02"

// Event is a calendar entry. Date is a calendar day at UTC midnight; Time is a
// free-text display string and takes no part in uniqueness.
type Event struct {
	ID          string
	Title       string
	Date        time.Time
	Time        string
	Location    string
	Description string
	Category    Category
	Color       string
	OwnerID     string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID      string
	Name    string
	IsAdmin bool
}

// Owns reports whether the actor created the event. Admin status is not
// considered.
func (a Actor) Owns(e *Event) bool {
	return e != nil && a.ID != "" && e.OwnerID == a.ID
}

type CreateParams struct {
	ID      string
	OwnerID string
	Input
}

type UpdateParams struct {
	Input
}

// Repository is the event store. Create and Update return ErrDateConflict
// when another event already holds the date, whatever the caller checked
// beforehand. Create returns ErrUnknownOwner when OwnerID names no user.
// Lists are ordered by date then time string.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	// FindByDate returns the event on date other than excludeID, or ErrNotFound.
	FindByDate(ctx context.Context, date time.Time, excludeID string) (*Event, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
