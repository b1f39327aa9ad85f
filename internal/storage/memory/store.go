// Package memory is a process-local storage backend. Every write takes the
// store lock, so uniqueness checks and inserts are atomic with respect to
// each other.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	users  map[string]users.User
	events map[string]events.Event
	now    func() time.Time
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[string]users.User),
		events: make(map[string]events.Event),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() users.Repository {
	return &UserRepository{store: s}
}

func (s *Store) Events() events.Repository {
	return &EventRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() {}

// UserRepository implements users.Repository.
type UserRepository struct {
	store *Store
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == params.Email {
			return nil, users.ErrEmailTaken
		}
	}
	now := r.store.now()
	u := users.User{
		ID:           params.ID,
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		IsAdmin:      params.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.store.users[u.ID] = u
	return &u, nil
}

// Delete removes the user and the events they own.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[id]; !ok {
		return users.ErrNotFound
	}
	delete(r.store.users, id)
	for eventID, e := range r.store.events {
		if e.OwnerID == id {
			delete(r.store.events, eventID)
		}
	}
	return nil
}

func (r *UserRepository) SetAdmin(_ context.Context, id string, isAdmin bool) (*users.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	u.IsAdmin = isAdmin
	u.UpdatedAt = r.store.now()
	r.store.users[id] = u
	return &u, nil
}

// EventRepository implements events.Repository.
type EventRepository struct {
	store *Store
}

func (r *EventRepository) Create(_ context.Context, params events.CreateParams) (*events.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[params.OwnerID]; !ok {
		return nil, events.ErrUnknownOwner
	}
	if r.store.dateTakenLocked(params.Date, "") {
		return nil, events.ErrDateConflict
	}
	now := r.store.now()
	e := events.Event{
		ID:        params.ID,
		OwnerID:   params.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(&e, params.Input)
	r.store.events[e.ID] = e
	return r.store.withOwnerLocked(e), nil
}

func (r *EventRepository) List(context.Context) ([]events.Event, error) {
	return r.store.list(func(events.Event) bool { return true }), nil
}

func (r *EventRepository) ListByOwner(_ context.Context, ownerID string) ([]events.Event, error) {
	return r.store.list(func(e events.Event) bool { return e.OwnerID == ownerID }), nil
}

func (r *EventRepository) GetByID(_ context.Context, id string) (*events.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return r.store.withOwnerLocked(e), nil
}

func (r *EventRepository) FindByDate(_ context.Context, date time.Time, excludeID string) (*events.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, e := range r.store.events {
		if e.ID != excludeID && events.SameDay(e.Date, date) {
			return r.store.withOwnerLocked(e), nil
		}
	}
	return nil, events.ErrNotFound
}

func (r *EventRepository) Update(_ context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	if r.store.dateTakenLocked(params.Date, id) {
		return nil, events.ErrDateConflict
	}
	applyInput(&e, params.Input)
	e.UpdatedAt = r.store.now()
	r.store.events[id] = e
	return r.store.withOwnerLocked(e), nil
}

func (r *EventRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.events[id]; !ok {
		return events.ErrNotFound
	}
	delete(r.store.events, id)
	return nil
}

func applyInput(e *events.Event, in events.Input) {
	e.Title = in.Title
	e.Date = events.Day(in.Date)
	e.Time = in.Time
	e.Location = in.Location
	e.Description = in.Description
	e.Category = in.Category
	e.Color = in.Color
}

func (s *Store) dateTakenLocked(date time.Time, excludeID string) bool {
	for _, e := range s.events {
		if e.ID != excludeID && events.SameDay(e.Date, date) {
			return true
		}
	}
	return false
}

func (s *Store) withOwnerLocked(e events.Event) *events.Event {
	if owner, ok := s.users[e.OwnerID]; ok {
		e.CreatedBy = owner.Name
	}
	return &e
}

func (s *Store) list(keep func(events.Event) bool) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, *s.withOwnerLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out
}
