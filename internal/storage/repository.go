package storage

import (
	"context"

	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
)

// Repository groups data access by domain. Both backends enforce email and
// event date uniqueness themselves.
type Repository interface {
	Users() users.Repository
	Events() events.Repository

	Ping(ctx context.Context) error
	Close()
}
