package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/Togather-Foundation/agenda/internal/storage"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryer is the subset of pgxpool.Pool the repositories use. pgxmock pools
// satisfy it too.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pinger interface {
	queryer
	Ping(ctx context.Context) error
	Close()
}

// Options configures the connection pool.
type Options struct {
	URL              string
	MaxConns         int32
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

// Connect opens a pool and verifies it with a ping. Connect and statement
// timeouts bound every wait on the database.
func Connect(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Repository implements storage.Repository on PostgreSQL.
type Repository struct {
	db     pinger
	users  *UserRepository
	events *EventRepository
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return newRepository(pool), nil
}

func newRepository(db pinger) *Repository {
	return &Repository{
		db:     db,
		users:  &UserRepository{db: db},
		events: &EventRepository{db: db},
	}
}

func (r *Repository) Users() users.Repository {
	return r.users
}

func (r *Repository) Events() events.Repository {
	return r.events
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// MigrationState reads the schema_migrations row written by golang-migrate.
// version is 0 when no migration has run.
func (r *Repository) MigrationState(ctx context.Context) (version int64, dirty bool, err error) {
	err = r.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration state: %w", err)
	}
	return version, dirty, nil
}

func (r *Repository) Close() {
	r.db.Close()
}

const (
	usersEmailKey      = "users_email_key"
	eventsEventDateKey = "events_event_date_key"
	eventsOwnerIDFkey  = "events_owner_id_fkey"
)

// uniqueViolation reports whether err is a unique violation of the named
// constraint. An empty constraint matches any unique violation.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func foreignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.ForeignKeyViolation {
		return false
	}
	return pgErr.ConstraintName == constraint
}

type rowScanner interface {
	Scan(dest ...any) error
}

// observe records query latency. Lookups that miss and uniqueness rejections
// are expected outcomes and are not counted as errors.
func observe(operation string, start time.Time, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, events.ErrDateConflict),
		errors.Is(err, events.ErrUnknownOwner):
		err = nil
	}
	metrics.RecordQuery(operation, start, err)
}
