package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/agenda/internal/audit"
	"github.com/Togather-Foundation/agenda/internal/domain/ids"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/rs/zerolog"
)

// Service is the scheduling engine: it validates drafts, checks ownership and
// keeps at most one event per calendar date.
type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "events").Logger(),
	}
}

// Create validates the draft and stores a new event owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, draft Draft) (*Event, error) {
	input, err := draft.Validate()
	if err != nil {
		s.recordMutation("create", err)
		return nil, err
	}

	if err := s.checkDate(ctx, "create", input, ""); err != nil {
		s.recordMutation("create", err)
		return nil, err
	}

	event, err := s.repo.Create(ctx, CreateParams{
		ID:      ids.NewULID(),
		OwnerID: actor.ID,
		Input:   input,
	})
	if err != nil {
		err = s.storeError("create", err)
		s.recordMutation("create", err)
		return nil, err
	}

	s.recordMutation("create", nil)
	s.auditLogger.LogSuccess("event.created", actor.ID, "event", event.ID, map[string]string{
		"date":     event.Date.Format(DateLayout),
		"category": string(event.Category),
	})
	return event, nil
}

// ListAll returns every event ordered by date then time.
func (s *Service) ListAll(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

// ListMine returns the events created by the actor.
func (s *Service) ListMine(ctx context.Context, actor Actor) ([]Event, error) {
	return s.repo.ListByOwner(ctx, actor.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces every mutable field of an event the actor owns. Existence
// and ownership are checked before the draft is validated.
func (s *Service) Update(ctx context.Context, actor Actor, id string, draft Draft) (*Event, error) {
	if _, err := s.owned(ctx, actor, id, "update"); err != nil {
		s.recordMutation("update", err)
		return nil, err
	}

	input, err := draft.Validate()
	if err != nil {
		s.recordMutation("update", err)
		return nil, err
	}

	if err := s.checkDate(ctx, "update", input, id); err != nil {
		s.recordMutation("update", err)
		return nil, err
	}

	event, err := s.repo.Update(ctx, id, UpdateParams{Input: input})
	if err != nil {
		err = s.storeError("update", err)
		s.recordMutation("update", err)
		return nil, err
	}

	s.recordMutation("update", nil)
	s.auditLogger.LogSuccess("event.updated", actor.ID, "event", event.ID, map[string]string{
		"date": event.Date.Format(DateLayout),
	})
	return event, nil
}

// Delete removes an event the actor owns.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.owned(ctx, actor, id, "delete"); err != nil {
		s.recordMutation("delete", err)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("delete event: %w", err)
		}
		s.recordMutation("delete", err)
		return err
	}

	s.recordMutation("delete", nil)
	s.auditLogger.LogSuccess("event.deleted", actor.ID, "event", id, nil)
	return nil
}

func (s *Service) owned(ctx context.Context, actor Actor, id, operation string) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(event) {
		s.auditLogger.LogFailure("event."+operation, actor.ID, map[string]string{
			"event_id": id,
			"reason":   "not_owner",
		})
		return nil, ErrForbidden
	}
	return event, nil
}

// checkDate is the early lookup for an occupied date. The store still has the
// final word on uniqueness.
func (s *Service) checkDate(ctx context.Context, operation string, input Input, excludeID string) error {
	existing, err := s.repo.FindByDate(ctx, input.Date, excludeID)
	switch {
	case err == nil:
		metrics.DateConflictsTotal.WithLabelValues(operation, "precheck").Inc()
		s.logger.Info().
			Str("date", input.Date.Format(DateLayout)).
			Str("existing_id", existing.ID).
			Str("operation", operation).
			Msg("date already taken")
		return ErrDateConflict
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find by date: %w", err)
	}
}

func (s *Service) storeError(operation string, err error) error {
	switch {
	case errors.Is(err, ErrDateConflict):
		metrics.DateConflictsTotal.WithLabelValues(operation, "constraint").Inc()
		s.logger.Warn().Str("operation", operation).Msg("date conflict caught by store constraint")
		return ErrDateConflict
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrUnknownOwner):
		s.logger.Warn().Str("operation", operation).Msg("event owner vanished before write")
		return ErrUnknownOwner
	default:
		return fmt.Errorf("%s event: %w", operation, err)
	}
}

func (s *Service) recordMutation(operation string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrDateConflict):
		result = "date_conflict"
	case errors.Is(err, ErrForbidden):
		result = "forbidden"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrUnknownOwner):
		result = "unknown_owner"
	case isValidation(err):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.EventMutationsTotal.WithLabelValues(operation, result).Inc()
}
