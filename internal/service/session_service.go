package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type sessionStore interface {
	List(ctx context.Context, filter models.SessionFilter, scope access.Predicate) ([]models.ClassSession, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	Update(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, id string) error
}

// SessionService serves and edits generated class sessions.
type SessionService struct {
	sessions  sessionStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService wires session dependencies.
func NewSessionService(sessions sessionStore, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, validator: validate, logger: logger}
}

// List returns sessions visible under the caller's scope as JSON views.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter, scope access.Predicate) ([]models.ClassSessionView, int, error) {
	sessions, total, err := s.sessions.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	views := make([]models.ClassSessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, session.View())
	}
	return views, total, nil
}

// Get returns one session as a JSON view.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ClassSessionView, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	view := session.View()
	return &view, nil
}

// UpdateSessionInput carries a partial session edit.
type UpdateSessionInput struct {
	ScheduledDate *time.Time            `json:"scheduled_date"`
	StartTime     *string               `json:"scheduled_start_time"`
	Kind          *models.SessionKind   `json:"kind"`
	Status        *models.SessionStatus `json:"status"`
}

// Update applies a partial edit. Moving the start time shifts the end time by
// the same amount, keeping the session's duration.
func (s *SessionService) Update(ctx context.Context, id string, input UpdateSessionInput) (*models.ClassSessionView, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if input.ScheduledDate != nil {
		date := models.DateOnly(*input.ScheduledDate)
		session.ScheduledDate = date
		session.DayOfWeek = date.Weekday().String()
	}
	if input.StartTime != nil {
		end, err := RecomputeEndTime(session.ScheduledStartTime, session.ScheduledEndTime, *input.StartTime)
		if err != nil {
			return nil, err
		}
		session.ScheduledStartTime = *input.StartTime
		session.ScheduledEndTime = end
	}
	if input.Kind != nil {
		if !input.Kind.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid session kind")
		}
		session.Kind = *input.Kind
	}
	if input.Status != nil {
		session.Status = *input.Status
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}

	s.logger.Info("updated session", zap.String("session_id", id))
	view := session.View()
	return &view, nil
}

// Delete removes a single session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.sessions.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}
