package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type classStore interface {
	List(ctx context.Context, filter models.ClassFilter, scope access.Predicate) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	FindCourse(ctx context.Context, courseID string) (*models.Course, error)
	Create(ctx context.Context, class *models.Class) error
	UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error
	Delete(ctx context.Context, id string) error
	ListAssistants(ctx context.Context, classID string) ([]string, error)
	AddAssistant(ctx context.Context, classID, userID string) error
}

type sessionGenerator interface {
	GenerateForClass(ctx context.Context, classID string) ([]models.ClassSession, error)
	HasSessions(ctx context.Context, classID string) (bool, error)
}

// ClassService manages class sections and drives session generation.
type ClassService struct {
	classes   classStore
	generator sessionGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService wires class dependencies.
func NewClassService(classes classStore, generator sessionGenerator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, generator: generator, validator: validate, logger: logger}
}

// CreateClassInput is the payload for opening a new section.
type CreateClassInput struct {
	CourseID     string          `json:"course_id" validate:"required"`
	SemesterID   string          `json:"semester_id" validate:"required"`
	SchoolID     string          `json:"school_id" validate:"required"`
	InstructorID *string         `json:"instructor_id"`
	Section      string          `json:"section" validate:"required"`
	Schedule     models.Schedule `json:"schedule" validate:"required"`
}

// Create opens a section and immediately generates its calendar sessions.
func (s *ClassService) Create(ctx context.Context, input CreateClassInput) (*models.ClassDetail, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	class := &models.Class{
		CourseID:     input.CourseID,
		SemesterID:   input.SemesterID,
		SchoolID:     input.SchoolID,
		InstructorID: input.InstructorID,
		Section:      input.Section,
		Schedule:     input.Schedule,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	// Generation failure does not undo the create. The calendar can be
	// produced later through the regenerate endpoint.
	if _, err := s.generator.GenerateForClass(ctx, class.ID); err != nil {
		s.logger.Error("session generation failed for new class", zap.String("class_id", class.ID), zap.Error(err))
	}

	return s.Get(ctx, class.ID)
}

// RegenerateSessions produces the class calendar when creation-time
// generation failed. It refuses when sessions already exist; replacing a
// calendar goes through UpdateSchedule.
func (s *ClassService) RegenerateSessions(ctx context.Context, classID string) ([]models.ClassSession, error) {
	exists, err := s.generator.HasSessions(ctx, classID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sessions already generated for this class")
	}
	return s.generator.GenerateForClass(ctx, classID)
}

// UpdateSchedule replaces the weekly pattern and regenerates the calendar.
func (s *ClassService) UpdateSchedule(ctx context.Context, classID string, schedule models.Schedule) ([]models.ClassSession, error) {
	if err := s.validator.Struct(schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.classes.UpdateSchedule(ctx, classID, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	return s.generator.GenerateForClass(ctx, classID)
}

// Get returns a class with joined context.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	detail, err := s.classes.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// List returns classes visible under the caller's scope.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter, scope access.Predicate) ([]models.ClassDetail, int, error) {
	classes, total, err := s.classes.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, total, nil
}

// Delete removes a class; sessions and attendance cascade.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.classes.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.logger.Info("deleted class", zap.String("class_id", id))
	return nil
}

// AddAssistant grants a TA access to a class.
func (s *ClassService) AddAssistant(ctx context.Context, classID, userID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.classes.AddAssistant(ctx, classID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add assistant")
	}
	return nil
}

// ListAssistants returns the TAs attached to a class.
func (s *ClassService) ListAssistants(ctx context.Context, classID string) ([]string, error) {
	ids, err := s.classes.ListAssistants(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assistants")
	}
	return ids, nil
}
