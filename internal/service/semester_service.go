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

type semesterStore interface {
	List(ctx context.Context, filter models.SemesterFilter, scope access.Predicate) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Delete(ctx context.Context, id string) error
	ListHolidays(ctx context.Context, semesterID string) ([]models.Holiday, error)
	CreateHoliday(ctx context.Context, holiday *models.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// SemesterService manages academic terms, exam windows and holidays.
type SemesterService struct {
	semesters semesterStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService wires semester dependencies.
func NewSemesterService(semesters semesterStore, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{semesters: semesters, validator: validate, logger: logger}
}

// SemesterInput is the create/update payload.
type SemesterInput struct {
	SchoolID         string     `json:"school_id" validate:"required"`
	Name             string     `json:"name" validate:"required"`
	StartDate        time.Time  `json:"start_date" validate:"required"`
	EndDate          time.Time  `json:"end_date" validate:"required"`
	MidtermStartDate *time.Time `json:"midterm_start_date"`
	MidtermEndDate   *time.Time `json:"midterm_end_date"`
	FinalStartDate   *time.Time `json:"final_start_date"`
	FinalEndDate     *time.Time `json:"final_end_date"`
}

func (s *SemesterService) validateInput(input SemesterInput) error {
	if err := s.validator.Struct(input); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if input.EndDate.Before(input.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	term := models.DateRange{Start: input.StartDate, End: input.EndDate}
	if err := validateWindow(term, input.MidtermStartDate, input.MidtermEndDate, "midterm"); err != nil {
		return err
	}
	return validateWindow(term, input.FinalStartDate, input.FinalEndDate, "final")
}

func validateWindow(term models.DateRange, start, end *time.Time, name string) error {
	if start == nil && end == nil {
		return nil
	}
	if start == nil || end == nil {
		return appErrors.Clone(appErrors.ErrValidation, name+" window requires both bounds")
	}
	if end.Before(*start) {
		return appErrors.Clone(appErrors.ErrValidation, name+" window end precedes start")
	}
	if !term.Contains(*start) || !term.Contains(*end) {
		return appErrors.Clone(appErrors.ErrValidation, name+" window falls outside the semester")
	}
	return nil
}

// Create validates and persists a new semester.
func (s *SemesterService) Create(ctx context.Context, input SemesterInput) (*models.Semester, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	semester := &models.Semester{
		SchoolID:         input.SchoolID,
		Name:             input.Name,
		StartDate:        models.DateOnly(input.StartDate),
		EndDate:          models.DateOnly(input.EndDate),
		MidtermStartDate: input.MidtermStartDate,
		MidtermEndDate:   input.MidtermEndDate,
		FinalStartDate:   input.FinalStartDate,
		FinalEndDate:     input.FinalEndDate,
	}
	if err := s.semesters.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	return semester, nil
}

// Update validates and persists changes to a semester.
func (s *SemesterService) Update(ctx context.Context, id string, input SemesterInput) (*models.Semester, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	semester.Name = input.Name
	semester.StartDate = models.DateOnly(input.StartDate)
	semester.EndDate = models.DateOnly(input.EndDate)
	semester.MidtermStartDate = input.MidtermStartDate
	semester.MidtermEndDate = input.MidtermEndDate
	semester.FinalStartDate = input.FinalStartDate
	semester.FinalEndDate = input.FinalEndDate
	if err := s.semesters.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// Get returns a semester by ID.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.semesters.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// List returns semesters visible under the caller's scope.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter, scope access.Predicate) ([]models.Semester, int, error) {
	semesters, total, err := s.semesters.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, total, nil
}

// Delete removes a semester.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.semesters.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	return nil
}

// HolidayInput is the payload for adding a non-class date.
type HolidayInput struct {
	Name string    `json:"name" validate:"required"`
	Date time.Time `json:"date" validate:"required"`
}

// AddHoliday attaches a holiday to a semester. The date must fall inside it.
func (s *SemesterService) AddHoliday(ctx context.Context, semesterID string, input HolidayInput) (*models.Holiday, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	semester, err := s.Get(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	term := models.DateRange{Start: semester.StartDate, End: semester.EndDate}
	if !term.Contains(input.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "holiday falls outside the semester")
	}
	holiday := &models.Holiday{
		SemesterID: semesterID,
		Name:       input.Name,
		Date:       models.DateOnly(input.Date),
	}
	if err := s.semesters.CreateHoliday(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	return holiday, nil
}

// ListHolidays returns a semester's holidays ordered by date.
func (s *SemesterService) ListHolidays(ctx context.Context, semesterID string) ([]models.Holiday, error) {
	if _, err := s.Get(ctx, semesterID); err != nil {
		return nil, err
	}
	holidays, err := s.semesters.ListHolidays(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// RemoveHoliday deletes a holiday.
func (s *SemesterService) RemoveHoliday(ctx context.Context, id string) error {
	if err := s.semesters.DeleteHoliday(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}
