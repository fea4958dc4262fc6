package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type generatorClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindCourse(ctx context.Context, courseID string) (*models.Course, error)
}

type generatorSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	ListHolidays(ctx context.Context, semesterID string) ([]models.Holiday, error)
}

type generatorSessionWriter interface {
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, classID string, drafts []models.ClassSessionDraft) ([]models.ClassSession, error)
	DeleteByClassWithTx(ctx context.Context, tx *sqlx.Tx, classID string) error
	CountByClass(ctx context.Context, classID string) (int, error)
	CountAttendanceByClass(ctx context.Context, classID string) (int, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SessionGeneratorService expands a class's weekly schedule into concrete
// calendar sessions over a semester.
type SessionGeneratorService struct {
	classes   generatorClassReader
	semesters generatorSemesterReader
	sessions  generatorSessionWriter
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionGeneratorService wires generator dependencies.
func NewSessionGeneratorService(
	classes generatorClassReader,
	semesters generatorSemesterReader,
	sessions generatorSessionWriter,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionGeneratorService{
		classes:   classes,
		semesters: semesters,
		sessions:  sessions,
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
}

// Generate walks every date of the semester inclusive and emits one draft per
// date that matches the schedule's weekdays and is not a holiday. The latest
// draft inside the midterm window is tagged midterm, the latest inside the
// final window is tagged final; final is applied second so it wins when the
// windows overlap. A schedule whose days never occur yields an empty slice,
// not an error.
func (s *SessionGeneratorService) Generate(courseNumber string, schedule models.Schedule, semester *models.Semester, holidays models.HolidaySet) ([]models.ClassSessionDraft, error) {
	if semester == nil || schedule.IsZero() {
		return nil, appErrors.ErrMissingSchedule
	}
	if semester.StartDate.IsZero() || semester.EndDate.IsZero() {
		return nil, appErrors.ErrMissingSchedule
	}

	weekdays := schedule.Weekdays()
	start := models.DateOnly(semester.StartDate)
	end := models.DateOnly(semester.EndDate)

	var drafts []models.ClassSessionDraft
	midtermIdx, finalIdx := -1, -1
	midterm := semester.MidtermRange()
	final := semester.FinalRange()

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if !weekdays[date.Weekday()] {
			continue
		}
		if holidays.Contains(date) {
			continue
		}
		drafts = append(drafts, models.ClassSessionDraft{
			ScheduledDate:      date,
			DayOfWeek:          date.Weekday().String(),
			CourseNumber:       courseNumber,
			ScheduledStartTime: schedule.StartTime,
			ScheduledEndTime:   schedule.EndTime,
			Kind:               models.SessionRegular,
		})
		idx := len(drafts) - 1
		if midterm != nil && midterm.Contains(date) {
			midtermIdx = idx
		}
		if final != nil && final.Contains(date) {
			finalIdx = idx
		}
	}

	if midtermIdx >= 0 {
		drafts[midtermIdx].Kind = models.SessionMidterm
	}
	if finalIdx >= 0 {
		drafts[finalIdx].Kind = models.SessionFinal
	}

	return drafts, nil
}

// GenerateForClass loads the class context, runs the generator, and replaces
// the class's sessions atomically. Regeneration is refused once any
// attendance has been recorded against the class's sessions.
func (s *SessionGeneratorService) GenerateForClass(ctx context.Context, classID string) ([]models.ClassSession, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Schedule.IsZero() {
		return nil, appErrors.ErrMissingSchedule
	}

	course, err := s.classes.FindCourse(ctx, class.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	semester, err := s.semesters.FindByID(ctx, class.SemesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMissingSchedule
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	holidays, err := s.semesters.ListHolidays(ctx, class.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}

	attendanceCount, err := s.sessions.CountAttendanceByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	if attendanceCount > 0 {
		return nil, appErrors.New("SESSIONS_IN_USE", http.StatusConflict, "cannot regenerate sessions once attendance has been recorded")
	}

	drafts, err := s.Generate(course.Code, class.Schedule, semester, models.NewHolidaySet(holidays))
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer tx.Rollback()

	if err := s.sessions.DeleteByClassWithTx(ctx, tx, classID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous sessions")
	}
	created, err := s.sessions.BulkCreateWithTx(ctx, tx, classID, drafts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist sessions")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit sessions")
	}

	s.logger.Info("generated class sessions",
		zap.String("class_id", classID),
		zap.String("course", course.Code),
		zap.Int("session_count", len(created)),
	)
	return created, nil
}

// HasSessions reports whether a class already has a generated calendar.
func (s *SessionGeneratorService) HasSessions(ctx context.Context, classID string) (bool, error) {
	count, err := s.sessions.CountByClass(ctx, classID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	return count > 0, nil
}

// RecomputeEndTime shifts a session's end so the original duration is kept
// when the start time moves. Times are HH:MM strings on a 24h clock.
func RecomputeEndTime(oldStart, oldEnd, newStart string) (string, error) {
	const layout = "15:04"
	os, err := time.Parse(layout, oldStart)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	oe, err := time.Parse(layout, oldEnd)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	ns, err := time.Parse(layout, newStart)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	duration := oe.Sub(os)
	if duration < 0 {
		duration += 24 * time.Hour
	}
	return ns.Add(duration).Format(layout), nil
}
