package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type attendanceStudentResolver interface {
	FindByCode(ctx context.Context, code string) (*models.Student, error)
}

type attendanceEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassSession, error)
}

type attendanceRecordStore interface {
	FindByPair(ctx context.Context, enrollmentID, classSessionID string) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	Update(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter, scope access.Predicate) ([]models.AttendanceDetail, int, error)
	Summary(ctx context.Context, classID string) ([]models.AttendanceSummary, error)
	ClassOfEnrollment(ctx context.Context, enrollmentID string) (string, error)
	ClassOfSession(ctx context.Context, classSessionID string) (string, error)
}

type attendanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceService reconciles scan events against existing records and
// serves attendance listings, edits and summaries.
type AttendanceService struct {
	students    attendanceStudentResolver
	enrollments attendanceEnrollmentReader
	sessions    attendanceSessionReader
	records     attendanceRecordStore
	cache       attendanceCache
	validator   *validator.Validate
	logger      *zap.Logger

	studentCacheTTL time.Duration
	summaryCacheTTL time.Duration
}

// AttendanceConfig tunes cache behaviour on the scan hot path.
type AttendanceConfig struct {
	StudentCacheTTL time.Duration
	SummaryCacheTTL time.Duration
}

// NewAttendanceService wires attendance dependencies.
func NewAttendanceService(
	students attendanceStudentResolver,
	enrollments attendanceEnrollmentReader,
	sessions attendanceSessionReader,
	records attendanceRecordStore,
	cache attendanceCache,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AttendanceConfig,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StudentCacheTTL <= 0 {
		cfg.StudentCacheTTL = 5 * time.Minute
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = time.Minute
	}
	return &AttendanceService{
		students:        students,
		enrollments:     enrollments,
		sessions:        sessions,
		records:         records,
		cache:           cache,
		validator:       validate,
		logger:          logger,
		studentCacheTTL: cfg.StudentCacheTTL,
		summaryCacheTTL: cfg.SummaryCacheTTL,
	}
}

// DurationMinutes derives the stored duration from both clock times, rounding
// the elapsed seconds to whole minutes. Either time missing yields nil.
func DurationMinutes(clockIn, clockOut *time.Time) *int {
	if clockIn == nil || clockOut == nil {
		return nil
	}
	minutes := int(math.Round(clockOut.Sub(*clockIn).Seconds() / 60))
	return &minutes
}

// Reconcile advances one (enrollment, session) pair through the clock-in
// state machine. A nil existing record means clock-in; an open record means
// clock-out; a completed record is left untouched. The returned record is the
// desired state, not yet persisted.
func Reconcile(existing *models.AttendanceRecord, enrollmentID, classSessionID string, now time.Time) (*models.AttendanceRecord, models.ScanAction) {
	switch {
	case existing == nil:
		in := now
		return &models.AttendanceRecord{
			EnrollmentID:   enrollmentID,
			ClassSessionID: classSessionID,
			Status:         models.AttendancePresent,
			ClockInTime:    &in,
		}, models.ScanActionClockIn
	case existing.ClockOutTime == nil:
		out := now
		updated := *existing
		updated.ClockOutTime = &out
		updated.SessionDuration = DurationMinutes(updated.ClockInTime, updated.ClockOutTime)
		return &updated, models.ScanActionClockOut
	default:
		return existing, models.ScanActionCompleted
	}
}

// ProcessScan resolves the scanned code to a student and reconciles every
// active enrollment that has a session scheduled today. Each enrollment is
// handled independently; one failure never blocks the others.
func (s *AttendanceService) ProcessScan(ctx context.Context, code string, now time.Time) (*models.ScanResult, error) {
	student, err := s.resolveStudent(ctx, code)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListActiveByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	result := &models.ScanResult{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		ScannedAt:   now,
		Outcomes:    make([]models.ScanOutcome, 0, len(enrollments)),
	}

	for _, enrollment := range enrollments {
		result.Outcomes = append(result.Outcomes, s.reconcileEnrollment(ctx, enrollment, now))
	}

	s.logger.Info("processed attendance scan",
		zap.String("student_id", student.ID),
		zap.Int("enrollments", len(enrollments)),
	)
	return result, nil
}

func (s *AttendanceService) reconcileEnrollment(ctx context.Context, enrollment models.EnrollmentDetail, now time.Time) models.ScanOutcome {
	outcome := models.ScanOutcome{
		ClassID:      enrollment.ClassID,
		CourseCode:   enrollment.CourseCode,
		EnrollmentID: enrollment.ID,
	}

	session, err := s.sessions.FindByClassAndDate(ctx, enrollment.ClassID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome.Action = models.ScanActionNoSession
			outcome.Message = "no scheduled session today"
			return outcome
		}
		outcome.Action = models.ScanActionFailed
		outcome.Message = "failed to resolve today's session"
		s.logger.Warn("session lookup failed", zap.String("class_id", enrollment.ClassID), zap.Error(err))
		return outcome
	}
	outcome.ClassSessionID = session.ID

	existing, err := s.records.FindByPair(ctx, enrollment.ID, session.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			outcome.Action = models.ScanActionFailed
			outcome.Message = "failed to load attendance record"
			s.logger.Warn("attendance lookup failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
			return outcome
		}
		existing = nil
	}

	record, action := Reconcile(existing, enrollment.ID, session.ID, now)
	switch action {
	case models.ScanActionClockIn:
		if err := s.records.Create(ctx, record); err != nil {
			outcome.Action = models.ScanActionFailed
			outcome.Message = "failed to record clock-in"
			s.logger.Warn("clock-in failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
			return outcome
		}
		outcome.Message = "clocked in"
	case models.ScanActionClockOut:
		if err := s.records.Update(ctx, record); err != nil {
			outcome.Action = models.ScanActionFailed
			outcome.Message = "failed to record clock-out"
			s.logger.Warn("clock-out failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
			return outcome
		}
		outcome.Message = "clocked out"
	case models.ScanActionCompleted:
		outcome.Message = "already completed"
	}
	outcome.Action = action
	outcome.Record = record

	if action == models.ScanActionClockIn || action == models.ScanActionClockOut {
		s.invalidateSummary(ctx, enrollment.ClassID)
	}
	return outcome
}

func (s *AttendanceService) resolveStudent(ctx context.Context, code string) (*models.Student, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scan code is required")
	}

	key := "scan:student:" + code
	if s.cache != nil {
		var cached models.Student
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	student, err := s.students.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is inactive")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, student, s.studentCacheTTL); err != nil {
			s.logger.Warn("failed to cache student", zap.Error(err))
		}
	}
	return student, nil
}

func (s *AttendanceService) invalidateSummary(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("attendance:summary:%s*", classID)); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.String("class_id", classID), zap.Error(err))
	}
}

// UpdateAttendanceInput carries a manual correction from staff. Nil time
// pointers leave the stored value alone; the Clear flags null it out, since
// JSON gives no way to tell "absent" from "set to null" on a pointer field.
type UpdateAttendanceInput struct {
	Status        *models.AttendanceStatus `json:"status"`
	ClockInTime   *time.Time               `json:"clock_in_time"`
	ClockOutTime  *time.Time               `json:"clock_out_time"`
	ClearClockIn  bool                     `json:"clear_clock_in"`
	ClearClockOut bool                     `json:"clear_clock_out"`
	Notes         *string                  `json:"notes"`
	MarkedBy      string                   `json:"-"`
}

// Update applies a manual edit to an existing record, recomputing the stored
// duration whenever either clock time moves.
func (s *AttendanceService) Update(ctx context.Context, id string, input UpdateAttendanceInput) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
		}
		record.Status = *input.Status
	}
	if input.ClockInTime != nil {
		record.ClockInTime = input.ClockInTime
	}
	if input.ClockOutTime != nil {
		record.ClockOutTime = input.ClockOutTime
	}
	if input.ClearClockIn {
		record.ClockInTime = nil
	}
	if input.ClearClockOut {
		record.ClockOutTime = nil
	}
	if record.ClockInTime != nil && record.ClockOutTime != nil && record.ClockOutTime.Before(*record.ClockInTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "clock-out must not precede clock-in")
	}
	record.SessionDuration = DurationMinutes(record.ClockInTime, record.ClockOutTime)
	if input.Notes != nil {
		record.Notes = input.Notes
	}
	if input.MarkedBy != "" {
		marked := input.MarkedBy
		record.MarkedBy = &marked
	}

	if err := s.records.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
	}

	if classID, err := s.records.ClassOfEnrollment(ctx, record.EnrollmentID); err == nil {
		s.invalidateSummary(ctx, classID)
	}
	return record, nil
}

// CreateAttendanceInput carries a manual record created by staff, e.g. when
// marking a student absent or excused without a scan.
type CreateAttendanceInput struct {
	EnrollmentID   string                  `json:"enrollment_id" validate:"required"`
	ClassSessionID string                  `json:"class_session_id" validate:"required"`
	Status         models.AttendanceStatus `json:"status" validate:"required"`
	Notes          *string                 `json:"notes"`
	MarkedBy       string                  `json:"-"`
}

// Create records attendance manually. The enrollment and session must belong
// to the same class.
func (s *AttendanceService) Create(ctx context.Context, input CreateAttendanceInput) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if !input.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
	}

	enrollmentClass, err := s.records.ClassOfEnrollment(ctx, input.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment")
	}
	sessionClass, err := s.records.ClassOfSession(ctx, input.ClassSessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve session")
	}
	if enrollmentClass != sessionClass {
		return nil, appErrors.ErrClassMismatch
	}

	if _, err := s.records.FindByPair(ctx, input.EnrollmentID, input.ClassSessionID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this session")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing record")
	}

	record := &models.AttendanceRecord{
		EnrollmentID:   input.EnrollmentID,
		ClassSessionID: input.ClassSessionID,
		Status:         input.Status,
		Notes:          input.Notes,
	}
	if input.MarkedBy != "" {
		marked := input.MarkedBy
		record.MarkedBy = &marked
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.invalidateSummary(ctx, enrollmentClass)
	return record, nil
}

// List returns attendance records visible under the caller's scope.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter, scope access.Predicate) ([]models.AttendanceDetail, int, error) {
	records, total, err := s.records.List(ctx, filter, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return records, total, nil
}

// Summary aggregates per-student counts for a class, cached briefly.
func (s *AttendanceService) Summary(ctx context.Context, classID string) ([]models.AttendanceSummary, error) {
	key := "attendance:summary:" + classID
	if s.cache != nil {
		var cached []models.AttendanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	summaries, err := s.records.Summary(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}
	for i := range summaries {
		if summaries[i].Total > 0 {
			summaries[i].Percent = math.Round(float64(summaries[i].Present)/float64(summaries[i].Total)*10000) / 100
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summaries, s.summaryCacheTTL); err != nil {
			s.logger.Warn("failed to cache summary", zap.Error(err))
		}
	}
	return summaries, nil
}
