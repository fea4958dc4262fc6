package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
)

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, enrollment_id, class_session_id, status, clock_in_time, clock_out_time, session_duration, notes, marked_by, created_at, updated_at`

// FindByPair returns the record for an enrollment and session, if one exists.
// The pair is unique, so at most one row comes back.
func (r *AttendanceRepository) FindByPair(ctx context.Context, enrollmentID, classSessionID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE enrollment_id = $1 AND class_session_id = $2`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, enrollmentID, classSessionID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID returns a record by its ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE id = $1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create persists a new attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, enrollment_id, class_session_id, status, clock_in_time, clock_out_time, session_duration, notes, marked_by, created_at, updated_at)
        VALUES (:id, :enrollment_id, :class_session_id, :status, :clock_in_time, :clock_out_time, :session_duration, :notes, :marked_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a record.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.AttendanceRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_records
        SET status = :status, clock_in_time = :clock_in_time, clock_out_time = :clock_out_time,
            session_duration = :session_duration, notes = :notes, marked_by = :marked_by, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	return nil
}

// List returns attendance records with joined student and session context,
// scoped by the policy predicate.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter, scope access.Predicate) ([]models.AttendanceDetail, int, error) {
	base := `FROM attendance_records ar
JOIN enrollments e ON e.id = ar.enrollment_id
JOIN students s ON s.id = e.student_id
JOIN class_sessions cs ON cs.id = ar.class_session_id
JOIN classes c ON c.id = cs.class_id
JOIN courses co ON co.id = c.course_id`
	var conditions []string
	var args []interface{}

	if filter.ClassSessionID != "" {
		conditions = append(conditions, fmt.Sprintf("ar.class_session_id = $%d", len(args)+1))
		args = append(args, filter.ClassSessionID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("ar.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("cs.scheduled_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("cs.scheduled_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if !scope.Unrestricted() {
		frag, scopeArgs := scope.Render(len(args) + 1)
		conditions = append(conditions, frag)
		args = append(args, scopeArgs...)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.enrollment_id, ar.class_session_id, ar.status, ar.clock_in_time, ar.clock_out_time,
        ar.session_duration, ar.notes, ar.marked_by, ar.created_at, ar.updated_at,
        s.id AS student_id, s.first_name || ' ' || s.last_name AS student_name, s.student_number,
        cs.scheduled_date, c.id AS class_id, co.code AS course_code
        %s ORDER BY cs.scheduled_date DESC, s.last_name LIMIT %d OFFSET %d`, base+clause, size, offset)

	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return records, total, nil
}

// Summary aggregates per-student attendance counts for a class. Percent is
// computed by the service from Present and Total.
func (r *AttendanceRepository) Summary(ctx context.Context, classID string) ([]models.AttendanceSummary, error) {
	const query = `SELECT
        s.id AS student_id,
        s.first_name || ' ' || s.last_name AS student_name,
        COUNT(*) FILTER (WHERE ar.status = 'present') AS present,
        COUNT(*) FILTER (WHERE ar.status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE ar.status = 'excused') AS excused,
        COUNT(ar.id) AS total,
        COALESCE(SUM(ar.session_duration), 0) AS total_minutes
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance_records ar ON ar.enrollment_id = e.id
        WHERE e.class_id = $1 AND e.status = 'ACTIVE'
        GROUP BY s.id, s.first_name, s.last_name
        ORDER BY s.last_name, s.first_name`
	var summaries []models.AttendanceSummary
	if err := r.db.SelectContext(ctx, &summaries, query, classID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return summaries, nil
}

// ClassOfEnrollment returns the class an enrollment belongs to.
func (r *AttendanceRepository) ClassOfEnrollment(ctx context.Context, enrollmentID string) (string, error) {
	var classID string
	if err := r.db.GetContext(ctx, &classID, `SELECT class_id FROM enrollments WHERE id = $1`, enrollmentID); err != nil {
		return "", err
	}
	return classID, nil
}

// ClassOfSession returns the class a session belongs to.
func (r *AttendanceRepository) ClassOfSession(ctx context.Context, classSessionID string) (string, error) {
	var classID string
	if err := r.db.GetContext(ctx, &classID, `SELECT class_id FROM class_sessions WHERE id = $1`, classSessionID); err != nil {
		return "", err
	}
	return classID, nil
}
