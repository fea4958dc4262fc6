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

// SessionRepository handles persistence of generated class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, class_id, scheduled_date, day_of_week, course_number, scheduled_start_time, scheduled_end_time, kind, status, created_at, updated_at`

// BulkCreateWithTx inserts generated session drafts for a class inside the
// caller's transaction so regeneration stays atomic.
func (r *SessionRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, classID string, drafts []models.ClassSessionDraft) ([]models.ClassSession, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	sessions := make([]models.ClassSession, 0, len(drafts))
	const query = `INSERT INTO class_sessions (id, class_id, scheduled_date, day_of_week, course_number, scheduled_start_time, scheduled_end_time, kind, status, created_at, updated_at)
        VALUES (:id, :class_id, :scheduled_date, :day_of_week, :course_number, :scheduled_start_time, :scheduled_end_time, :kind, :status, :created_at, :updated_at)`
	for _, draft := range drafts {
		session := models.ClassSession{
			ID:                 uuid.NewString(),
			ClassID:            classID,
			ScheduledDate:      draft.ScheduledDate,
			DayOfWeek:          draft.DayOfWeek,
			CourseNumber:       draft.CourseNumber,
			ScheduledStartTime: draft.ScheduledStartTime,
			ScheduledEndTime:   draft.ScheduledEndTime,
			Kind:               draft.Kind,
			Status:             models.SessionScheduled,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
			return nil, fmt.Errorf("insert class session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DeleteByClassWithTx removes all sessions of a class inside the caller's
// transaction. Used when regenerating a schedule.
func (r *SessionRepository) DeleteByClassWithTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_sessions WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("delete class sessions: %w", err)
	}
	return nil
}

// List returns sessions matching the filter, scoped by the policy predicate.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter, scope access.Predicate) ([]models.ClassSession, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("cs.kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
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

	// Classes join carries school_id for the policy predicate.
	base := `FROM class_sessions cs
JOIN classes c ON c.id = cs.class_id`

	query := fmt.Sprintf(`SELECT cs.id, cs.class_id, cs.scheduled_date, cs.day_of_week, cs.course_number,
        cs.scheduled_start_time, cs.scheduled_end_time, cs.kind, cs.status, cs.created_at, cs.updated_at
        %s%s ORDER BY cs.scheduled_date, cs.course_number LIMIT %d OFFSET %d`,
		base, clause, size, offset)

	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByClassAndDate returns the session of a class scheduled on a given day,
// if any. Dates are compared at day precision.
func (r *SessionRepository) FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE class_id = $1 AND scheduled_date = $2 LIMIT 1`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, classID, models.DateOnly(date)); err != nil {
		return nil, err
	}
	return &session, nil
}

// Update persists editable session fields. End time is recomputed by the
// service when the start time moves.
func (r *SessionRepository) Update(ctx context.Context, session *models.ClassSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions
        SET scheduled_date = :scheduled_date, day_of_week = :day_of_week,
            scheduled_start_time = :scheduled_start_time, scheduled_end_time = :scheduled_end_time,
            kind = :kind, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update class session: %w", err)
	}
	return nil
}

// CountByClass reports how many sessions exist for a class.
func (r *SessionRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_sessions WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count sessions for class: %w", err)
	}
	return count, nil
}

// CountAttendanceBySession reports how many attendance records reference a
// class's sessions. Regeneration is refused once any exist.
func (r *SessionRepository) CountAttendanceByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records ar
        JOIN class_sessions cs ON cs.id = ar.class_session_id
        WHERE cs.class_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count attendance for class: %w", err)
	}
	return count, nil
}

// Delete removes a single session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class session: %w", err)
	}
	return nil
}
