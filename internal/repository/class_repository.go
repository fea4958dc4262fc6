package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
)

// ClassRepository handles persistence of class sections.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// BeginTxx starts a transaction; generation inserts run inside one.
func (r *ClassRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns classes with joined context, scoped by the policy predicate.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter, scope access.Predicate) ([]models.ClassDetail, int, error) {
	base := `FROM classes c
JOIN courses co ON co.id = c.course_id
JOIN semesters sem ON sem.id = c.semester_id
LEFT JOIN users u ON u.id = c.instructor_id`
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("c.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(co.code ILIKE $%d OR co.title ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.course_id, c.semester_id, c.school_id, c.instructor_id, c.section, c.schedule,
        c.created_at, c.updated_at,
        co.code AS course_code, co.title AS course_title, sem.name AS semester_name, u.full_name AS instructor_name,
        (SELECT COUNT(*) FROM class_sessions cs WHERE cs.class_id = c.id) AS session_count
        %s ORDER BY co.code, c.section LIMIT %d OFFSET %d`, base+clause, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, course_id, semester_id, school_id, instructor_id, section, schedule, created_at, updated_at
        FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class with joined course and semester context.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.course_id, c.semester_id, c.school_id, c.instructor_id, c.section, c.schedule,
        c.created_at, c.updated_at,
        co.code AS course_code, co.title AS course_title, sem.name AS semester_name, u.full_name AS instructor_name,
        (SELECT COUNT(*) FROM class_sessions cs WHERE cs.class_id = c.id) AS session_count
        FROM classes c
        JOIN courses co ON co.id = c.course_id
        JOIN semesters sem ON sem.id = c.semester_id
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE c.id = $1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindCourse returns the course a class is a section of.
func (r *ClassRepository) FindCourse(ctx context.Context, courseID string) (*models.Course, error) {
	const query = `SELECT id, school_id, code, title, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseID); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create persists a new class section.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, course_id, semester_id, school_id, instructor_id, section, schedule, created_at, updated_at)
        VALUES (:id, :course_id, :semester_id, :school_id, :instructor_id, :section, :schedule, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateSchedule replaces a class's weekly schedule.
func (r *ClassRepository) UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error {
	const query = `UPDATE classes SET schedule = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, schedule); err != nil {
		return fmt.Errorf("update class schedule: %w", err)
	}
	return nil
}

// Delete removes a class; sessions and attendance cascade at the DB level.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// ListAssistants returns user IDs assisting a class.
func (r *ClassRepository) ListAssistants(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT user_id FROM class_assistants WHERE class_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list class assistants: %w", err)
	}
	return ids, nil
}

// AddAssistant links a TA to a class.
func (r *ClassRepository) AddAssistant(ctx context.Context, classID, userID string) error {
	const query = `INSERT INTO class_assistants (class_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, classID, userID); err != nil {
		return fmt.Errorf("add class assistant: %w", err)
	}
	return nil
}
