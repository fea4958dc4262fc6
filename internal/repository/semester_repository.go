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

// SemesterRepository handles persistence of semesters and their holidays.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs the repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

const semesterColumns = `sem.id, sem.school_id, sem.name, sem.start_date, sem.end_date,
        sem.midterm_start_date, sem.midterm_end_date, sem.final_start_date, sem.final_end_date,
        sem.created_at, sem.updated_at`

// List returns semesters matching the filter.
func (r *SemesterRepository) List(ctx context.Context, filter models.SemesterFilter, scope access.Predicate) ([]models.Semester, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("sem.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("sem.name ILIKE $%d", len(args)+1))
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

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s FROM semesters sem%s ORDER BY sem.start_date %s LIMIT %d OFFSET %d`,
		semesterColumns, clause, order, size, offset)

	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM semesters sem%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}
	return semesters, total, nil
}

// FindByID returns a semester by its ID.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters sem WHERE sem.id = $1`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// Create persists a new semester.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	semester.CreatedAt = now
	semester.UpdatedAt = now
	const query = `INSERT INTO semesters (id, school_id, name, start_date, end_date,
        midterm_start_date, midterm_end_date, final_start_date, final_end_date, created_at, updated_at)
        VALUES (:id, :school_id, :name, :start_date, :end_date,
        :midterm_start_date, :midterm_end_date, :final_start_date, :final_end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// Update persists mutable semester fields.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET name = :name, start_date = :start_date, end_date = :end_date,
        midterm_start_date = :midterm_start_date, midterm_end_date = :midterm_end_date,
        final_start_date = :final_start_date, final_end_date = :final_end_date, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// Delete removes a semester. Classes referencing it cascade at the DB level.
func (r *SemesterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM semesters WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	return nil
}

// ListHolidays returns the holidays of a semester ordered by date.
func (r *SemesterRepository) ListHolidays(ctx context.Context, semesterID string) ([]models.Holiday, error) {
	const query = `SELECT id, semester_id, name, date, created_at FROM holidays WHERE semester_id = $1 ORDER BY date`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, semesterID); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// CreateHoliday adds a holiday to a semester.
func (r *SemesterRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	holiday.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO holidays (id, semester_id, name, date, created_at)
        VALUES (:id, :semester_id, :name, :date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday.
func (r *SemesterRepository) DeleteHoliday(ctx context.Context, id string) error {
	const query = `DELETE FROM holidays WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}
