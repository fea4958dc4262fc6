package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryFindByClassAndDate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	date := time.Date(2026, time.February, 2, 14, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "class_id", "scheduled_date", "day_of_week", "course_number", "scheduled_start_time", "scheduled_end_time", "kind", "status", "created_at", "updated_at"}).
		AddRow("sess-1", "class-1", models.DateOnly(date), "Monday", "CS101", "08:00", "09:30", models.SessionRegular, models.SessionScheduled, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions WHERE class_id = $1 AND scheduled_date = $2 LIMIT 1")).
		WithArgs("class-1", models.DateOnly(date)).
		WillReturnRows(rows)

	session, err := repo.FindByClassAndDate(context.Background(), "class-1", date)
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.ID)
	require.Equal(t, models.SessionRegular, session.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkCreateWithTx(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	drafts := []models.ClassSessionDraft{
		{ScheduledDate: time.Date(2026, time.January, 21, 0, 0, 0, 0, time.UTC), DayOfWeek: "Wednesday", CourseNumber: "CS101", ScheduledStartTime: "08:00", ScheduledEndTime: "09:30", Kind: models.SessionRegular},
		{ScheduledDate: time.Date(2026, time.January, 23, 0, 0, 0, 0, time.UTC), DayOfWeek: "Friday", CourseNumber: "CS101", ScheduledStartTime: "08:00", ScheduledEndTime: "09:30", Kind: models.SessionRegular},
	}
	sessions, err := repo.BulkCreateWithTx(context.Background(), tx, "class-1", drafts)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "class-1", sessions[0].ClassID)
	require.Equal(t, models.SessionScheduled, sessions[0].Status)
	require.NotEmpty(t, sessions[0].ID)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryBulkCreateEmpty(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	sessions, err := repo.BulkCreateWithTx(context.Background(), tx, "class-1", nil)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestSessionRepositoryListScoped(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	scope := access.Predicate{Fragment: "cs.class_id IN (SELECT id FROM classes WHERE instructor_id = $%d)", Args: []interface{}{"user-1"}}

	rows := sqlmock.NewRows([]string{"id", "class_id", "scheduled_date", "day_of_week", "course_number", "scheduled_start_time", "scheduled_end_time", "kind", "status", "created_at", "updated_at"}).
		AddRow("sess-1", "class-1", time.Now(), "Monday", "CS101", "08:00", "09:30", models.SessionMidterm, models.SessionScheduled, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("instructor_id = $2")).
		WithArgs("class-1", "user-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions cs")).
		WithArgs("class-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{ClassID: "class-1"}, scope)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, sessions, 1)
	require.Equal(t, models.SessionMidterm, sessions[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCountAttendanceByClass(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN class_sessions cs ON cs.id = ar.class_session_id")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountAttendanceByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
