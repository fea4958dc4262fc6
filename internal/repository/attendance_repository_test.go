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

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "enrollment_id", "class_session_id", "status", "clock_in_time", "clock_out_time", "session_duration", "notes", "marked_by", "created_at", "updated_at"})
}

func TestAttendanceRepositoryFindByPair(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	in := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)
	rows := attendanceRows().
		AddRow("att-1", "enr-1", "sess-1", models.AttendancePresent, in, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE enrollment_id = $1 AND class_session_id = $2")).
		WithArgs("enr-1", "sess-1").
		WillReturnRows(rows)

	record, err := repo.FindByPair(context.Background(), "enr-1", "sess-1")
	require.NoError(t, err)
	require.Equal(t, "att-1", record.ID)
	require.NotNil(t, record.ClockInTime)
	require.Nil(t, record.ClockOutTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	in := time.Now().UTC()
	record := &models.AttendanceRecord{
		EnrollmentID:   "enr-1",
		ClassSessionID: "sess-1",
		Status:         models.AttendancePresent,
		ClockInTime:    &in,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	in := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)
	out := time.Date(2026, time.February, 2, 9, 31, 0, 0, time.UTC)
	duration := 89
	record := &models.AttendanceRecord{
		ID:              "att-1",
		EnrollmentID:    "enr-1",
		ClassSessionID:  "sess-1",
		Status:          models.AttendancePresent,
		ClockInTime:     &in,
		ClockOutTime:    &out,
		SessionDuration: &duration,
	}
	require.NoError(t, repo.Update(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListScoped(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	scope := access.Predicate{Fragment: "c.school_id = $%d", Args: []interface{}{"school-1"}}

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "class_session_id", "status", "clock_in_time", "clock_out_time", "session_duration", "notes", "marked_by", "created_at", "updated_at", "student_id", "student_name", "student_number", "scheduled_date", "class_id", "course_code"}).
		AddRow("att-1", "enr-1", "sess-1", models.AttendancePresent, nil, nil, nil, nil, nil, time.Now(), time.Now(), "stu-1", "Ada Lovelace", "S-001", time.Now(), "class-1", "CS101")
	mock.ExpectQuery(regexp.QuoteMeta("c.school_id = $2")).
		WithArgs("class-1", "school-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("class-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{ClassID: "class-1"}, scope)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "Ada Lovelace", records[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummary(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "present", "absent", "excused", "total", "total_minutes"}).
		AddRow("stu-1", "Ada Lovelace", 10, 2, 1, 13, 890).
		AddRow("stu-2", "Alan Turing", 13, 0, 0, 13, 1157)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY s.id, s.first_name, s.last_name")).
		WithArgs("class-1").
		WillReturnRows(rows)

	summaries, err := repo.Summary(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, 10, summaries[0].Present)
	require.Equal(t, 1157, summaries[1].TotalMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}
