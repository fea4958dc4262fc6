package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
)

// The access package keys its predicates on the table aliases of the
// repository list queries. These tests run each scoped listing through
// sqlmock with a restrictive predicate and match the executed SQL against
// both the alias definition and the predicate that references it, so a
// renamed join breaks here instead of at runtime.

func newScopeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func mustPredicate(t *testing.T, role models.UserRole, scope access.Scope, entity access.Entity) access.Predicate {
	t.Helper()
	predicate, err := access.For(role, scope, entity)
	require.NoError(t, err)
	require.False(t, predicate.Unrestricted())
	return predicate
}

func TestAttendanceListRendersInstructorScopeAgainstClassesJoin(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	predicate := mustPredicate(t, models.RoleInstructor, access.Scope{UserID: "user-1"}, access.EntityAttendance)

	mock.ExpectQuery(`JOIN classes c ON c\.id = cs\.class_id[\s\S]*c\.id IN \(SELECT id FROM classes WHERE instructor_id = \$1 UNION SELECT class_id FROM class_assistants WHERE user_id = \$2\)`).
		WithArgs("user-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendance_records ar[\s\S]*JOIN classes c ON c\.id = cs\.class_id[\s\S]*c\.id IN`).
		WithArgs("user-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.AttendanceFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceListRendersAdminScopeAgainstClassesJoin(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	predicate := mustPredicate(t, models.RoleAdmin, access.Scope{SchoolID: "school-1"}, access.EntityAttendance)

	mock.ExpectQuery(`JOIN classes c ON c\.id = cs\.class_id[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\)[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.AttendanceFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionListRendersAdminScopeAgainstClassesJoin(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	predicate := mustPredicate(t, models.RoleAdmin, access.Scope{SchoolID: "school-1"}, access.EntitySession)

	mock.ExpectQuery(`FROM class_sessions cs[\s\S]*JOIN classes c ON c\.id = cs\.class_id[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM class_sessions cs[\s\S]*JOIN classes c ON c\.id = cs\.class_id[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.SessionFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionListRendersInstructorScope(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	predicate := mustPredicate(t, models.RoleInstructor, access.Scope{UserID: "user-1"}, access.EntitySession)

	mock.ExpectQuery(`FROM class_sessions cs[\s\S]*cs\.class_id IN \(SELECT id FROM classes WHERE instructor_id = \$1`).
		WithArgs("user-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\)[\s\S]*cs\.class_id IN`).
		WithArgs("user-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.SessionFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListRendersAdminScopeAgainstClassesJoin(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	predicate := mustPredicate(t, models.RoleAdmin, access.Scope{SchoolID: "school-1"}, access.EntityEnrollment)

	mock.ExpectQuery(`FROM enrollments e[\s\S]*JOIN classes c ON c\.id = e\.class_id[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\)[\s\S]*c\.school_id = \$1`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.EnrollmentFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListRendersTAScope(t *testing.T) {
	db, mock, cleanup := newScopeMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	predicate := mustPredicate(t, models.RoleTA, access.Scope{UserID: "user-2"}, access.EntityEnrollment)

	mock.ExpectQuery(`FROM enrollments e[\s\S]*e\.class_id IN \(SELECT class_id FROM class_assistants WHERE user_id = \$1\)`).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\)[\s\S]*e\.class_id IN`).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.EnrollmentFilter{}, predicate)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
