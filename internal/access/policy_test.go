package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/models"
)

func TestSuperAdminUnrestricted(t *testing.T) {
	for _, entity := range []Entity{EntityClass, EntitySession, EntityEnrollment, EntityAttendance, EntityStudent, EntitySemester} {
		pred, err := For(models.RoleSuperAdmin, Scope{}, entity)
		require.NoError(t, err)
		assert.True(t, pred.Unrestricted(), "entity %s", entity)
	}
}

func TestAdminScopedBySchool(t *testing.T) {
	pred, err := For(models.RoleAdmin, Scope{SchoolID: "school-1"}, EntityClass)
	require.NoError(t, err)
	require.False(t, pred.Unrestricted())

	frag, args := pred.Render(3)
	assert.Equal(t, "c.school_id = $3", frag)
	assert.Equal(t, []interface{}{"school-1"}, args)
}

func TestAdminWithoutSchoolDeniesAll(t *testing.T) {
	pred, err := For(models.RoleAdmin, Scope{}, EntitySession)
	require.NoError(t, err)
	assert.Equal(t, DenyAll.Fragment, pred.Fragment)
}

func TestInstructorScopedByTaughtClasses(t *testing.T) {
	pred, err := For(models.RoleInstructor, Scope{UserID: "u-9"}, EntityAttendance)
	require.NoError(t, err)

	frag, args := pred.Render(1)
	assert.Contains(t, frag, "instructor_id = $1")
	assert.Contains(t, frag, "class_assistants WHERE user_id = $2")
	assert.Equal(t, []interface{}{"u-9", "u-9"}, args)
}

func TestInstructorCatalogReadsUnscoped(t *testing.T) {
	pred, err := For(models.RoleInstructor, Scope{UserID: "u-9"}, EntityStudent)
	require.NoError(t, err)
	assert.True(t, pred.Unrestricted())
}

func TestTAScopedByAssistedClasses(t *testing.T) {
	pred, err := For(models.RoleTA, Scope{UserID: "u-4"}, EntityEnrollment)
	require.NoError(t, err)

	frag, args := pred.Render(2)
	assert.Equal(t, "e.class_id IN (SELECT class_id FROM class_assistants WHERE user_id = $2)", frag)
	assert.Equal(t, []interface{}{"u-4"}, args)
}

func TestUnknownRoleDeniesAll(t *testing.T) {
	pred, err := For(models.UserRole("guest"), Scope{UserID: "u-1"}, EntityClass)
	require.NoError(t, err)
	assert.Equal(t, DenyAll.Fragment, pred.Fragment)
}

func TestRenderRenumbersSequentially(t *testing.T) {
	pred := Predicate{Fragment: "a = $%d AND b = $%d", Args: []interface{}{"x", "y"}}
	frag, args := pred.Render(5)
	assert.Equal(t, "a = $5 AND b = $6", frag)
	assert.Len(t, args, 2)
}
