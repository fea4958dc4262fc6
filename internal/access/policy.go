package access

import (
	"fmt"

	"github.com/classtrackhq/classtrack-api/internal/models"
)

// Entity names a row-scoped resource kind.
type Entity string

const (
	EntityClass      Entity = "class"
	EntitySession    Entity = "class_session"
	EntityEnrollment Entity = "enrollment"
	EntityAttendance Entity = "attendance_record"
	EntityStudent    Entity = "student"
	EntitySemester   Entity = "semester"
)

// Scope carries the identifiers a predicate may be keyed on.
type Scope struct {
	UserID   string
	SchoolID string
}

// Predicate is a SQL fragment plus its arguments, ANDed into list and
// load queries by the repositories. Placeholders are written as `$%d`
// verbs; Render numbers them into the host query's positional sequence.
type Predicate struct {
	Fragment string
	Args     []interface{}
}

// Unrestricted reports whether the predicate filters nothing.
func (p Predicate) Unrestricted() bool {
	return p.Fragment == ""
}

// Render materialises the fragment with placeholders numbered from start.
func (p Predicate) Render(start int) (string, []interface{}) {
	if p.Unrestricted() {
		return "", nil
	}
	indices := make([]interface{}, len(p.Args))
	for i := range p.Args {
		indices[i] = start + i
	}
	return fmt.Sprintf(p.Fragment, indices...), p.Args
}

// DenyAll is a predicate matching no rows.
var DenyAll = Predicate{Fragment: "FALSE"}

// classScopeColumn maps each class-owned entity onto the column holding
// its owning class ID, so one set of role rules covers every entity. The
// aliases must match the FROM clauses of the repository list queries:
// every scoped query joins its owning class as `c`.
var classScopeColumn = map[Entity]string{
	EntityClass:      "c.id",
	EntitySession:    "cs.class_id",
	EntityEnrollment: "e.class_id",
	EntityAttendance: "c.id",
}

var schoolScopeColumn = map[Entity]string{
	EntityClass:      "c.school_id",
	EntitySession:    "c.school_id",
	EntityEnrollment: "c.school_id",
	EntityAttendance: "c.school_id",
	EntityStudent:    "s.school_id",
	EntitySemester:   "sem.school_id",
}

// For builds the row filter predicate for a role over an entity kind.
// It is a pure function of its inputs: no session object, no database.
func For(role models.UserRole, scope Scope, entity Entity) (Predicate, error) {
	switch role {
	case models.RoleSuperAdmin:
		return Predicate{}, nil

	case models.RoleAdmin:
		column, ok := schoolScopeColumn[entity]
		if !ok {
			return DenyAll, fmt.Errorf("no school scoping rule for entity %q", entity)
		}
		if scope.SchoolID == "" {
			return DenyAll, nil
		}
		return Predicate{Fragment: column + " = $%d", Args: []interface{}{scope.SchoolID}}, nil

	case models.RoleInstructor:
		column, ok := classScopeColumn[entity]
		if !ok {
			// Instructors read catalog data (students, semesters) without
			// row filtering; scoping applies to class-owned entities only.
			return Predicate{}, nil
		}
		if scope.UserID == "" {
			return DenyAll, nil
		}
		fragment := column + " IN (SELECT id FROM classes WHERE instructor_id = $%d UNION SELECT class_id FROM class_assistants WHERE user_id = $%d)"
		return Predicate{Fragment: fragment, Args: []interface{}{scope.UserID, scope.UserID}}, nil

	case models.RoleTA:
		column, ok := classScopeColumn[entity]
		if !ok {
			return Predicate{}, nil
		}
		if scope.UserID == "" {
			return DenyAll, nil
		}
		fragment := column + " IN (SELECT class_id FROM class_assistants WHERE user_id = $%d)"
		return Predicate{Fragment: fragment, Args: []interface{}{scope.UserID}}, nil

	default:
		return DenyAll, nil
	}
}
