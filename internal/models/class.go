package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Schedule is the weekly recurrence pattern for a class, stored as JSONB.
// Days uses single-letter codes: U=Sun M=Mon T=Tue W=Wed R=Thu F=Fri S=Sat.
type Schedule struct {
	Days      []string `json:"days" validate:"required,min=1,dive,oneof=U M T W R F S"`
	StartTime string   `json:"startTime" validate:"required"`
	EndTime   string   `json:"endTime" validate:"required"`
}

// Value implements driver.Valuer.
func (s Schedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Schedule) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = Schedule{}
		return nil
	default:
		return fmt.Errorf("unsupported schedule source type %T", src)
	}
}

// IsZero reports whether the schedule carries no recurrence data.
func (s Schedule) IsZero() bool {
	return len(s.Days) == 0 && s.StartTime == "" && s.EndTime == ""
}

var dayCodeToWeekday = map[string]time.Weekday{
	"U": time.Sunday,
	"M": time.Monday,
	"T": time.Tuesday,
	"W": time.Wednesday,
	"R": time.Thursday,
	"F": time.Friday,
	"S": time.Saturday,
}

// Weekdays maps the schedule day codes onto time.Weekday values.
// Unknown codes are dropped rather than rejected; the API validator keeps
// them out of stored schedules, this keeps the mapping total regardless.
func (s Schedule) Weekdays() map[time.Weekday]bool {
	result := make(map[time.Weekday]bool, len(s.Days))
	for _, code := range s.Days {
		if wd, ok := dayCodeToWeekday[code]; ok {
			result[wd] = true
		}
	}
	return result
}

// Class represents one offered section of a course in a semester.
type Class struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	Section      string    `db:"section" json:"section"`
	Schedule     Schedule  `db:"schedule" json:"schedule"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with joined course and semester context.
type ClassDetail struct {
	Class
	CourseCode   string  `db:"course_code" json:"course_code"`
	CourseTitle  string  `db:"course_title" json:"course_title"`
	SemesterName string  `db:"semester_name" json:"semester_name"`
	Instructor   *string `db:"instructor_name" json:"instructor_name,omitempty"`
	SessionCount int     `db:"session_count" json:"session_count"`
}

// ClassFilter scopes class listing.
type ClassFilter struct {
	SemesterID string
	CourseID   string
	SchoolID   string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
