package models

import "time"

// SessionKind is the single authoritative tag for a class session.
// Boolean midterm/final views are derived at the edge, never stored.
type SessionKind string

const (
	SessionRegular SessionKind = "regular"
	SessionMidterm SessionKind = "midterm"
	SessionFinal   SessionKind = "final"
	SessionLab     SessionKind = "lab"
)

// Valid reports whether the kind is a supported value.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionRegular, SessionMidterm, SessionFinal, SessionLab:
		return true
	default:
		return false
	}
}

// SessionStatus tracks the lifecycle of a concrete occurrence.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// ClassSession is one concrete calendar occurrence of a class.
type ClassSession struct {
	ID                 string        `db:"id" json:"id"`
	ClassID            string        `db:"class_id" json:"class_id"`
	ScheduledDate      time.Time     `db:"scheduled_date" json:"scheduled_date"`
	DayOfWeek          string        `db:"day_of_week" json:"day_of_week"`
	CourseNumber       string        `db:"course_number" json:"course_number"`
	ScheduledStartTime string        `db:"scheduled_start_time" json:"scheduled_start_time"`
	ScheduledEndTime   string        `db:"scheduled_end_time" json:"scheduled_end_time"`
	Kind               SessionKind   `db:"kind" json:"kind"`
	Status             SessionStatus `db:"status" json:"status"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// IsMidterm is a derived view over Kind.
func (s *ClassSession) IsMidterm() bool { return s.Kind == SessionMidterm }

// IsFinal is a derived view over Kind.
func (s *ClassSession) IsFinal() bool { return s.Kind == SessionFinal }

// ClassSessionView is the JSON projection exposing the derived booleans.
type ClassSessionView struct {
	ClassSession
	IsMidterm bool `json:"is_midterm"`
	IsFinal   bool `json:"is_final"`
}

// View builds the projection with derived flags.
func (s ClassSession) View() ClassSessionView {
	return ClassSessionView{
		ClassSession: s,
		IsMidterm:    s.Kind == SessionMidterm,
		IsFinal:      s.Kind == SessionFinal,
	}
}

// ClassSessionDraft is a generator output row before persistence.
type ClassSessionDraft struct {
	ScheduledDate      time.Time   `json:"scheduled_date"`
	DayOfWeek          string      `json:"day_of_week"`
	CourseNumber       string      `json:"course_number"`
	ScheduledStartTime string      `json:"scheduled_start_time"`
	ScheduledEndTime   string      `json:"scheduled_end_time"`
	Kind               SessionKind `json:"kind"`
}

// SessionFilter scopes session listing.
type SessionFilter struct {
	ClassID   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Kind      SessionKind
	Page      int
	PageSize  int
	SortOrder string
}
