package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the per-(enrollment, session) attendance outcome.
// At most one record exists per pair; the database enforces uniqueness.
// SessionDuration is set iff both clock times are set and equals the
// elapsed time rounded to whole minutes.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	EnrollmentID    string           `db:"enrollment_id" json:"enrollment_id"`
	ClassSessionID  string           `db:"class_session_id" json:"class_session_id"`
	Status          AttendanceStatus `db:"status" json:"status"`
	ClockInTime     *time.Time       `db:"clock_in_time" json:"clock_in_time,omitempty"`
	ClockOutTime    *time.Time       `db:"clock_out_time" json:"clock_out_time,omitempty"`
	SessionDuration *int             `db:"session_duration" json:"session_duration,omitempty"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	MarkedBy        *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail extends a record with roster context for listings.
type AttendanceDetail struct {
	AttendanceRecord
	StudentID     string    `db:"student_id" json:"student_id"`
	StudentName   string    `db:"student_name" json:"student_name"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	ScheduledDate time.Time `db:"scheduled_date" json:"scheduled_date"`
	ClassID       string    `db:"class_id" json:"class_id"`
	CourseCode    string    `db:"course_code" json:"course_code"`
}

// AttendanceFilter scopes attendance listing.
type AttendanceFilter struct {
	ClassID        string
	ClassSessionID string
	EnrollmentID   string
	Status         *AttendanceStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
}

// AttendanceSummary aggregates per-student counts.
type AttendanceSummary struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	Present      int     `db:"present" json:"present"`
	Absent       int     `db:"absent" json:"absent"`
	Excused      int     `db:"excused" json:"excused"`
	Total        int     `db:"total" json:"total"`
	TotalMinutes int     `db:"total_minutes" json:"total_minutes"`
	Percent      float64 `json:"percent"`
}

// ScanAction describes what a reconciliation decided to do.
type ScanAction string

const (
	ScanActionClockIn   ScanAction = "CLOCK_IN"
	ScanActionClockOut  ScanAction = "CLOCK_OUT"
	ScanActionCompleted ScanAction = "ALREADY_COMPLETED"
	ScanActionNoSession ScanAction = "NO_SESSION_TODAY"
	ScanActionFailed    ScanAction = "FAILED"
)

// ScanOutcome reports the result of reconciling one enrollment/session pair.
type ScanOutcome struct {
	ClassID        string            `json:"class_id"`
	CourseCode     string            `json:"course_code"`
	EnrollmentID   string            `json:"enrollment_id,omitempty"`
	ClassSessionID string            `json:"class_session_id,omitempty"`
	Action         ScanAction        `json:"action"`
	Message        string            `json:"message"`
	Record         *AttendanceRecord `json:"record,omitempty"`
}

// ScanResult is the full response for one scan event.
type ScanResult struct {
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	ScannedAt   time.Time     `json:"scanned_at"`
	Outcomes    []ScanOutcome `json:"outcomes"`
}
