package models

import "time"

// Semester models an academic term with optional exam windows.
type Semester struct {
	ID               string     `db:"id" json:"id"`
	SchoolID         string     `db:"school_id" json:"school_id"`
	Name             string     `db:"name" json:"name"`
	StartDate        time.Time  `db:"start_date" json:"start_date"`
	EndDate          time.Time  `db:"end_date" json:"end_date"`
	MidtermStartDate *time.Time `db:"midterm_start_date" json:"midterm_start_date,omitempty"`
	MidtermEndDate   *time.Time `db:"midterm_end_date" json:"midterm_end_date,omitempty"`
	FinalStartDate   *time.Time `db:"final_start_date" json:"final_start_date,omitempty"`
	FinalEndDate     *time.Time `db:"final_end_date" json:"final_end_date,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// MidtermRange returns the midterm window when both bounds are set.
func (s *Semester) MidtermRange() *DateRange {
	if s.MidtermStartDate == nil || s.MidtermEndDate == nil {
		return nil
	}
	return &DateRange{Start: *s.MidtermStartDate, End: *s.MidtermEndDate}
}

// FinalRange returns the final-exam window when both bounds are set.
func (s *Semester) FinalRange() *DateRange {
	if s.FinalStartDate == nil || s.FinalEndDate == nil {
		return nil
	}
	return &DateRange{Start: *s.FinalStartDate, End: *s.FinalEndDate}
}

// DateRange is a closed calendar interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date (at day precision) falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(r.Start)) && !day.After(DateOnly(r.End))
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Holiday is a named non-class date owned by a semester.
type Holiday struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Name       string    `db:"name" json:"name"`
	Date       time.Time `db:"date" json:"date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// HolidaySet indexes holiday dates for exact-date lookup.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set keyed by ISO date.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[DateOnly(h.Date).Format("2006-01-02")] = struct{}{}
	}
	return set
}

// Contains reports whether the given date is a holiday.
func (s HolidaySet) Contains(d time.Time) bool {
	_, ok := s[DateOnly(d).Format("2006-01-02")]
	return ok
}

// SemesterFilter scopes semester listing.
type SemesterFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
