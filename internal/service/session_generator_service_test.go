package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func springSemester() *models.Semester {
	return &models.Semester{
		ID:        "sem-1",
		Name:      "Spring 2026",
		StartDate: date(2026, time.January, 19),
		EndDate:   date(2026, time.May, 15),
	}
}

func mwfSchedule() models.Schedule {
	return models.Schedule{Days: []string{"M", "W", "F"}, StartTime: "08:00", EndTime: "09:30"}
}

func TestGenerateSkipsHolidayOnFirstDay(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	holidays := models.NewHolidaySet([]models.Holiday{
		{ID: "h-1", SemesterID: "sem-1", Name: "MLK Day", Date: date(2026, time.January, 19)},
	})

	drafts, err := svc.Generate("CS101", mwfSchedule(), springSemester(), holidays)
	require.NoError(t, err)
	require.NotEmpty(t, drafts)

	// Jan 19 is a Monday and a holiday, so the first session lands Wednesday.
	assert.Equal(t, date(2026, time.January, 21), drafts[0].ScheduledDate)
	assert.Equal(t, "Wednesday", drafts[0].DayOfWeek)
	assert.Equal(t, "CS101", drafts[0].CourseNumber)
	assert.Equal(t, "08:00", drafts[0].ScheduledStartTime)
	assert.Equal(t, "09:30", drafts[0].ScheduledEndTime)

	for _, d := range drafts {
		assert.NotEqual(t, date(2026, time.January, 19), d.ScheduledDate)
		wd := d.ScheduledDate.Weekday()
		assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, wd)
	}
}

func TestGenerateMarksLatestMidtermSession(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	semester := springSemester()
	semester.MidtermStartDate = datePtr(2026, time.March, 2)
	semester.MidtermEndDate = datePtr(2026, time.March, 6)

	drafts, err := svc.Generate("CS101", mwfSchedule(), semester, nil)
	require.NoError(t, err)

	var midterms []models.ClassSessionDraft
	for _, d := range drafts {
		if d.Kind == models.SessionMidterm {
			midterms = append(midterms, d)
		}
	}
	// Mon/Wed/Fri inside Mar 2-6 are the 2nd, 4th and 6th; only the latest
	// one carries the midterm tag.
	require.Len(t, midterms, 1)
	assert.Equal(t, date(2026, time.March, 6), midterms[0].ScheduledDate)
	assert.Equal(t, "Friday", midterms[0].DayOfWeek)
}

func TestGenerateMarksLatestFinalSession(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	semester := springSemester()
	semester.FinalStartDate = datePtr(2026, time.May, 11)
	semester.FinalEndDate = datePtr(2026, time.May, 15)

	drafts, err := svc.Generate("CS101", mwfSchedule(), semester, nil)
	require.NoError(t, err)

	var finals []models.ClassSessionDraft
	for _, d := range drafts {
		if d.Kind == models.SessionFinal {
			finals = append(finals, d)
		}
	}
	require.Len(t, finals, 1)
	assert.Equal(t, date(2026, time.May, 15), finals[0].ScheduledDate)
}

func TestGenerateFinalWinsOnOverlappingWindows(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	semester := springSemester()
	semester.MidtermStartDate = datePtr(2026, time.May, 11)
	semester.MidtermEndDate = datePtr(2026, time.May, 15)
	semester.FinalStartDate = datePtr(2026, time.May, 11)
	semester.FinalEndDate = datePtr(2026, time.May, 15)

	drafts, err := svc.Generate("CS101", mwfSchedule(), semester, nil)
	require.NoError(t, err)

	last := drafts[len(drafts)-1]
	assert.Equal(t, date(2026, time.May, 15), last.ScheduledDate)
	assert.Equal(t, models.SessionFinal, last.Kind)

	for _, d := range drafts {
		assert.NotEqual(t, models.SessionMidterm, d.Kind)
	}
}

func TestGenerateEmptyWhenDaysNeverOccur(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	semester := &models.Semester{
		ID: "sem-2",
		// Tue Jan 20 through Thu Jan 22; no Saturday inside.
		StartDate: date(2026, time.January, 20),
		EndDate:   date(2026, time.January, 22),
	}
	schedule := models.Schedule{Days: []string{"S"}, StartTime: "10:00", EndTime: "11:00"}

	drafts, err := svc.Generate("CS101", schedule, semester, nil)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestGenerateMissingScheduleFails(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)

	_, err := svc.Generate("CS101", models.Schedule{}, springSemester(), nil)
	assert.ErrorIs(t, err, appErrors.ErrMissingSchedule)

	_, err = svc.Generate("CS101", mwfSchedule(), nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrMissingSchedule)
}

func TestGenerateInclusiveBounds(t *testing.T) {
	svc := NewSessionGeneratorService(nil, nil, nil, nil, nil, nil)
	semester := &models.Semester{
		ID:        "sem-3",
		StartDate: date(2026, time.January, 19), // Monday
		EndDate:   date(2026, time.January, 23), // Friday
	}

	drafts, err := svc.Generate("CS101", mwfSchedule(), semester, nil)
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.Equal(t, date(2026, time.January, 19), drafts[0].ScheduledDate)
	assert.Equal(t, date(2026, time.January, 23), drafts[2].ScheduledDate)
}

func TestRecomputeEndTimePreservesDuration(t *testing.T) {
	end, err := RecomputeEndTime("08:00", "09:30", "10:15")
	require.NoError(t, err)
	assert.Equal(t, "11:45", end)

	_, err = RecomputeEndTime("8am", "09:30", "10:15")
	assert.Error(t, err)
}
