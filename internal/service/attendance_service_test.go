package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type stubStudentResolver struct {
	student *models.Student
	err     error
}

func (s *stubStudentResolver) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	return s.student, s.err
}

type stubEnrollmentReader struct {
	enrollments []models.EnrollmentDetail
	err         error
}

func (s *stubEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentReader) ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return s.enrollments, s.err
}

type stubSessionReader struct {
	byClass map[string]*models.ClassSession
}

func (s *stubSessionReader) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	return nil, sql.ErrNoRows
}

func (s *stubSessionReader) FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassSession, error) {
	if session, ok := s.byClass[classID]; ok {
		return session, nil
	}
	return nil, sql.ErrNoRows
}

type stubRecordStore struct {
	byPair           map[string]*models.AttendanceRecord
	byID             map[string]*models.AttendanceRecord
	classOfEnrollment map[string]string
	classOfSession    map[string]string
	created          []*models.AttendanceRecord
	updated          []*models.AttendanceRecord
}

func pairKey(enrollmentID, sessionID string) string { return enrollmentID + "/" + sessionID }

func (s *stubRecordStore) FindByPair(ctx context.Context, enrollmentID, classSessionID string) (*models.AttendanceRecord, error) {
	if record, ok := s.byPair[pairKey(enrollmentID, classSessionID)]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRecordStore) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	if record, ok := s.byID[id]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRecordStore) Create(ctx context.Context, record *models.AttendanceRecord) error {
	s.created = append(s.created, record)
	return nil
}

func (s *stubRecordStore) Update(ctx context.Context, record *models.AttendanceRecord) error {
	s.updated = append(s.updated, record)
	return nil
}

func (s *stubRecordStore) List(ctx context.Context, filter models.AttendanceFilter, scope access.Predicate) ([]models.AttendanceDetail, int, error) {
	return nil, 0, nil
}

func (s *stubRecordStore) Summary(ctx context.Context, classID string) ([]models.AttendanceSummary, error) {
	return nil, nil
}

func (s *stubRecordStore) ClassOfEnrollment(ctx context.Context, enrollmentID string) (string, error) {
	if classID, ok := s.classOfEnrollment[enrollmentID]; ok {
		return classID, nil
	}
	return "", sql.ErrNoRows
}

func (s *stubRecordStore) ClassOfSession(ctx context.Context, classSessionID string) (string, error) {
	if classID, ok := s.classOfSession[classSessionID]; ok {
		return classID, nil
	}
	return "", sql.ErrNoRows
}

func TestDurationMinutesRoundsToWholeMinutes(t *testing.T) {
	in := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)
	out := time.Date(2026, time.February, 2, 9, 31, 0, 0, time.UTC)

	minutes := DurationMinutes(&in, &out)
	require.NotNil(t, minutes)
	assert.Equal(t, 89, *minutes)

	assert.Nil(t, DurationMinutes(&in, nil))
	assert.Nil(t, DurationMinutes(nil, &out))

	// 30 seconds rounds up.
	out2 := in.Add(5*time.Minute + 30*time.Second)
	minutes = DurationMinutes(&in, &out2)
	require.NotNil(t, minutes)
	assert.Equal(t, 6, *minutes)
}

func TestReconcileScanSequence(t *testing.T) {
	now := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)

	// First scan clocks in.
	record, action := Reconcile(nil, "enr-1", "sess-1", now)
	assert.Equal(t, models.ScanActionClockIn, action)
	assert.Equal(t, models.AttendancePresent, record.Status)
	require.NotNil(t, record.ClockInTime)
	assert.True(t, record.ClockInTime.Equal(now))
	assert.Nil(t, record.ClockOutTime)
	assert.Nil(t, record.SessionDuration)

	// Second scan clocks out and derives the duration.
	later := now.Add(89 * time.Minute)
	record, action = Reconcile(record, "enr-1", "sess-1", later)
	assert.Equal(t, models.ScanActionClockOut, action)
	require.NotNil(t, record.ClockOutTime)
	require.NotNil(t, record.SessionDuration)
	assert.Equal(t, 89, *record.SessionDuration)

	// Third scan is a no-op.
	final, action := Reconcile(record, "enr-1", "sess-1", later.Add(time.Minute))
	assert.Equal(t, models.ScanActionCompleted, action)
	assert.Same(t, record, final)
	assert.Equal(t, 89, *final.SessionDuration)
}

func TestProcessScanReconcilesEachEnrollmentIndependently(t *testing.T) {
	now := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)
	students := &stubStudentResolver{student: &models.Student{ID: "stu-1", FirstName: "Ada", LastName: "Lovelace", Active: true}}
	enrollments := &stubEnrollmentReader{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", ClassID: "class-1"}, CourseCode: "CS101"},
		{Enrollment: models.Enrollment{ID: "enr-2", ClassID: "class-2"}, CourseCode: "MA201"},
	}}
	sessions := &stubSessionReader{byClass: map[string]*models.ClassSession{
		"class-1": {ID: "sess-1", ClassID: "class-1"},
	}}
	records := &stubRecordStore{byPair: map[string]*models.AttendanceRecord{}}

	svc := NewAttendanceService(students, enrollments, sessions, records, nil, nil, nil, AttendanceConfig{})
	result, err := svc.ProcessScan(context.Background(), "qr-abc", now)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", result.StudentName)
	require.Len(t, result.Outcomes, 2)

	assert.Equal(t, models.ScanActionClockIn, result.Outcomes[0].Action)
	assert.Equal(t, "sess-1", result.Outcomes[0].ClassSessionID)
	require.Len(t, records.created, 1)
	assert.Equal(t, "enr-1", records.created[0].EnrollmentID)

	// The class without a session today is reported, not failed.
	assert.Equal(t, models.ScanActionNoSession, result.Outcomes[1].Action)
	assert.Equal(t, "no scheduled session today", result.Outcomes[1].Message)
}

func TestProcessScanClocksOutOpenRecord(t *testing.T) {
	in := time.Date(2026, time.February, 2, 8, 2, 0, 0, time.UTC)
	now := time.Date(2026, time.February, 2, 9, 31, 0, 0, time.UTC)
	students := &stubStudentResolver{student: &models.Student{ID: "stu-1", FirstName: "Ada", Active: true}}
	enrollments := &stubEnrollmentReader{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", ClassID: "class-1"}, CourseCode: "CS101"},
	}}
	sessions := &stubSessionReader{byClass: map[string]*models.ClassSession{
		"class-1": {ID: "sess-1", ClassID: "class-1"},
	}}
	records := &stubRecordStore{byPair: map[string]*models.AttendanceRecord{
		pairKey("enr-1", "sess-1"): {ID: "att-1", EnrollmentID: "enr-1", ClassSessionID: "sess-1", Status: models.AttendancePresent, ClockInTime: &in},
	}}

	svc := NewAttendanceService(students, enrollments, sessions, records, nil, nil, nil, AttendanceConfig{})
	result, err := svc.ProcessScan(context.Background(), "qr-abc", now)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.ScanActionClockOut, result.Outcomes[0].Action)
	require.Len(t, records.updated, 1)
	require.NotNil(t, records.updated[0].SessionDuration)
	assert.Equal(t, 89, *records.updated[0].SessionDuration)
}

func TestProcessScanUnknownStudent(t *testing.T) {
	students := &stubStudentResolver{err: sql.ErrNoRows}
	svc := NewAttendanceService(students, &stubEnrollmentReader{}, &stubSessionReader{}, &stubRecordStore{}, nil, nil, nil, AttendanceConfig{})

	_, err := svc.ProcessScan(context.Background(), "unknown", time.Now())
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestCreateRejectsCrossClassPair(t *testing.T) {
	records := &stubRecordStore{
		classOfEnrollment: map[string]string{"enr-1": "class-1"},
		classOfSession:    map[string]string{"sess-9": "class-9"},
	}
	svc := NewAttendanceService(&stubStudentResolver{}, &stubEnrollmentReader{}, &stubSessionReader{}, records, nil, nil, nil, AttendanceConfig{})

	_, err := svc.Create(context.Background(), CreateAttendanceInput{
		EnrollmentID:   "enr-1",
		ClassSessionID: "sess-9",
		Status:         models.AttendanceAbsent,
	})
	assert.ErrorIs(t, err, appErrors.ErrClassMismatch)
	assert.Empty(t, records.created)
}

func TestUpdateRecomputesDuration(t *testing.T) {
	in := time.Date(2026, time.February, 2, 8, 0, 0, 0, time.UTC)
	out := time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)
	records := &stubRecordStore{
		byID: map[string]*models.AttendanceRecord{
			"att-1": {ID: "att-1", EnrollmentID: "enr-1", Status: models.AttendancePresent, ClockInTime: &in, ClockOutTime: &out},
		},
		classOfEnrollment: map[string]string{"enr-1": "class-1"},
	}
	svc := NewAttendanceService(&stubStudentResolver{}, &stubEnrollmentReader{}, &stubSessionReader{}, records, nil, nil, nil, AttendanceConfig{})

	newOut := in.Add(95 * time.Minute)
	record, err := svc.Update(context.Background(), "att-1", UpdateAttendanceInput{ClockOutTime: &newOut, MarkedBy: "user-1"})
	require.NoError(t, err)
	require.NotNil(t, record.SessionDuration)
	assert.Equal(t, 95, *record.SessionDuration)
	require.NotNil(t, record.MarkedBy)
	assert.Equal(t, "user-1", *record.MarkedBy)

	// Clock-out before clock-in is rejected.
	bad := in.Add(-time.Minute)
	_, err = svc.Update(context.Background(), "att-1", UpdateAttendanceInput{ClockOutTime: &bad})
	assert.Error(t, err)
}

func TestUpdateClearsClockTimeAndNullsDuration(t *testing.T) {
	in := time.Date(2026, time.February, 2, 8, 0, 0, 0, time.UTC)
	out := time.Date(2026, time.February, 2, 9, 30, 0, 0, time.UTC)
	duration := 90
	records := &stubRecordStore{
		byID: map[string]*models.AttendanceRecord{
			"att-1": {ID: "att-1", EnrollmentID: "enr-1", Status: models.AttendancePresent, ClockInTime: &in, ClockOutTime: &out, SessionDuration: &duration},
		},
		classOfEnrollment: map[string]string{"enr-1": "class-1"},
	}
	svc := NewAttendanceService(&stubStudentResolver{}, &stubEnrollmentReader{}, &stubSessionReader{}, records, nil, nil, nil, AttendanceConfig{})

	record, err := svc.Update(context.Background(), "att-1", UpdateAttendanceInput{ClearClockOut: true})
	require.NoError(t, err)
	assert.Nil(t, record.ClockOutTime)
	assert.Nil(t, record.SessionDuration)
	require.NotNil(t, record.ClockInTime)

	record, err = svc.Update(context.Background(), "att-1", UpdateAttendanceInput{ClearClockIn: true})
	require.NoError(t, err)
	assert.Nil(t, record.ClockInTime)
	assert.Nil(t, record.SessionDuration)
}
