package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	"github.com/classtrackhq/classtrack-api/internal/service"
	"github.com/classtrackhq/classtrack-api/pkg/response"
)

type fakeStudentResolver struct {
	students map[string]*models.Student
}

func (f *fakeStudentResolver) FindByCode(_ context.Context, code string) (*models.Student, error) {
	student, ok := f.students[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

type fakeEnrollmentReader struct {
	active []models.EnrollmentDetail
}

func (f *fakeEnrollmentReader) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentReader) ListActiveByStudent(_ context.Context, _ string) ([]models.EnrollmentDetail, error) {
	return f.active, nil
}

type fakeSessionReader struct {
	byClass map[string]*models.ClassSession
}

func (f *fakeSessionReader) FindByID(_ context.Context, _ string) (*models.ClassSession, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeSessionReader) FindByClassAndDate(_ context.Context, classID string, _ time.Time) (*models.ClassSession, error) {
	session, ok := f.byClass[classID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return session, nil
}

type fakeRecordStore struct {
	created []*models.AttendanceRecord
}

func (f *fakeRecordStore) FindByPair(_ context.Context, _, _ string) (*models.AttendanceRecord, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) FindByID(_ context.Context, _ string) (*models.AttendanceRecord, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) Create(_ context.Context, record *models.AttendanceRecord) error {
	record.ID = "rec-1"
	f.created = append(f.created, record)
	return nil
}

func (f *fakeRecordStore) Update(_ context.Context, _ *models.AttendanceRecord) error {
	return nil
}

func (f *fakeRecordStore) List(_ context.Context, _ models.AttendanceFilter, _ access.Predicate) ([]models.AttendanceDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeRecordStore) Summary(_ context.Context, _ string) ([]models.AttendanceSummary, error) {
	return nil, nil
}

func (f *fakeRecordStore) ClassOfEnrollment(_ context.Context, _ string) (string, error) {
	return "", sql.ErrNoRows
}

func (f *fakeRecordStore) ClassOfSession(_ context.Context, _ string) (string, error) {
	return "", sql.ErrNoRows
}

func newScanTestHandler(t *testing.T) (*AttendanceHandler, *fakeRecordStore) {
	t.Helper()
	students := &fakeStudentResolver{students: map[string]*models.Student{
		"QR-001": {ID: "st-1", FirstName: "Ana", LastName: "Silva", Active: true},
	}}
	enrollments := &fakeEnrollmentReader{active: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", StudentID: "st-1", ClassID: "class-1"}, CourseCode: "CS-201"},
	}}
	sessions := &fakeSessionReader{byClass: map[string]*models.ClassSession{
		"class-1": {ID: "sess-1", ClassID: "class-1"},
	}}
	records := &fakeRecordStore{}

	svc := service.NewAttendanceService(students, enrollments, sessions, records, nil, nil, nil, service.AttendanceConfig{})
	return NewAttendanceHandler(svc, service.NewMetricsService()), records
}

func performScan(t *testing.T, h *AttendanceHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/scan", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Scan(c)
	return rec
}

func TestAttendanceHandlerScanClocksIn(t *testing.T) {
	h, records := newScanTestHandler(t)

	rec := performScan(t, h, `{"code":"QR-001"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var result models.ScanResult
	require.NoError(t, json.Unmarshal(data, &result))

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.ScanActionClockIn, result.Outcomes[0].Action)
	require.Len(t, records.created, 1)
	assert.Equal(t, models.AttendancePresent, records.created[0].Status)
}

func TestAttendanceHandlerScanUnknownCode(t *testing.T) {
	h, _ := newScanTestHandler(t)

	rec := performScan(t, h, `{"code":"QR-MISSING"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandlerScanRequiresCode(t *testing.T) {
	h, _ := newScanTestHandler(t)

	rec := performScan(t, h, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
