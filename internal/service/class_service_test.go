package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
)

type stubClassStore struct {
	created *models.Class
}

func (s *stubClassStore) List(ctx context.Context, filter models.ClassFilter, scope access.Predicate) ([]models.ClassDetail, int, error) {
	return nil, 0, nil
}

func (s *stubClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.created != nil && s.created.ID == id {
		return s.created, nil
	}
	return nil, errors.New("not found")
}

func (s *stubClassStore) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if s.created != nil && s.created.ID == id {
		return &models.ClassDetail{Class: *s.created, CourseCode: "CS-201"}, nil
	}
	return nil, errors.New("not found")
}

func (s *stubClassStore) FindCourse(ctx context.Context, courseID string) (*models.Course, error) {
	return &models.Course{ID: courseID, Code: "CS-201"}, nil
}

func (s *stubClassStore) Create(ctx context.Context, class *models.Class) error {
	class.ID = "class-1"
	s.created = class
	return nil
}

func (s *stubClassStore) UpdateSchedule(ctx context.Context, id string, schedule models.Schedule) error {
	return nil
}

func (s *stubClassStore) Delete(ctx context.Context, id string) error { return nil }

func (s *stubClassStore) ListAssistants(ctx context.Context, classID string) ([]string, error) {
	return nil, nil
}

func (s *stubClassStore) AddAssistant(ctx context.Context, classID, userID string) error {
	return nil
}

type stubGenerator struct {
	err      error
	existing bool
	calls    int
}

func (g *stubGenerator) GenerateForClass(ctx context.Context, classID string) ([]models.ClassSession, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []models.ClassSession{{ID: "sess-1", ClassID: classID}}, nil
}

func (g *stubGenerator) HasSessions(ctx context.Context, classID string) (bool, error) {
	return g.existing, nil
}

func classCreateInput() CreateClassInput {
	return CreateClassInput{
		CourseID:   "course-1",
		SemesterID: "sem-1",
		SchoolID:   "school-1",
		Section:    "A",
		Schedule:   models.Schedule{Days: []string{"M", "W"}, StartTime: "08:00", EndTime: "09:40"},
	}
}

func TestClassCreateSucceedsWhenGenerationFails(t *testing.T) {
	store := &stubClassStore{}
	generator := &stubGenerator{err: errors.New("semester rows unavailable")}
	svc := NewClassService(store, generator, nil, nil)

	detail, err := svc.Create(context.Background(), classCreateInput())
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Equal(t, "class-1", detail.ID)
	require.NotNil(t, store.created)
	require.Equal(t, 1, generator.calls)
}

func TestClassCreateGeneratesSessions(t *testing.T) {
	store := &stubClassStore{}
	generator := &stubGenerator{}
	svc := NewClassService(store, generator, nil, nil)

	detail, err := svc.Create(context.Background(), classCreateInput())
	require.NoError(t, err)
	require.Equal(t, "class-1", detail.ID)
	require.Equal(t, 1, generator.calls)
}

func TestRegenerateSessionsRefusesWhenCalendarExists(t *testing.T) {
	store := &stubClassStore{}
	generator := &stubGenerator{existing: true}
	svc := NewClassService(store, generator, nil, nil)

	_, err := svc.RegenerateSessions(context.Background(), "class-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.Zero(t, generator.calls)
}

func TestRegenerateSessionsGeneratesWhenCalendarMissing(t *testing.T) {
	store := &stubClassStore{}
	generator := &stubGenerator{}
	svc := NewClassService(store, generator, nil, nil)

	sessions, err := svc.RegenerateSessions(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, 1, generator.calls)
}

func TestClassCreateRejectsInvalidPayload(t *testing.T) {
	store := &stubClassStore{}
	generator := &stubGenerator{}
	svc := NewClassService(store, generator, nil, nil)

	input := classCreateInput()
	input.Schedule.Days = nil
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	require.Nil(t, store.created)
	require.Zero(t, generator.calls)
}
