package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/models"
	"github.com/classtrackhq/classtrack-api/internal/repository"
	appErrors "github.com/classtrackhq/classtrack-api/pkg/errors"
	"github.com/classtrackhq/classtrack-api/pkg/export"
	"github.com/classtrackhq/classtrack-api/pkg/jobs"
	"github.com/classtrackhq/classtrack-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListPending(ctx context.Context) ([]models.ReportJob, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error)
	Delete(ctx context.Context, id string) error
}

type reportAttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter, scope access.Predicate) ([]models.AttendanceDetail, int, error)
	Summary(ctx context.Context, classID string) ([]models.AttendanceSummary, error)
}

type reportClassReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportServiceConfig governs result retention.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates asynchronous attendance exports: jobs are
// persisted, queued, rendered to CSV or PDF and served via signed URLs.
type ReportService struct {
	repo       reportJobStore
	attendance reportAttendanceReader
	classes    reportClassReader
	queue      jobDispatcher
	storage    fileStorage
	signer     *storage.SignedURLSigner
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	cfg        ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(
	repo reportJobStore,
	attendance reportAttendanceReader,
	classes reportClassReader,
	queue jobDispatcher,
	store fileStorage,
	signer *storage.SignedURLSigner,
	logger *zap.Logger,
	cfg ReportServiceConfig,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:       repo,
		attendance: attendance,
		classes:    classes,
		queue:      queue,
		storage:    store,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		cfg:        cfg,
	}
}

// CreateReportInput is the enqueue payload.
type CreateReportInput struct {
	Type           models.ReportType   `json:"type"`
	ClassID        string              `json:"class_id"`
	ClassSessionID string              `json:"class_session_id"`
	Format         models.ReportFormat `json:"format"`
}

// CreateJob validates the request, persists the job, and queues processing.
func (s *ReportService) CreateJob(ctx context.Context, input CreateReportInput, actorID string) (*models.ReportJob, error) {
	if input.Type != models.ReportTypeAttendance && input.Type != models.ReportTypeSummary {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if input.Format != models.ReportFormatCSV && input.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if input.ClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id is required")
	}
	if _, err := s.classes.FindDetailByID(ctx, input.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	job := &models.ReportJob{
		Type: input.Type,
		Params: models.ReportJobParams{
			ClassID:        input.ClassID,
			ClassSessionID: input.ClassSessionID,
			Format:         input.Format,
		},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Process is the queue handler: it renders the export and records the result.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		s.logger.Warn("failed to mark job processing", zap.String("job_id", job.ID), zap.Error(err))
	}

	relPath, renderErr := s.render(ctx, job)
	now := time.Now().UTC()
	if renderErr != nil {
		status := models.ReportStatusFailed
		msg := renderErr.Error()
		if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); err != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return renderErr
	}

	finished := models.ReportStatusFinished
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:     &finished,
		ResultPath: &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finalise report job %s: %w", job.ID, err)
	}

	s.logger.Info("rendered report",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Params.Format)),
	)
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) (string, error) {
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s/%s-%s.%s", time.Now().UTC().Format("2006-01-02"), job.Type, job.ID, job.Params.Format)
	return s.storage.Save(filename, payload)
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	class, err := s.classes.FindDetailByID(ctx, job.Params.ClassID)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load class %s: %w", job.Params.ClassID, err)
	}
	title := fmt.Sprintf("%s %s attendance", class.CourseCode, class.Section)

	switch job.Type {
	case models.ReportTypeAttendance:
		filter := models.AttendanceFilter{
			ClassID:        job.Params.ClassID,
			ClassSessionID: job.Params.ClassSessionID,
			PageSize:       500,
		}
		records, _, err := s.attendance.List(ctx, filter, access.Predicate{})
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load attendance records: %w", err)
		}
		dataset := export.Dataset{
			Headers: []string{"Student", "Number", "Date", "Status", "Clock In", "Clock Out", "Minutes"},
			Rows:    make([]map[string]string, 0, len(records)),
		}
		for _, r := range records {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student":   r.StudentName,
				"Number":    r.StudentNumber,
				"Date":      r.ScheduledDate.Format("2006-01-02"),
				"Status":    string(r.Status),
				"Clock In":  formatClock(r.ClockInTime),
				"Clock Out": formatClock(r.ClockOutTime),
				"Minutes":   formatMinutes(r.SessionDuration),
			})
		}
		return dataset, title, nil

	case models.ReportTypeSummary:
		summaries, err := s.attendance.Summary(ctx, job.Params.ClassID)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("load attendance summary: %w", err)
		}
		dataset := export.Dataset{
			Headers: []string{"Student", "Present", "Absent", "Excused", "Total", "Minutes", "Percent"},
			Rows:    make([]map[string]string, 0, len(summaries)),
		}
		for _, sum := range summaries {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student": sum.StudentName,
				"Present": strconv.Itoa(sum.Present),
				"Absent":  strconv.Itoa(sum.Absent),
				"Excused": strconv.Itoa(sum.Excused),
				"Total":   strconv.Itoa(sum.Total),
				"Minutes": strconv.Itoa(sum.TotalMinutes),
				"Percent": fmt.Sprintf("%.1f", sum.Percent),
			})
		}
		return dataset, title + " summary", nil
	}
	return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("15:04")
}

func formatMinutes(minutes *int) string {
	if minutes == nil {
		return ""
	}
	return strconv.Itoa(*minutes)
}

// GetStatus exposes job metadata, enforcing ownership for non-admin callers.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ReportJob, *string, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if (role == models.RoleInstructor || role == models.RoleTA) && job.CreatedBy != actorID {
		return nil, nil, appErrors.ErrForbidden
	}

	var downloadURL *string
	if job.Status == models.ReportStatusFinished && job.ResultPath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err == nil {
			url := "/api/v1/reports/download/" + token
			downloadURL = &url
		} else {
			s.logger.Warn("failed to sign download token", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return job, downloadURL, nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs interrupted by a previous shutdown.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) error {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending report jobs: %w", err)
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to re-enqueue report job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		s.logger.Info("recovered report job", zap.String("job_id", job.ID))
	}
	return nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupOnce(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupOnce(ctx context.Context) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
	} else if len(deleted) > 0 {
		s.logger.Info("removed expired exports", zap.Int("count", len(deleted)))
	}

	stale, err := s.repo.ListStale(ctx, time.Now().UTC().Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("failed to list stale report jobs", zap.Error(err))
		return
	}
	for _, job := range stale {
		if job.ResultPath != nil {
			if err := s.storage.Delete(*job.ResultPath); err != nil {
				s.logger.Warn("failed to delete export file", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
		if err := s.repo.Delete(ctx, job.ID); err != nil {
			s.logger.Warn("failed to delete stale report job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
