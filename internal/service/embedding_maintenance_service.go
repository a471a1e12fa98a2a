package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/internal/repository/specification"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/pkg/events"

	"github.com/google/uuid"
)

const DefaultSweepPageSize = 50

// DocumentEmbedder turns notebook text into a stored vector.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, raw string) ([]float32, error)
	Model() string
}

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// JobNotifier pushes a finished job to its requester's open connections.
type JobNotifier interface {
	NotifyJobFinished(userId uuid.UUID, job *dto.EmbeddingJobResponse)
}

type MaintenanceOption func(*embeddingMaintenanceService)

func WithJobNotifier(n JobNotifier) MaintenanceOption {
	return func(s *embeddingMaintenanceService) {
		s.notifier = n
	}
}

type IEmbeddingMaintenanceService interface {
	EnqueueNotebook(ctx context.Context, userId uuid.UUID, notebookId uuid.UUID) (*dto.EmbeddingJobResponse, error)
	StartSweep(ctx context.Context, userId *uuid.UUID) (*dto.EmbeddingJobResponse, error)
	RunSweep(ctx context.Context, userId *uuid.UUID) (*entity.EmbeddingJob, error)
	GetJob(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.EmbeddingJobResponse, error)
	RunSingleJob(ctx context.Context, jobId, notebookId uuid.UUID) error
	EmbedNotebook(ctx context.Context, notebookId uuid.UUID) error
	HandleNotebookContentChanged(ctx context.Context, event events.Event) error
	Wait()
}

type embeddingMaintenanceService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   DocumentEmbedder
	publisher  IPublisherService
	events     EventPublisher
	notifier   JobNotifier
	logger     logger.ILogger
	pageSize   int
	now        func() time.Time

	wg sync.WaitGroup
}

// NewEmbeddingMaintenanceService accepts a nil events publisher when NATS is
// not configured; sweeps then finish without announcing themselves.
func NewEmbeddingMaintenanceService(
	uowFactory unitofwork.RepositoryFactory,
	embedder DocumentEmbedder,
	publisher IPublisherService,
	eventPublisher EventPublisher,
	log logger.ILogger,
	pageSize int,
	opts ...MaintenanceOption,
) IEmbeddingMaintenanceService {
	if pageSize <= 0 {
		pageSize = DefaultSweepPageSize
	}
	s := &embeddingMaintenanceService{
		uowFactory: uowFactory,
		embedder:   embedder,
		publisher:  publisher,
		events:     eventPublisher,
		logger:     log,
		pageSize:   pageSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *embeddingMaintenanceService) EnqueueNotebook(ctx context.Context, userId uuid.UUID, notebookId uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindOne(ctx,
		specification.ByID{ID: notebookId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find notebook: %v", apperror.ErrInternal, err)
	}
	if notebook == nil {
		return nil, apperror.ErrNotFoundOrUnauthorized
	}

	job, err := s.enqueue(ctx, notebookId, &userId)
	if err != nil {
		return nil, err
	}
	return toEmbeddingJobResponse(job), nil
}

func (s *embeddingMaintenanceService) enqueue(ctx context.Context, notebookId uuid.UUID, userId *uuid.UUID) (*entity.EmbeddingJob, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	job := &entity.EmbeddingJob{
		Kind:       entity.EmbeddingJobKindSingle,
		NotebookId: &notebookId,
		UserId:     userId,
		Status:     entity.EmbeddingJobStatusPending,
		CreatedAt:  s.now(),
	}
	if err := uow.EmbeddingJobRepository().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: create job: %v", apperror.ErrInternal, err)
	}

	payload, err := json.Marshal(dto.EmbedNotebookMessage{NotebookId: notebookId, JobId: job.Id})
	if err != nil {
		return nil, fmt.Errorf("%w: encode job: %v", apperror.ErrInternal, err)
	}

	if err := s.publisher.Publish(ctx, payload); err != nil {
		finished := s.now()
		job.Status = entity.EmbeddingJobStatusFailed
		job.LastError = err.Error()
		job.FinishedAt = &finished
		if updateErr := uow.EmbeddingJobRepository().Update(ctx, job); updateErr != nil {
			s.logger.Error("EMBED_MAINTENANCE", "Failed to mark unpublished job", map[string]interface{}{
				"job_id": job.Id,
				"error":  updateErr.Error(),
			})
		}
		return nil, fmt.Errorf("%w: publish job: %v", apperror.ErrInternal, err)
	}

	return job, nil
}

// StartSweep records a running sweep and processes it in the background. The
// sweep keeps the request's values but not its cancellation.
func (s *embeddingMaintenanceService) StartSweep(ctx context.Context, userId *uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	job, err := s.createSweepJob(ctx, userId)
	if err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweep(detached, job.Id, userId)
	}()

	return toEmbeddingJobResponse(job), nil
}

// RunSweep processes a sweep on the calling goroutine and returns the final record.
func (s *embeddingMaintenanceService) RunSweep(ctx context.Context, userId *uuid.UUID) (*entity.EmbeddingJob, error) {
	job, err := s.createSweepJob(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.sweep(ctx, job.Id, userId), nil
}

func (s *embeddingMaintenanceService) Wait() {
	s.wg.Wait()
}

func (s *embeddingMaintenanceService) createSweepJob(ctx context.Context, userId *uuid.UUID) (*entity.EmbeddingJob, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	now := s.now()
	job := &entity.EmbeddingJob{
		Kind:      entity.EmbeddingJobKindSweep,
		UserId:    userId,
		Status:    entity.EmbeddingJobStatusRunning,
		StartedAt: &now,
		CreatedAt: now,
	}
	if err := uow.EmbeddingJobRepository().Create(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: create job: %v", apperror.ErrInternal, err)
	}
	return job, nil
}

// sweep walks notebooks lacking a current embedding in id order. Failed
// notebooks stay unembedded, so the cursor, not the filter, guarantees progress.
func (s *embeddingMaintenanceService) sweep(ctx context.Context, jobId uuid.UUID, userId *uuid.UUID) *entity.EmbeddingJob {
	s.logger.Info("EMBED_MAINTENANCE", "Sweep started", map[string]interface{}{"job_id": jobId})

	var cursor *uuid.UUID
	var sweepErr error

	for sweepErr == nil {
		uow := s.uowFactory.NewUnitOfWork(ctx)

		specs := []specification.Specification{
			specification.MissingEmbedding{Model: s.embedder.Model()},
			specification.OrderBy{Field: "id"},
			specification.Pagination{Limit: s.pageSize},
		}
		if userId != nil {
			specs = append(specs, specification.UserOwnedBy{UserID: *userId})
		}
		if cursor != nil {
			specs = append(specs, specification.IDGreaterThan{ID: *cursor})
		}

		page, err := uow.NotebookRepository().FindAll(ctx, specs...)
		if err != nil {
			sweepErr = fmt.Errorf("list notebooks: %w", err)
			break
		}

		for _, notebook := range page {
			if err := ctx.Err(); err != nil {
				sweepErr = err
				break
			}
			id := notebook.Id
			cursor = &id

			embedErr := s.embedNotebook(ctx, notebook)
			lastError := ""
			if embedErr != nil {
				lastError = fmt.Sprintf("notebook %s: %v", notebook.Id, embedErr)
				s.logger.Warn("EMBED_MAINTENANCE", "Notebook embedding failed, continuing", map[string]interface{}{
					"job_id":      jobId,
					"notebook_id": notebook.Id,
					"error":       embedErr.Error(),
				})
			}
			if err := uow.EmbeddingJobRepository().RecordOutcome(ctx, jobId, embedErr == nil, lastError); err != nil {
				s.logger.Error("EMBED_MAINTENANCE", "Failed to record sweep outcome", map[string]interface{}{
					"job_id": jobId,
					"error":  err.Error(),
				})
			}
		}

		if len(page) < s.pageSize {
			break
		}
	}

	job, err := s.finishJob(context.WithoutCancel(ctx), jobId, sweepErr)
	if err != nil {
		s.logger.Error("EMBED_MAINTENANCE", "Failed to finish sweep", map[string]interface{}{
			"job_id": jobId,
			"error":  err.Error(),
		})
		return &entity.EmbeddingJob{Id: jobId, Kind: entity.EmbeddingJobKindSweep, Status: entity.EmbeddingJobStatusFailed, LastError: err.Error()}
	}

	s.logger.Info("EMBED_MAINTENANCE", "Sweep finished", map[string]interface{}{
		"job_id":    jobId,
		"status":    job.Status,
		"processed": job.Processed,
		"succeeded": job.Succeeded,
		"failed":    job.Failed,
	})
	s.announceSweep(ctx, job)
	return job
}

func (s *embeddingMaintenanceService) announceSweep(ctx context.Context, job *entity.EmbeddingJob) {
	if s.events == nil {
		return
	}
	event := events.NewEmbeddingSweepCompleted(job.Id, string(job.Status), events.SweepCounts{
		Processed: job.Processed,
		Succeeded: job.Succeeded,
		Failed:    job.Failed,
	}, s.now())
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("EMBED_MAINTENANCE", "Failed to publish sweep completion", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}
}

// finishJob reloads the record so counters written by RecordOutcome are kept.
// A sweep completes despite item failures; a single job fails with its item.
func (s *embeddingMaintenanceService) finishJob(ctx context.Context, jobId uuid.UUID, runErr error) (*entity.EmbeddingJob, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	job, err := uow.EmbeddingJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s disappeared", jobId)
	}

	finished := s.now()
	job.FinishedAt = &finished
	switch {
	case runErr != nil:
		job.Status = entity.EmbeddingJobStatusFailed
		job.LastError = runErr.Error()
	case job.Kind == entity.EmbeddingJobKindSingle && job.Failed > 0:
		job.Status = entity.EmbeddingJobStatusFailed
	default:
		job.Status = entity.EmbeddingJobStatusCompleted
	}

	if err := uow.EmbeddingJobRepository().Update(ctx, job); err != nil {
		return nil, err
	}

	if s.notifier != nil && job.UserId != nil {
		s.notifier.NotifyJobFinished(*job.UserId, toEmbeddingJobResponse(job))
	}
	return job, nil
}

func (s *embeddingMaintenanceService) GetJob(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.EmbeddingJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	job, err := uow.EmbeddingJobRepository().FindOne(ctx,
		specification.ByID{ID: jobId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find job: %v", apperror.ErrInternal, err)
	}
	if job == nil {
		return nil, apperror.ErrNotFoundOrUnauthorized
	}
	return toEmbeddingJobResponse(job), nil
}

// RunSingleJob is called by the queue consumer. Embedding failures are recorded
// on the job and are not returned; only bookkeeping failures are.
func (s *embeddingMaintenanceService) RunSingleJob(ctx context.Context, jobId, notebookId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	job, err := uow.EmbeddingJobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return err
	}
	if job == nil {
		s.logger.Warn("EMBED_MAINTENANCE", "Job record missing, embedding anyway", map[string]interface{}{
			"job_id":      jobId,
			"notebook_id": notebookId,
		})
		return s.EmbedNotebook(ctx, notebookId)
	}
	if job.Status == entity.EmbeddingJobStatusCompleted || job.Status == entity.EmbeddingJobStatusFailed {
		return nil
	}

	started := s.now()
	job.Status = entity.EmbeddingJobStatusRunning
	job.StartedAt = &started
	if err := uow.EmbeddingJobRepository().Update(ctx, job); err != nil {
		return err
	}

	embedErr := s.EmbedNotebook(ctx, notebookId)
	lastError := ""
	if embedErr != nil {
		lastError = embedErr.Error()
		s.logger.Warn("EMBED_MAINTENANCE", "Notebook embedding failed", map[string]interface{}{
			"job_id":      jobId,
			"notebook_id": notebookId,
			"error":       lastError,
		})
	}
	if err := uow.EmbeddingJobRepository().RecordOutcome(ctx, jobId, embedErr == nil, lastError); err != nil {
		return err
	}

	_, err = s.finishJob(ctx, jobId, nil)
	return err
}

func (s *embeddingMaintenanceService) EmbedNotebook(ctx context.Context, notebookId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindOne(ctx, specification.ByID{ID: notebookId})
	if err != nil {
		return fmt.Errorf("%w: find notebook: %v", apperror.ErrInternal, err)
	}
	if notebook == nil {
		return apperror.ErrNotFoundOrUnauthorized
	}
	return s.embedNotebook(ctx, notebook)
}

func (s *embeddingMaintenanceService) embedNotebook(ctx context.Context, notebook *entity.Notebook) error {
	vector, err := s.embedder.EmbedDocument(ctx, notebook.Title+"\n\n"+notebook.Content)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NotebookRepository().UpdateEmbedding(ctx, notebook.Id, vector, s.embedder.Model(), s.now()); err != nil {
		return fmt.Errorf("%w: store embedding: %v", apperror.ErrInternal, err)
	}
	return nil
}

// HandleNotebookContentChanged queues regeneration for a notebook edited by
// the notebook service. Undecodable events are dropped, not retried.
func (s *embeddingMaintenanceService) HandleNotebookContentChanged(ctx context.Context, event events.Event) error {
	notebookId, err := uuidField(event, "notebook_id")
	if err != nil {
		s.logger.Warn("EMBED_MAINTENANCE", "Ignoring notebook event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return nil
	}

	var userId *uuid.UUID
	if id, err := uuidField(event, "user_id"); err == nil {
		userId = &id
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notebook, err := uow.NotebookRepository().FindOne(ctx, specification.ByID{ID: notebookId})
	if err != nil {
		return err
	}
	if notebook == nil {
		s.logger.Info("EMBED_MAINTENANCE", "Changed notebook no longer exists", map[string]interface{}{"notebook_id": notebookId})
		return nil
	}

	job, err := s.enqueue(ctx, notebookId, userId)
	if err != nil {
		return err
	}
	s.logger.Debug("EMBED_MAINTENANCE", "Queued regeneration", map[string]interface{}{
		"notebook_id": notebookId,
		"job_id":      job.Id,
	})
	return nil
}

var errMissingField = errors.New("missing field")

func uuidField(event events.Event, key string) (uuid.UUID, error) {
	raw, ok := events.StringField(event, key)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s: %w", key, errMissingField)
	}
	return uuid.Parse(raw)
}

func toEmbeddingJobResponse(job *entity.EmbeddingJob) *dto.EmbeddingJobResponse {
	return &dto.EmbeddingJobResponse{
		Id:         job.Id,
		Kind:       string(job.Kind),
		NotebookId: job.NotebookId,
		Status:     string(job.Status),
		Processed:  job.Processed,
		Succeeded:  job.Succeeded,
		Failed:     job.Failed,
		LastError:  job.LastError,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		CreatedAt:  job.CreatedAt,
	}
}
