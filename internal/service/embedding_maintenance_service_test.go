package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/entity"
	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"
	"ai-notebook-companion/internal/repository/implementation"
	"ai-notebook-companion/internal/repository/specification"
	"ai-notebook-companion/internal/repository/testutil"
	"ai-notebook-companion/internal/repository/unitofwork"
	"ai-notebook-companion/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDocumentEmbedder struct {
	failPrefix string
}

func (f *fakeDocumentEmbedder) EmbedDocument(ctx context.Context, raw string) ([]float32, error) {
	if f.failPrefix != "" && strings.HasPrefix(raw, f.failPrefix) {
		return nil, fmt.Errorf("%w: upstream 503", apperror.ErrNoEmbeddingAvailable)
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeDocumentEmbedder) Model() string { return "test-model" }

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func seedNotebooks(t *testing.T, db *gorm.DB, owner uuid.UUID, n int) []*entity.Notebook {
	t.Helper()
	repo := implementation.NewNotebookRepository(db)
	notebooks := make([]*entity.Notebook, 0, n)
	for i := 1; i <= n; i++ {
		nb := &entity.Notebook{
			Title:   fmt.Sprintf("Notebook %d", i),
			Content: fmt.Sprintf("Entry number %d about the week.", i),
			UserId:  owner,
		}
		require.NoError(t, repo.Create(context.Background(), nb))
		notebooks = append(notebooks, nb)
	}
	return notebooks
}

func TestRunSweep_ContinuesPastFailures(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	notebooks := seedNotebooks(t, db, owner, 10)

	bus := &recordingEvents{}
	svc := NewEmbeddingMaintenanceService(
		unitofwork.NewRepositoryFactory(db),
		&fakeDocumentEmbedder{failPrefix: "Notebook 4\n"},
		&recordingPublisher{},
		bus,
		logger.NewNopLogger(),
		3,
	)

	job, err := svc.RunSweep(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, entity.EmbeddingJobStatusCompleted, job.Status)
	assert.Equal(t, 10, job.Processed)
	assert.Equal(t, 9, job.Succeeded)
	assert.Equal(t, 1, job.Failed)
	assert.Contains(t, job.LastError, notebooks[3].Id.String())
	assert.NotNil(t, job.FinishedAt)

	missing, err := implementation.NewNotebookRepository(db).Count(ctx, specification.MissingEmbedding{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), missing)

	require.Len(t, bus.events, 1)
	assert.Equal(t, events.TypeEmbeddingSweepCompleted, bus.events[0].EventType())
	assert.Equal(t, 9, bus.events[0].Payload()["succeeded"])
}

func TestStartSweep_ScopedToOwnerAndObservable(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	seedNotebooks(t, db, owner, 4)
	seedNotebooks(t, db, uuid.New(), 2)

	svc := NewEmbeddingMaintenanceService(
		unitofwork.NewRepositoryFactory(db),
		&fakeDocumentEmbedder{},
		&recordingPublisher{},
		nil,
		logger.NewNopLogger(),
		0,
	)

	accepted, err := svc.StartSweep(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, string(entity.EmbeddingJobStatusRunning), accepted.Status)
	assert.Equal(t, string(entity.EmbeddingJobKindSweep), accepted.Kind)

	svc.Wait()

	job, err := svc.GetJob(ctx, owner, accepted.Id)
	require.NoError(t, err)
	assert.Equal(t, string(entity.EmbeddingJobStatusCompleted), job.Status)
	assert.Equal(t, 4, job.Processed)
	assert.Equal(t, 4, job.Succeeded)

	_, err = svc.GetJob(ctx, uuid.New(), accepted.Id)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrUnauthorized)
}

func TestEnqueueNotebook(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	nb := seedNotebooks(t, db, owner, 1)[0]

	t.Run("publishes a pending job", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc := NewEmbeddingMaintenanceService(unitofwork.NewRepositoryFactory(db), &fakeDocumentEmbedder{}, pub, nil, logger.NewNopLogger(), 0)

		job, err := svc.EnqueueNotebook(ctx, owner, nb.Id)
		require.NoError(t, err)
		assert.Equal(t, string(entity.EmbeddingJobStatusPending), job.Status)
		require.NotNil(t, job.NotebookId)
		assert.Equal(t, nb.Id, *job.NotebookId)

		require.Len(t, pub.payloads, 1)
		var msg dto.EmbedNotebookMessage
		require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
		assert.Equal(t, nb.Id, msg.NotebookId)
		assert.Equal(t, job.Id, msg.JobId)
	})

	t.Run("rejects a notebook owned by someone else", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc := NewEmbeddingMaintenanceService(unitofwork.NewRepositoryFactory(db), &fakeDocumentEmbedder{}, pub, nil, logger.NewNopLogger(), 0)

		_, err := svc.EnqueueNotebook(ctx, uuid.New(), nb.Id)
		assert.ErrorIs(t, err, apperror.ErrNotFoundOrUnauthorized)
		assert.Empty(t, pub.payloads)
	})

	t.Run("publish failure marks the job failed", func(t *testing.T) {
		requester := uuid.New()
		target := seedNotebooks(t, db, requester, 1)[0]
		pub := &recordingPublisher{err: fmt.Errorf("closed")}
		svc := NewEmbeddingMaintenanceService(unitofwork.NewRepositoryFactory(db), &fakeDocumentEmbedder{}, pub, nil, logger.NewNopLogger(), 0)

		_, err := svc.EnqueueNotebook(ctx, requester, target.Id)
		assert.ErrorIs(t, err, apperror.ErrInternal)

		failed, err := implementation.NewEmbeddingJobRepository(db).FindOne(ctx,
			specification.UserOwnedBy{UserID: requester},
		)
		require.NoError(t, err)
		require.NotNil(t, failed)
		assert.Equal(t, entity.EmbeddingJobStatusFailed, failed.Status)
		assert.Equal(t, "closed", failed.LastError)
	})
}

func TestConsumer_ProcessesQueuedJob(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	owner := uuid.New()
	nb := seedNotebooks(t, db, owner, 1)[0]

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	log := logger.NewNopLogger()
	svc := NewEmbeddingMaintenanceService(
		unitofwork.NewRepositoryFactory(db),
		&fakeDocumentEmbedder{},
		NewPublisherService(pubSub, "embed"),
		nil,
		log,
		0,
	)
	require.NoError(t, NewConsumerService(pubSub, "embed", svc, log).Consume(ctx))

	job, err := svc.EnqueueNotebook(ctx, owner, nb.Id)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.GetJob(ctx, owner, job.Id)
		return err == nil && got.Status == string(entity.EmbeddingJobStatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	stored, err := implementation.NewNotebookRepository(db).FindOne(ctx, specification.ByID{ID: nb.Id})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, stored.Embedding)
	assert.Equal(t, "test-model", stored.EmbeddingModel)
}

func TestRunSingleJob_RecordsEmbeddingFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	nb := seedNotebooks(t, db, owner, 1)[0]

	pub := &recordingPublisher{}
	svc := NewEmbeddingMaintenanceService(
		unitofwork.NewRepositoryFactory(db),
		&fakeDocumentEmbedder{failPrefix: "Notebook 1\n"},
		pub,
		nil,
		logger.NewNopLogger(),
		0,
	)

	job, err := svc.EnqueueNotebook(ctx, owner, nb.Id)
	require.NoError(t, err)

	require.NoError(t, svc.RunSingleJob(ctx, job.Id, nb.Id))

	got, err := svc.GetJob(ctx, owner, job.Id)
	require.NoError(t, err)
	assert.Equal(t, string(entity.EmbeddingJobStatusFailed), got.Status)
	assert.Equal(t, 1, got.Failed)
	assert.Contains(t, got.LastError, "upstream 503")

	// Redelivery of a finished job is a no-op.
	require.NoError(t, svc.RunSingleJob(ctx, job.Id, nb.Id))
	again, err := svc.GetJob(ctx, owner, job.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Processed)
}

func TestHandleNotebookContentChanged(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	nb := seedNotebooks(t, db, owner, 1)[0]

	tests := []struct {
		name      string
		event     events.Event
		published int
	}{
		{
			name:      "known notebook is queued",
			event:     events.NewNotebookContentChanged(nb.Id, owner, time.Now()),
			published: 1,
		},
		{
			name:      "deleted notebook is ignored",
			event:     events.NewNotebookContentChanged(uuid.New(), owner, time.Now()),
			published: 0,
		},
		{
			name: "malformed payload is dropped",
			event: events.BaseEvent{
				Type: events.TypeNotebookContentChanged,
				Data: map[string]interface{}{"notebook_id": "not-a-uuid"},
			},
			published: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc := NewEmbeddingMaintenanceService(unitofwork.NewRepositoryFactory(db), &fakeDocumentEmbedder{}, pub, nil, logger.NewNopLogger(), 0)

			require.NoError(t, svc.HandleNotebookContentChanged(ctx, tt.event))
			assert.Len(t, pub.payloads, tt.published)
		})
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []uuid.UUID
	jobs  []*dto.EmbeddingJobResponse
}

func (r *recordingNotifier) NotifyJobFinished(userId uuid.UUID, job *dto.EmbeddingJobResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userId)
	r.jobs = append(r.jobs, job)
}

func TestJobNotifier_ReceivesFinishedUserJobs(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	nb := seedNotebooks(t, db, owner, 1)[0]

	notifier := &recordingNotifier{}
	svc := NewEmbeddingMaintenanceService(
		unitofwork.NewRepositoryFactory(db),
		&fakeDocumentEmbedder{},
		&recordingPublisher{},
		nil,
		logger.NewNopLogger(),
		0,
		WithJobNotifier(notifier),
	)

	job, err := svc.EnqueueNotebook(ctx, owner, nb.Id)
	require.NoError(t, err)
	require.NoError(t, svc.RunSingleJob(ctx, job.Id, nb.Id))

	// System sweeps have no requester to notify.
	_, err = svc.RunSweep(ctx, nil)
	require.NoError(t, err)

	require.Len(t, notifier.users, 1)
	assert.Equal(t, owner, notifier.users[0])
	assert.Equal(t, job.Id, notifier.jobs[0].Id)
	assert.Equal(t, string(entity.EmbeddingJobStatusCompleted), notifier.jobs[0].Status)
}
