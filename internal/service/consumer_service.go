package service

import (
	"context"
	"encoding/json"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// JobRunner executes one queued single-notebook job. A returned error means
// the job could not be recorded and the message should be redelivered.
type JobRunner interface {
	RunSingleJob(ctx context.Context, jobId, notebookId uuid.UUID) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	runner     JobRunner
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	runner JobRunner,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		runner:     runner,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedNotebookMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("EMBED_CONSUMER", "Dropping undecodable message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info("EMBED_CONSUMER", "Processing notebook embedding", map[string]interface{}{
		"notebook_id": payload.NotebookId,
		"job_id":      payload.JobId,
	})

	if err := cs.runner.RunSingleJob(ctx, payload.JobId, payload.NotebookId); err != nil {
		cs.logger.Error("EMBED_CONSUMER", "Failed to record job, requeueing", map[string]interface{}{
			"job_id": payload.JobId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	msg.Ack()
}
