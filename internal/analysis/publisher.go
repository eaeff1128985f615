package analysis

import (
	"context"
	"fmt"

	"github.com/chatlens/cadence/pkg/logging"
)

// Publisher enqueues analysis jobs for asynchronous processing.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("analysis: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// Enqueue publishes an analysis job for the conversation under the given job ID.
func (p *Publisher) Enqueue(ctx context.Context, jobID string, conversationID string, opts ...PublishOption) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload := queuePayload{
		ID:             jobID,
		ConversationID: conversationID,
		TrackStatus:    true,
	}
	for _, opt := range opts {
		opt(&payload)
	}

	payload, body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("analysis: failed to enqueue job: %w", err)
	}

	p.logger.Debug("analysis job enqueued", "job_id", payload.ID, "conversation_id", conversationID)
	return nil
}
