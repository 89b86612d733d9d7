package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"

	"github.com/google/uuid"
)

// ReportPublisher publishes judged submission summaries for async consumers
// such as leaderboards and solve counters.
type ReportPublisher interface {
	PublishReport(ctx context.Context, event model.ReportEvent) error
}

// MQReportPublisher publishes report events to a message queue.
type MQReportPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQReportPublisher creates a new MQ report publisher.
func NewMQReportPublisher(producer mq.Producer, topic string) *MQReportPublisher {
	return &MQReportPublisher{producer: producer, topic: topic}
}

// PublishReport publishes a report event keyed by submission id.
func (p *MQReportPublisher) PublishReport(ctx context.Context, event model.ReportEvent) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("report publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("report topic is required")
	}
	if event.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal report event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = event.SubmissionID
	message.Headers["challenge_id"] = event.ChallengeID
	// Consumers deduplicate redeliveries on event_id.
	message.Headers["event_id"] = uuid.NewString()
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish report event failed")
	}
	return nil
}
