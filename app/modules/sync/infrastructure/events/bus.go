package syncevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// JobEventsTopic carries every job state change and progress update.
const JobEventsTopic = "sync.job.events"

// Bus publishes job events and lets observers subscribe to them.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

// NewInProcessBus keeps events inside the process.
func NewInProcessBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(logger))

	return &Bus{
		publisher:  pubSub,
		subscriber: pubSub,
		logger:     logger.With(slog.String("component", "sync_events")),
	}
}

// NewNATSBus publishes events on core NATS so other processes can follow sync
// progress.
func NewNATSBus(natsURL string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watermillLogger := watermill.NewSlogLogger(logger)
	marshaller := &nats.NATSMarshaler{}
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               natsURL,
			NatsOptions:       options,
			Marshaler:         marshaller,
			JetStream:         nats.JetStreamConfig{Disabled: true},
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:               natsURL,
			NatsOptions:       options,
			Unmarshaler:       marshaller,
			JetStream:         nats.JetStreamConfig{Disabled: true},
			SubjectCalculator: nats.DefaultSubjectCalculator,
			CloseTimeout:      5 * time.Second,
		},
		watermillLogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	return &Bus{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger.With(slog.String("component", "sync_events")),
	}, nil
}

// PublishJobEvent publishes a job event.
func (b *Bus) PublishJobEvent(ctx context.Context, event syncdomain.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("job_id", event.JobID)
	msg.Metadata.Set("state", string(event.State))
	if event.Kind != "" {
		msg.Metadata.Set("kind", string(event.Kind))
	}

	if err := b.publisher.Publish(JobEventsTopic, msg); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	return nil
}

// SubscribeJobEvents streams decoded job events until ctx is cancelled.
// Messages that cannot be decoded are acked and dropped.
func (b *Bus) SubscribeJobEvents(ctx context.Context) (<-chan syncdomain.JobEvent, error) {
	messages, err := b.subscriber.Subscribe(ctx, JobEventsTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to job events: %w", err)
	}

	out := make(chan syncdomain.JobEvent)
	go func() {
		defer close(out)
		for msg := range messages {
			var event syncdomain.JobEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.WarnContext(ctx, "Dropping undecodable job event",
					slog.String("message_id", msg.UUID),
					slog.Any("error", err),
				)
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close closes the publisher and the subscriber.
func (b *Bus) Close() error {
	pubErr := b.publisher.Close()
	// the in-process bus uses one pub/sub for both sides
	if any(b.subscriber) == any(b.publisher) {
		return pubErr
	}
	subErr := b.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
