package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

// ChangeSource exposes the broker as a per-course change signal for the
// feed, mirroring the AMQP source. Each subscription runs its own consumer
// in a throwaway group so every subscriber sees every event, payloads only
// matter for course filtering: the feed re-reads the whole snapshot anyway.
type ChangeSource struct {
	servers string
	topic   string
	logger  *zap.Logger
}

// NewChangeSource instantiates the ChangeSource.
func NewChangeSource(servers, topic string, logger *zap.Logger) *ChangeSource {
	return &ChangeSource{
		servers: servers,
		topic:   topic,
		logger:  logger,
	}
}

// Changes delivers one signal per confirmed change in courseID until ctx is
// done. Consecutive signals coalesce, the channel closes when the consumer
// dies.
func (s *ChangeSource) Changes(ctx context.Context, courseID string) (<-chan struct{}, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": s.servers,
		"group.id":          "feed-" + uuid.NewString(),
		"auto.offset.reset": "latest",
	})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "kafka.NewConsumer")
	}

	if err := consumer.Subscribe(s.topic, nil); err != nil {
		_ = consumer.Close()

		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "consumer.Subscribe")
	}

	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer func() {
			if err := consumer.Close(); err != nil {
				s.logger.Warn("consumer.Close", zap.Error(err))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := consumer.ReadMessage(150 * time.Millisecond)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					continue
				}

				s.logger.Warn("consumer.ReadMessage", zap.Error(err))

				return
			}

			var evt Event
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				continue
			}

			if evt.CourseID != courseID {
				continue
			}

			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()

	return out, nil
}
