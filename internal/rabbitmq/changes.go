package rabbitmq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal"
)

// ChangeSource exposes the broker as a per-course change signal for the
// feed. Each subscription gets its own exclusive auto-deleted queue bound to
// the course's routing keys, payloads are discarded: the feed re-reads the
// whole snapshot anyway.
type ChangeSource struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

// NewChangeSource instantiates the ChangeSource.
func NewChangeSource(channel *amqp.Channel, logger *zap.Logger) *ChangeSource {
	return &ChangeSource{
		ch:     channel,
		logger: logger,
	}
}

// Changes delivers one signal per confirmed change in courseID until ctx is
// done. Consecutive signals coalesce, the channel closes when the consumer
// dies.
func (s *ChangeSource) Changes(ctx context.Context, courseID string) (<-chan struct{}, error) {
	queue, err := s.ch.QueueDeclare(
		"",    // name, broker-assigned
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "channel.QueueDeclare")
	}

	err = s.ch.QueueBind(
		queue.Name,
		fmt.Sprintf("tasks.%s.event.*", courseID),
		exchangeName,
		false,
		nil,
	)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "channel.QueueBind")
	}

	consumer := "feed-" + uuid.NewString()

	msgs, err := s.ch.Consume(
		queue.Name,
		consumer,
		true,  // auto-ack, signals carry no state worth redelivering
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeFeedClosed, "channel.Consume")
	}

	out := make(chan struct{}, 1)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				if err := s.ch.Cancel(consumer, false); err != nil {
					s.logger.Warn("channel.Cancel", zap.Error(err))
				}

				return
			case _, ok := <-msgs:
				if !ok {
					return
				}

				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
