package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	cmdinternal "github.com/studytrack/coursetasks/cmd/internal"
	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/elasticsearch"
	"github.com/studytrack/coursetasks/internal/envvar"
	"github.com/studytrack/coursetasks/internal/rabbitmq"
)

const rabbitMQConsumerName = "elasticsearch-indexer"

func main() {
	var env string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.Parse()

	errC, err := run(env)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "zap.NewProduction")
	}

	if err := envvar.Load(env); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "envvar.Load")
	}

	vault, err := cmdinternal.NewVaultProvider()
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewVaultProvider")
	}

	conf := envvar.New(vault)

	esClient, err := cmdinternal.NewElasticSearch(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewElasticSearch")
	}

	rmq, err := cmdinternal.NewRabbitMQ(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewRabbitMQ")
	}

	if _, err := cmdinternal.NewOTExporter(conf); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	srv := &Server{
		logger: logger,
		rmq:    rmq,
		task:   elasticsearch.NewTask(esClient),
		done:   make(chan struct{}),
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		defer func() {
			_ = logger.Sync()
			rmq.Close()
			stop()
			cancel()
			close(errC)
		}()

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving")

		if err := srv.ListenAndServe(); err != nil {
			errC <- err
		}
	}()

	return errC, nil
}

// Server consumes every task change event, regardless of course, and keeps
// the search index in step with the datastore.
type Server struct {
	logger *zap.Logger
	rmq    *cmdinternal.RabbitMQ
	task   *elasticsearch.Task
	done   chan struct{}
}

// ListenAndServe binds an exclusive queue to all courses' event routing keys
// and consumes until the channel closes. Indexing failures nack the message
// so the broker requeues it.
func (s *Server) ListenAndServe() error {
	queue, err := s.rmq.Channel.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "channel.QueueDeclare")
	}

	err = s.rmq.Channel.QueueBind(
		queue.Name,        // queue name
		"tasks.*.event.*", // routing key
		"tasks",           // exchange
		false,
		nil,
	)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "channel.QueueBind")
	}

	msgs, err := s.rmq.Channel.Consume(
		queue.Name,           // queue
		rabbitMQConsumerName, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "channel.Consume")
	}

	go func() {
		for msg := range msgs {
			s.logger.Info("Received message", zap.String("routing_key", msg.RoutingKey))

			var nack bool

			evt, err := decodeEvent(msg.Body)
			if err != nil {
				s.logger.Warn("Undecodable message", zap.Error(err))
				_ = msg.Nack(false, false)

				continue
			}

			switch {
			case strings.HasSuffix(msg.RoutingKey, ".event.created"),
				strings.HasSuffix(msg.RoutingKey, ".event.updated"):
				if err := s.task.Index(context.Background(), evt.Task); err != nil {
					nack = true
				}
			case strings.HasSuffix(msg.RoutingKey, ".event.deleted"):
				if err := s.task.Delete(context.Background(), evt.TaskID); err != nil {
					nack = true
				}
			default:
				nack = true
			}

			if nack {
				s.logger.Info("Nacking :(")
				_ = msg.Nack(false, nack)
			} else {
				s.logger.Info("Acking :)")
				_ = msg.Ack(false)
			}
		}

		s.logger.Info("No more messages to consume. Exiting.")

		s.done <- struct{}{}
	}()

	return nil
}

// Shutdown cancels the consumer and waits for the in-flight messages to
// drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	_ = s.rmq.Channel.Cancel(rabbitMQConsumerName, false)

	for {
		select {
		case <-ctx.Done():
			return internal.WrapErrorf(ctx.Err(), internal.ErrorCodeUnknown, "context.Done")
		case <-s.done:
			return nil
		}
	}
}

func decodeEvent(b []byte) (rabbitmq.Event, error) {
	var res rabbitmq.Event

	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&res); err != nil {
		return rabbitmq.Event{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "gob.Decode")
	}

	return res, nil
}
