package rabbitmq

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"

	"github.com/studytrack/coursetasks/internal"
)

const otelName = "github.com/studytrack/coursetasks/internal/rabbitmq"

// exchangeName is the topic exchange carrying task change events, routing
// keys follow "tasks.<courseID>.event.<kind>".
const exchangeName = "tasks"

// Event is the gob-encoded payload published for every confirmed change.
type Event struct {
	Kind     string
	CourseID string
	TaskID   string
	Task     internal.TaskRecord
}

// Task represents the repository used for publishing Task Record change
// events.
type Task struct {
	ch *amqp.Channel
}

// NewTask instantiates the Task repository.
func NewTask(channel *amqp.Channel) (*Task, error) {
	return &Task{
		ch: channel,
	}, nil
}

// Created publishes a message indicating a record was created.
func (t *Task) Created(ctx context.Context, task internal.TaskRecord) error {
	return t.publish(ctx, "Task.Created", Event{
		Kind:     "created",
		CourseID: task.CourseID,
		TaskID:   task.ID,
		Task:     task,
	})
}

// Deleted publishes a message indicating a record was deleted.
func (t *Task) Deleted(ctx context.Context, courseID, taskID string) error {
	return t.publish(ctx, "Task.Deleted", Event{
		Kind:     "deleted",
		CourseID: courseID,
		TaskID:   taskID,
	})
}

// Updated publishes a message indicating a record was updated.
func (t *Task) Updated(ctx context.Context, task internal.TaskRecord) error {
	return t.publish(ctx, "Task.Updated", Event{
		Kind:     "updated",
		CourseID: task.CourseID,
		TaskID:   task.ID,
		Task:     task,
	})
}

func (t *Task) publish(ctx context.Context, spanName string, e Event) error {
	_, span := otel.Tracer(otelName).Start(ctx, spanName)
	defer span.End()

	routingKey := fmt.Sprintf("tasks.%s.event.%s", e.CourseID, e.Kind)

	span.SetAttributes(
		attribute.KeyValue{
			Key:   semconv.MessagingSystemKey,
			Value: attribute.StringValue("rabbitmq"),
		},
		attribute.KeyValue{
			Key:   semconv.MessagingRabbitmqRoutingKeyKey,
			Value: attribute.StringValue(routingKey),
		},
	)

	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(e); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "gob.Encode")
	}

	err := t.ch.Publish(
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			AppId:       "coursetasks-feed-server",
			ContentType: "application/x-encoding-gob",
			Body:        b.Bytes(),
			Timestamp:   time.Now(),
		})
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "ch.Publish")
	}

	return nil
}
