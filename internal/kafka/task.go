package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/studytrack/coursetasks/internal"
)

const otelName = "github.com/studytrack/coursetasks/internal/kafka"

// Task represents the repository used for publishing Task Record change
// events to Kafka.
type Task struct {
	producer  *kafka.Producer
	topicName string
}

// Event is the JSON payload published for every confirmed change.
type Event struct {
	Type     string
	CourseID string
	TaskID   string
	Value    Record
}

// Record is the wire form of a task carried inside an Event.
type Record struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskRecord converts the wire form back into the domain record.
func (r Record) TaskRecord() internal.TaskRecord {
	return internal.TaskRecord{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    internal.ParsePriority(r.Priority),
		Status:      internal.ParseStatus(r.Status),
		DueDate:     r.DueDate,
		AssignedTo:  r.AssignedTo,
		CreatedAt:   r.CreatedAt,
	}
}

// NewTask instantiates the Task repository.
func NewTask(producer *kafka.Producer, topicName string) *Task {
	return &Task{
		topicName: topicName,
		producer:  producer,
	}
}

// Created publishes a message indicating a record was created.
func (t *Task) Created(ctx context.Context, task internal.TaskRecord) error {
	return t.publish(ctx, "Task.Created", "tasks.event.created", task.CourseID, task.ID, task)
}

// Deleted publishes a message indicating a record was deleted.
func (t *Task) Deleted(ctx context.Context, courseID, taskID string) error {
	return t.publish(ctx, "Task.Deleted", "tasks.event.deleted", courseID, taskID, internal.TaskRecord{ID: taskID, CourseID: courseID})
}

// Updated publishes a message indicating a record was updated.
func (t *Task) Updated(ctx context.Context, task internal.TaskRecord) error {
	return t.publish(ctx, "Task.Updated", "tasks.event.updated", task.CourseID, task.ID, task)
}

func (t *Task) publish(ctx context.Context, spanName, msgType, courseID, taskID string, task internal.TaskRecord) error {
	_, span := otel.Tracer(otelName).Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.KeyValue{
			Key:   semconv.MessagingSystemKey,
			Value: attribute.StringValue("kafka"),
		},
	)

	evt := Event{
		Type:     msgType,
		CourseID: courseID,
		TaskID:   taskID,
		Value: Record{
			ID:          task.ID,
			CourseID:    task.CourseID,
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority.String(),
			Status:      string(task.Status),
			DueDate:     task.DueDate,
			AssignedTo:  task.AssignedTo,
			CreatedAt:   task.CreatedAt,
		},
	}

	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(evt); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Encode")
	}

	if err := t.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &t.topicName,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(courseID),
		Value: b.Bytes(),
	}, nil); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "producer.Produce")
	}

	return nil
}
