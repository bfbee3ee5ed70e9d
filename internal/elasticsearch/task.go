package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/studytrack/coursetasks/internal"
)

const otelName = "github.com/studytrack/coursetasks/internal/elasticsearch"

// Task represents the repository used for searching Task Records. The index
// is a projection maintained by the indexer daemon, never written by the
// request path.
type Task struct {
	client *esv7.Client
	index  string
}

type indexedTask struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     *int64 `json:"due_date"`
	CreatedAt   int64  `json:"created_at"`
}

// NewTask instantiates the Task repository.
func NewTask(client *esv7.Client) *Task {
	return &Task{
		client: client,
		index:  "tasks",
	}
}

// Index creates or updates a record in the index.
func (t *Task) Index(ctx context.Context, task internal.TaskRecord) error {
	defer newOTELSpan(ctx, "Task.Index").End()

	body := indexedTask{
		ID:          task.ID,
		CourseID:    task.CourseID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority.String(),
		Status:      string(task.Status),
		AssignedTo:  task.AssignedTo,
		CreatedAt:   task.CreatedAt.UnixNano(),
	}

	if task.DueDate != nil {
		due := task.DueDate.UnixNano()
		body.DueDate = &due
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewEncoder.Encode")
	}

	req := esv7api.IndexRequest{
		Index:      t.index,
		Body:       &buf,
		DocumentID: task.ID,
		Refresh:    "true",
	}

	resp, err := req.Do(ctx, t.client)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "IndexRequest.Do")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return internal.NewErrorf(internal.ErrorCodeUnknown, "IndexRequest.Do %d", resp.StatusCode)
	}

	io.Copy(io.Discard, resp.Body)

	return nil
}

// Delete removes a record from the index.
func (t *Task) Delete(ctx context.Context, id string) error {
	defer newOTELSpan(ctx, "Task.Delete").End()

	req := esv7api.DeleteRequest{
		Index:      t.index,
		DocumentID: id,
	}

	resp, err := req.Do(ctx, t.client)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeNotFound, "DeleteRequest.Do")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return internal.NewErrorf(internal.ErrorCodeUnknown, "DeleteRequest.Do %d", resp.StatusCode)
	}

	io.Copy(io.Discard, resp.Body)

	return nil
}

// Search returns records matching the received values across all courses.
func (t *Task) Search(ctx context.Context, args internal.SearchParams) (internal.SearchResults, error) {
	defer newOTELSpan(ctx, "Task.Search").End()

	if args.IsZero() {
		return internal.SearchResults{}, nil
	}

	should := make([]interface{}, 0, 4)

	if args.Title != nil {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"title": *args.Title,
			},
		})
	}

	if args.Assignee != nil {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"assigned_to": *args.Assignee,
			},
		})
	}

	if args.Priority != nil {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"priority": args.Priority.String(),
			},
		})
	}

	if args.Status != nil {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"status": string(*args.Status),
			},
		})
	}

	var query map[string]interface{}

	if len(should) > 1 {
		query = map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"should": should,
				},
			},
		}
	} else {
		query = map[string]interface{}{
			"query": should[0],
		}
	}

	query["sort"] = []interface{}{
		"_score",
		map[string]interface{}{"id": "asc"},
	}

	query["from"] = args.From
	query["size"] = args.Size

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return internal.SearchResults{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewEncoder.Encode")
	}

	req := esv7api.SearchRequest{
		Index: []string{t.index},
		Body:  &buf,
	}

	resp, err := req.Do(ctx, t.client)
	if err != nil {
		return internal.SearchResults{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "SearchRequest.Do")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return internal.SearchResults{}, internal.NewErrorf(internal.ErrorCodeUnknown, "SearchRequest.Do %d", resp.StatusCode)
	}

	var hits struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source indexedTask `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return internal.SearchResults{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewDecoder.Decode")
	}

	res := make([]internal.TaskRecord, len(hits.Hits.Hits))

	for i, hit := range hits.Hits.Hits {
		res[i] = internal.TaskRecord{
			ID:          hit.Source.ID,
			CourseID:    hit.Source.CourseID,
			Title:       hit.Source.Title,
			Description: hit.Source.Description,
			Priority:    internal.ParsePriority(hit.Source.Priority),
			Status:      internal.ParseStatus(hit.Source.Status),
			AssignedTo:  hit.Source.AssignedTo,
			CreatedAt:   time.Unix(0, hit.Source.CreatedAt).UTC(),
		}

		if hit.Source.DueDate != nil {
			due := time.Unix(0, *hit.Source.DueDate).UTC()
			res[i].DueDate = &due
		}
	}

	return internal.SearchResults{
		Tasks: res,
		Total: hits.Hits.Total.Value,
	}, nil
}

func newOTELSpan(ctx context.Context, name string) trace.Span {
	_, span := otel.Tracer(otelName).Start(ctx, name)

	span.SetAttributes(semconv.DBSystemElasticsearch)

	return span
}
