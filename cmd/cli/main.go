// Command cli is a smoke client for a running feed server: it signs in,
// mutates one course and tails the event stream so each confirmed change can
// be watched arriving as a fresh snapshot.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/studytrack/coursetasks/internal/rest"
)

func main() {
	var baseURL, courseID string

	flag.StringVar(&baseURL, "base-url", "http://0.0.0.0:9234", "Feed server base URL")
	flag.StringVar(&courseID, "course", "cs335", "Course to exercise")
	flag.Parse()

	initTracer()

	client := &demoClient{
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL: baseURL,
	}

	ctx := context.Background()

	token, err := client.login(ctx, "student-1", "Alex")
	if err != nil {
		log.Fatalf("Couldn't sign in: %s", err)
	}

	client.token = token

	streamDone := make(chan struct{})

	go func() {
		defer close(streamDone)

		if err := client.tailStream(ctx, courseID, 4); err != nil {
			log.Printf("stream ended: %s", err)
		}
	}()

	due := time.Now().Add(24 * time.Hour).Format("2006-01-02")

	created, err := client.createTask(ctx, courseID, rest.CreateTaskRequest{
		Title:      "Read chapter 4",
		Priority:   "high",
		DueDate:    due,
		AssignedTo: "alex",
	})
	if err != nil {
		log.Fatalf("Couldn't create task: %s", err)
	}

	fmt.Printf("New Task\n\tID: %s\n\tPriority: %s\n\tStatus: %s\n", created.Task.ID, created.Task.Priority, created.Task.Status)

	if err := client.toggleTask(ctx, courseID, created.Task.ID, created.Task.Status); err != nil {
		log.Fatalf("Couldn't toggle task: %s", err)
	}

	if err := client.deleteTask(ctx, courseID, created.Task.ID); err != nil {
		log.Fatalf("Couldn't delete task: %s", err)
	}

	select {
	case <-streamDone:
	case <-time.After(10 * time.Second):
		log.Println("stream still waiting for frames, giving up")
	}
}

type demoClient struct {
	http    *http.Client
	baseURL string
	token   string
}

func (c *demoClient) login(ctx context.Context, userID, name string) (string, error) {
	var res rest.LoginResponse

	err := c.do(ctx, http.MethodPost, "/login", rest.LoginRequest{UserID: userID, Name: name}, &res)
	if err != nil {
		return "", err
	}

	return res.Token, nil
}

func (c *demoClient) createTask(ctx context.Context, courseID string, req rest.CreateTaskRequest) (rest.CreateTaskResponse, error) {
	var res rest.CreateTaskResponse

	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/courses/%s/tasks/", courseID), req, &res)

	return res, err
}

func (c *demoClient) toggleTask(ctx context.Context, courseID, taskID, currentStatus string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/courses/%s/tasks/%s/toggle", courseID, taskID),
		rest.ToggleTaskRequest{CurrentStatus: currentStatus}, nil)
}

func (c *demoClient) deleteTask(ctx context.Context, courseID, taskID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/courses/%s/tasks/%s", courseID, taskID), nil, nil)
}

// tailStream prints frames until frameCount arrive or the stream closes.
func (c *demoClient) tailStream(ctx context.Context, courseID string, frameCount int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf("/courses/%s/tasks/stream", courseID), nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)

	seen := 0

	for scanner.Scan() {
		line := scanner.Text()

		payload, found := strings.CutPrefix(line, "data: ")
		if !found {
			continue
		}

		var frame rest.StreamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return fmt.Errorf("json.Unmarshal %w", err)
		}

		fmt.Printf("Frame %d\n\tLoading: %t\n\tVisible: %d\n\tPending: %d\n\tDone: %d\n",
			seen, frame.Loading, len(frame.Tasks), frame.Counts.Pending, frame.Counts.Done)

		seen++
		if seen == frameCount {
			return nil
		}
	}

	return scanner.Err()
}

func (c *demoClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("json.Encode %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json.Decode %w", err)
	}

	return nil
}

func initTracer() {
	jaegerEndpoint := "http://localhost:14268/api/traces"

	jaegerExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		log.Fatalf("Couldn't initialize jaeger exporter: %s", err)
	}

	stdoutExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("Couldn't initialize stdout exporter: %s", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(stdoutExporter),
		sdktrace.WithBatcher(jaegerExporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
}
