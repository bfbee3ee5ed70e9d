package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/studytrack/coursetasks/internal/snapshot"
	"github.com/studytrack/coursetasks/internal/view"
)

// StreamHandler serves the live view over Server-Sent Events. Each connected
// client holds its own session, and with it the single feed subscription for
// the course it watches; disconnecting tears the subscription down.
type StreamHandler struct {
	feed   snapshot.Subscriber
	logger *zap.Logger
}

// NewStreamHandler instantiates the handler.
func NewStreamHandler(feed snapshot.Subscriber, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		feed:   feed,
		logger: logger,
	}
}

// Register connects the handler to the router.
func (s *StreamHandler) Register(r chi.Router) {
	r.Get("/courses/{courseID}/tasks/stream", s.stream)
}

// StreamFrame is one pushed view: the visible list under the active query
// plus the whole-course counts and assignee values.
type StreamFrame struct {
	Loading   bool        `json:"loading"`
	Tasks     []Task      `json:"tasks"`
	Counts    view.Counts `json:"counts"`
	Assignees []string    `json:"assignees"`
}

func (s *StreamHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	courseID := chi.URLParam(r, "courseID")

	sess := snapshot.NewSession(s.feed)
	defer sess.Close()

	sess.SetQuery(patchFromRequest(r))

	// Register before subscribing so the initial snapshot cannot slip
	// between first frame and first wait.
	updates := sess.Watch(ctx)

	if err := sess.SwitchCourse(ctx, courseID); err != nil {
		renderErrorResponse(ctx, w, "subscribe failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The initial snapshot already queued a watch signal, the loop pushes
	// the first frame from it.
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sess.Err(); err != nil {
				s.logger.Warn("stream feed error", zap.String("course_id", courseID), zap.Error(err))
				fmt.Fprintf(w, "event: error\ndata: %q\n\n", "feed closed, reconnect to resume")
				flusher.Flush()

				return
			}

			if !s.push(w, flusher, sess) {
				return
			}
		}
	}
}

func (s *StreamHandler) push(w http.ResponseWriter, flusher http.Flusher, sess *snapshot.Session) bool {
	res, loading := sess.View()

	frame := StreamFrame{
		Loading:   loading,
		Tasks:     newTasks(res.Visible),
		Counts:    res.Counts,
		Assignees: sess.Assignees(),
	}

	b, err := json.Marshal(frame)
	if err != nil {
		s.logger.Warn("stream marshal", zap.Error(err))

		return false
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return false
	}

	flusher.Flush()

	return true
}

func patchFromRequest(r *http.Request) view.Patch {
	q := queryFromRequest(r)

	return view.Patch{
		Status:   &q.Status,
		Priority: &q.Priority,
		Assignee: &q.Assignee,
		SortBy:   &q.SortBy,
	}
}
