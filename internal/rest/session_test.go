package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/studytrack/coursetasks/internal"
)

func authRequest(t *testing.T, target, authHeader string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	return req, httptest.NewRecorder()
}

type fakeSessionStore struct {
	createFn func(ctx context.Context, user internal.User) (string, error)
	getFn    func(ctx context.Context, token string) (internal.User, error)
	deleteFn func(ctx context.Context, token string) error
}

func (s *fakeSessionStore) Create(ctx context.Context, user internal.User) (string, error) {
	return s.createFn(ctx, user)
}
func (s *fakeSessionStore) Get(ctx context.Context, token string) (internal.User, error) {
	return s.getFn(ctx, token)
}
func (s *fakeSessionStore) Delete(ctx context.Context, token string) error {
	return s.deleteFn(ctx, token)
}

func TestLogin_IssuesToken(t *testing.T) {
	store := &fakeSessionStore{
		createFn: func(_ context.Context, user internal.User) (string, error) {
			if user.ID != "student-1" {
				t.Fatalf("Create(user.ID)=%q, want student-1", user.ID)
			}

			return "tok-1", nil
		},
	}

	r := chi.NewRouter()
	NewSessionHandler(store).Register(r)

	rec := doRequest(t, r, http.MethodPost, "/login", LoginRequest{UserID: "student-1", Name: "Alex"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusCreated)
	}

	var res LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("json.Decode() err=%v", err)
	}

	if res.Token != "tok-1" {
		t.Fatalf("token=%q, want tok-1", res.Token)
	}
}

func TestLogin_MissingUserID(t *testing.T) {
	r := chi.NewRouter()
	NewSessionHandler(&fakeSessionStore{}).Register(r)

	rec := doRequest(t, r, http.MethodPost, "/login", LoginRequest{Name: "Alex"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthenticate(t *testing.T) {
	store := &fakeSessionStore{
		getFn: func(_ context.Context, token string) (internal.User, error) {
			if token != "tok-1" {
				return internal.User{}, internal.NewErrorf(internal.ErrorCodeNotFound, "session")
			}

			return internal.User{ID: "student-1", Name: "Alex"}, nil
		},
	}

	handler := NewSessionHandler(store)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(handler.Authenticate)
		r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
			user, ok := UserFromContext(req.Context())
			if !ok {
				t.Fatalf("no user attached to the request context")
			}

			renderResponse(w, &MeResponse{ID: user.ID, Name: user.Name}, http.StatusOK)
		})
	})

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer tok-1", http.StatusOK},
		{"unknown token", "Bearer nope", http.StatusNotFound},
		{"missing header", "", http.StatusNotFound},
		{"wrong scheme", "Basic tok-1", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := authRequest(t, "/whoami", tc.authHeader)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestLogout_WithoutTokenIsOK(t *testing.T) {
	r := chi.NewRouter()
	NewSessionHandler(&fakeSessionStore{}).Register(r)

	rec := doRequest(t, r, http.MethodPost, "/logout", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMe(t *testing.T) {
	store := &fakeSessionStore{
		getFn: func(context.Context, string) (internal.User, error) {
			return internal.User{ID: "student-1", Name: "Alex"}, nil
		},
	}

	r := chi.NewRouter()
	NewSessionHandler(store).Register(r)

	req, rec := authRequest(t, "/me", "Bearer tok-1")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusOK)
	}

	var res MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("json.Decode() err=%v", err)
	}

	if res.ID != "student-1" || res.Name != "Alex" {
		t.Fatalf("me=%+v, want student-1 Alex", res)
	}
}
