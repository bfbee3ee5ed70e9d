package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studytrack/coursetasks/internal"
)

// SessionStore defines the identity capability consumed by the handlers.
type SessionStore interface {
	Create(ctx context.Context, user internal.User) (string, error)
	Get(ctx context.Context, token string) (internal.User, error)
	Delete(ctx context.Context, token string) error
}

// SessionHandler exposes login, logout and the current identity.
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler instantiates the handler.
func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{
		store: store,
	}
}

// Register connects the handlers to the router.
func (s *SessionHandler) Register(r chi.Router) {
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.Get("/me", s.me)
}

type userKey struct{}

// UserFromContext returns the signed-in identity attached by the
// middleware, reporting whether one is present.
func UserFromContext(ctx context.Context) (internal.User, bool) {
	user, ok := ctx.Value(userKey{}).(internal.User)

	return user, ok
}

// Authenticate resolves the bearer token and attaches the identity to the
// request context. Requests without a valid session are rejected.
func (s *SessionHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			renderErrorResponse(r.Context(), w, "missing session", internal.NewErrorf(internal.ErrorCodeNotFound, "no bearer token"))
			return
		}

		user, err := s.store.Get(r.Context(), token)
		if err != nil {
			renderErrorResponse(r.Context(), w, "unknown session", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// LoginRequest identifies the user signing in. Credential checking lives
// with the external identity provider, this surface only issues sessions.
type LoginRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// LoginResponse carries the opaque session token.
type LoginResponse struct {
	Token string `json:"token"`
}

func (s *SessionHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	if req.UserID == "" {
		renderErrorResponse(r.Context(), w, "invalid request", internal.NewErrorf(internal.ErrorCodeInvalidArgument, "user_id required"))
		return
	}

	token, err := s.store.Create(r.Context(), internal.User{ID: req.UserID, Name: req.Name})
	if err != nil {
		renderErrorResponse(r.Context(), w, "login failed", err)
		return
	}

	renderResponse(w, &LoginResponse{Token: token}, http.StatusCreated)
}

func (s *SessionHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		renderResponse(w, struct{}{}, http.StatusOK)
		return
	}

	if err := s.store.Delete(r.Context(), token); err != nil {
		renderErrorResponse(r.Context(), w, "logout failed", err)
		return
	}

	renderResponse(w, struct{}{}, http.StatusOK)
}

// MeResponse echoes the signed-in identity.
type MeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *SessionHandler) me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		renderErrorResponse(r.Context(), w, "missing session", internal.NewErrorf(internal.ErrorCodeNotFound, "no bearer token"))
		return
	}

	user, err := s.store.Get(r.Context(), token)
	if err != nil {
		renderErrorResponse(r.Context(), w, "unknown session", err)
		return
	}

	renderResponse(w, &MeResponse{ID: user.ID, Name: user.Name}, http.StatusOK)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")

	token, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		return ""
	}

	return token
}
