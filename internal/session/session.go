// Package session provides the identity boundary: opaque tokens resolved to
// a signed-in user. The core only consumes presence or absence of one.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/studytrack/coursetasks/internal"
)

const keyPrefix = "session:"

// Store keeps sessions in Redis with a sliding expiration.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore instantiates the Store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    24 * time.Hour,
	}
}

// Create issues a new opaque token for the user.
func (s *Store) Create(ctx context.Context, user internal.User) (string, error) {
	b, err := json.Marshal(user)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Marshal")
	}

	token := uuid.NewString()

	if err := s.client.Set(ctx, keyPrefix+token, b, s.ttl).Err(); err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Set")
	}

	return token, nil
}

// Get resolves a token, refreshing its expiration.
func (s *Store) Get(ctx context.Context, token string) (internal.User, error) {
	b, err := s.client.GetEx(ctx, keyPrefix+token, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return internal.User{}, internal.NewErrorf(internal.ErrorCodeNotFound, "unknown session")
		}

		return internal.User{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.GetEx")
	}

	var user internal.User
	if err := json.Unmarshal(b, &user); err != nil {
		return internal.User{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
	}

	return user, nil
}

// Delete removes a session, logging out is idempotent.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Del")
	}

	return nil
}
