package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

// TokenKeyPrefix is the Redis key prefix for stored provider tokens.
const TokenKeyPrefix = "calendar:token:"

// RedisCredentialStore holds provider OAuth tokens keyed by user and
// provider kind. Token acquisition and refresh happen in the external
// OAuth flow; this store only hands already-valid tokens to fetchers.
type RedisCredentialStore struct {
	client *redis.Client
}

// NewRedisCredentialStore creates a new Redis credential store.
func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{client: client}
}

func tokenKey(userID string, kind domain.SourceKind) string {
	return fmt.Sprintf("%s%s:%s", TokenKeyPrefix, userID, kind)
}

// Token loads the stored token for a user and provider kind.
// Returns ErrNoCredentials when nothing is stored.
func (s *RedisCredentialStore) Token(ctx context.Context, userID string, kind domain.SourceKind) (*oauth2.Token, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}

	data, err := s.client.Get(ctx, tokenKey(userID, kind)).Result()
	if err == redis.Nil {
		return nil, out.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provider token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to decode provider token: %w", err)
	}
	return &token, nil
}

// SaveToken stores a token for a user and provider kind.
func (s *RedisCredentialStore) SaveToken(ctx context.Context, userID string, kind domain.SourceKind, token *oauth2.Token) error {
	if userID == "" {
		return errors.New("userID cannot be empty")
	}
	if token == nil {
		return errors.New("token cannot be nil")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode provider token: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(userID, kind), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store provider token: %w", err)
	}
	return nil
}

var _ out.CredentialStore = (*RedisCredentialStore)(nil)
