// Package persistence holds the Redis-backed stores the engine reads
// user state from. Settings and credentials are written by external
// collaborators (settings management, OAuth flows); this engine only
// consumes them, so the adapters stay thin.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"dayview_server/core/domain"
)

// SettingsKeyPrefix is the Redis key prefix for per-user calendar settings.
const SettingsKeyPrefix = "calendar:settings:"

// RedisSettingsAdapter stores UserCalendarSettings as JSON blobs.
type RedisSettingsAdapter struct {
	client *redis.Client
}

// NewRedisSettingsAdapter creates a new Redis settings store.
func NewRedisSettingsAdapter(client *redis.Client) *RedisSettingsAdapter {
	return &RedisSettingsAdapter{client: client}
}

// GetSettings loads the stored settings for a user. A user with no stored
// settings gets the empty value, not an error; the resolver's legacy
// defaults take over from there.
func (s *RedisSettingsAdapter) GetSettings(ctx context.Context, userID string) (*domain.UserCalendarSettings, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}

	data, err := s.client.Get(ctx, SettingsKeyPrefix+userID).Result()
	if err == redis.Nil {
		return &domain.UserCalendarSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar settings: %w", err)
	}

	var settings domain.UserCalendarSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode calendar settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings stores the settings for a user, replacing any prior value.
func (s *RedisSettingsAdapter) SaveSettings(ctx context.Context, userID string, settings *domain.UserCalendarSettings) error {
	if userID == "" {
		return errors.New("userID cannot be empty")
	}
	if settings == nil {
		return errors.New("settings cannot be nil")
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode calendar settings: %w", err)
	}
	if err := s.client.Set(ctx, SettingsKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store calendar settings: %w", err)
	}
	return nil
}

var _ domain.SettingsRepository = (*RedisSettingsAdapter)(nil)
