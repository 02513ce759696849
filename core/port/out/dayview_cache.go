package out

import (
	"context"
	"time"
)

// CachePort abstracts the response cache so services stay storage-agnostic.
// GetJSON reports (false, nil) on a miss.
type CachePort interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
