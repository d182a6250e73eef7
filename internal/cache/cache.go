package cache

import (
	"context"
	"time"

	"github.com/wedstudio/pagefeed/internal/domain"
)

// cacheKey is the single slot the normalized feed lives under.
const cacheKey = "fb_posts"

// DefaultTTL is used when no TTL override is configured.
const DefaultTTL = 900 * time.Second

// Entry is the serialized cache payload. Timestamp is epoch milliseconds
// so blobs written by earlier deployments stay readable.
type Entry struct {
	Posts     []domain.SanitizedPost `json:"posts"`
	Timestamp int64                  `json:"timestamp"`
}

// Backend is the capability a cache store has to offer. Implementations
// must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
