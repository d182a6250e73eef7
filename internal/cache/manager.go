package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC     fx.Lifecycle
	Config *config.Config
	Logger logger.Logger
}

// Manager is the dual-tier cache for the normalized feed. Redis is
// preferred when configured; every Redis failure is handled per call by
// falling back to the in-process map, so a flapping Redis degrades the
// cache instead of the service.
type Manager struct {
	primary Backend // nil when Redis is not configured
	memory  *MemoryBackend
	ttl     time.Duration
	logger  logger.Logger

	now func() time.Time
}

// New is the fx provider: it builds the manager and ties the Redis
// connection, when there is one, to the application lifecycle.
func New(opts Opts) *Manager {
	m := NewManager(opts.Config, opts.Logger)

	if redisBackend, ok := m.primary.(*RedisBackend); ok {
		opts.LC.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return redisBackend.Close()
			},
		})
	}

	return m
}

// NewManager builds a manager from configuration alone.
func NewManager(cfg *config.Config, log logger.Logger) *Manager {
	m := &Manager{
		memory: NewMemoryBackend(),
		ttl:    DefaultTTL,
		logger: log.WithComponent("Cache"),
		now:    time.Now,
	}

	if cfg.Cache.TTLSeconds > 0 {
		m.ttl = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}

	if rawURL := cfg.Cache.RedisURL; rawURL != "" {
		redisBackend, err := NewRedisBackend(rawURL)
		if err != nil {
			m.logger.Error("Failed to initialize redis, using memory cache only", "error", err)
		} else {
			m.primary = redisBackend
		}
	}

	return m
}

// backends lists the stores to consult, preferred first.
func (m *Manager) backends() []Backend {
	if m.primary != nil {
		return []Backend{m.primary, m.memory}
	}
	return []Backend{m.memory}
}

// Get returns the cached feed, or nil when nothing fresh is stored.
// Reading an expired entry evicts it as a side effect; there is no
// background sweep.
func (m *Manager) Get(ctx context.Context) []domain.SanitizedPost {
	for _, backend := range m.backends() {
		raw, ok, err := backend.Get(ctx, cacheKey)
		if err != nil {
			m.logger.Warn("Cache read failed, trying next tier", "error", err)
			continue
		}
		if !ok {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			m.logger.Warn("Discarding undecodable cache entry", "error", err)
			_ = backend.Del(ctx, cacheKey)
			continue
		}

		if m.age(entry) < m.ttl {
			return entry.Posts
		}

		// Expired: lazily evict and keep looking.
		if err := backend.Del(ctx, cacheKey); err != nil {
			m.logger.Warn("Failed to evict expired cache entry", "error", err)
		}
	}

	return nil
}

// Set stores the feed with the current timestamp. When Redis rejects the
// write the entry lands in the memory tier instead.
func (m *Manager) Set(ctx context.Context, posts []domain.SanitizedPost) {
	entry := Entry{
		Posts:     posts,
		Timestamp: m.now().UnixMilli(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		m.logger.Error("Failed to marshal cache entry", "error", err)
		return
	}

	if m.primary != nil {
		err := m.primary.Set(ctx, cacheKey, raw, m.ttl)
		if err == nil {
			return
		}
		m.logger.Warn("Redis write failed, falling back to memory cache", "error", err)
	}

	if err := m.memory.Set(ctx, cacheKey, raw, m.ttl); err != nil {
		m.logger.Error("Failed to write memory cache", "error", err)
	}
}

// Clear drops the entry from every tier.
func (m *Manager) Clear(ctx context.Context) {
	if m.primary != nil {
		if err := m.primary.Del(ctx, cacheKey); err != nil {
			m.logger.Warn("Redis delete failed", "error", err)
		}
	}
	_ = m.memory.Del(ctx, cacheKey)
}

// Age reports how long ago the stored entry was written. It does not
// apply the TTL; an entry Get has not yet evicted still reports its age.
func (m *Manager) Age(ctx context.Context) (time.Duration, bool) {
	for _, backend := range m.backends() {
		raw, ok, err := backend.Get(ctx, cacheKey)
		if err != nil {
			m.logger.Warn("Cache age read failed, trying next tier", "error", err)
			continue
		}
		if !ok {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		return m.age(entry), true
	}

	return 0, false
}

// IsAvailable reports whether any tier could answer a read right now.
func (m *Manager) IsAvailable() bool {
	return m.primary != nil || m.memory.Len() > 0
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) age(entry Entry) time.Duration {
	return m.now().Sub(time.UnixMilli(entry.Timestamp))
}
