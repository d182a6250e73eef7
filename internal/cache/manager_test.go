package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &config.Config{}
	return NewManager(cfg, logger.New(logger.Opts{}))
}

func testPosts() []domain.SanitizedPost {
	return []domain.SanitizedPost{
		{
			ID:          "101_1",
			Type:        domain.PostTypePhoto,
			MediaURL:    "https://cdn.example.com/a.jpg",
			CreatedTime: "2025-06-01T10:00:00+0000",
			SourceLink:  "https://facebook.com/101_1",
		},
		{
			ID:           "101_2",
			Type:         domain.PostTypeVideo,
			MediaURL:     "https://cdn.example.com/b.mp4",
			ThumbnailURL: "https://cdn.example.com/b.jpg",
			CreatedTime:  "2025-06-02T10:00:00+0000",
			SourceLink:   "https://facebook.com/101_2",
		},
	}
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)
	posts := testPosts()

	m.Set(ctx, posts)

	got := m.Get(ctx)
	if !reflect.DeepEqual(got, posts) {
		t.Fatalf("Get returned %+v, want %+v", got, posts)
	}
}

func TestManagerGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)
	m.Set(ctx, testPosts())

	first := m.Get(ctx)
	second := m.Get(ctx)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive Get calls disagree: %+v vs %+v", first, second)
	}
}

func TestManagerEmptyReturnsNil(t *testing.T) {
	m := testManager(t)
	if got := m.Get(context.Background()); got != nil {
		t.Fatalf("Get on empty cache = %+v, want nil", got)
	}
	if _, ok := m.Age(context.Background()); ok {
		t.Fatal("Age on empty cache reported an entry")
	}
}

func TestManagerDefaultTTL(t *testing.T) {
	m := testManager(t)
	if m.TTL() != 900*time.Second {
		t.Fatalf("default TTL = %s, want 900s", m.TTL())
	}
}

func TestManagerExpiry(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	base := time.Now()
	m.now = func() time.Time { return base }
	m.Set(ctx, testPosts())

	// Just inside the TTL the entry is still served.
	m.now = func() time.Time { return base.Add(899 * time.Second) }
	if got := m.Get(ctx); got == nil {
		t.Fatal("Get at 899s returned nil, want cached posts")
	}

	// Just past the TTL the entry is treated as absent and evicted.
	m.now = func() time.Time { return base.Add(901 * time.Second) }
	if got := m.Get(ctx); got != nil {
		t.Fatalf("Get at 901s = %+v, want nil", got)
	}

	// The read evicted the entry, so the age is gone too.
	if _, ok := m.Age(ctx); ok {
		t.Fatal("Age after expiry eviction reported an entry")
	}
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)
	m.Set(ctx, testPosts())

	m.Clear(ctx)

	if got := m.Get(ctx); got != nil {
		t.Fatalf("Get after Clear = %+v, want nil", got)
	}
}

func TestManagerAge(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	base := time.Now()
	m.now = func() time.Time { return base }
	m.Set(ctx, testPosts())

	m.now = func() time.Time { return base.Add(42 * time.Second) }
	age, ok := m.Age(ctx)
	if !ok {
		t.Fatal("Age reported no entry")
	}
	if age != 42*time.Second {
		t.Fatalf("Age = %s, want 42s", age)
	}
}

func TestManagerIsAvailable(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	if m.IsAvailable() {
		t.Fatal("empty memory-only cache reported available")
	}

	m.Set(ctx, testPosts())
	if !m.IsAvailable() {
		t.Fatal("populated cache reported unavailable")
	}
}

// failingBackend errors on every call, standing in for an unreachable
// Redis.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingBackend) Del(context.Context, string) error {
	return errors.New("connection refused")
}

func TestManagerFallsBackWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)
	m.primary = failingBackend{}

	posts := testPosts()
	m.Set(ctx, posts)

	got := m.Get(ctx)
	if !reflect.DeepEqual(got, posts) {
		t.Fatalf("Get with failing primary = %+v, want %+v", got, posts)
	}

	if _, ok := m.Age(ctx); !ok {
		t.Fatal("Age with failing primary reported no entry")
	}
}
