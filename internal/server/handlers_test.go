package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/wedstudio/pagefeed/internal/cache"
	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/internal/syncer"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
)

type fakeSyncer struct {
	posts    []domain.SanitizedPost
	err      error
	onFetch  func()
	synced   int
	refreshs int
}

var _ syncer.Client = (*fakeSyncer)(nil)

func (f *fakeSyncer) FetchAndNormalize(ctx context.Context) ([]domain.SanitizedPost, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.posts, f.err
}

func (f *fakeSyncer) Refresh(ctx context.Context) ([]domain.SanitizedPost, error) {
	f.refreshs++
	return f.posts, f.err
}

func (f *fakeSyncer) Sync(ctx context.Context) (domain.SyncResult, error) {
	f.synced++
	if f.err != nil {
		return domain.SyncResult{}, f.err
	}
	return domain.SyncResult{Posts: f.posts, PostsFound: len(f.posts)}, nil
}

func (f *fakeSyncer) ScheduleSync(ctx context.Context) error { return nil }

type fakeGraph struct {
	probeErr error
	token    string
	tokenErr error
}

var _ facebook.Client = (*fakeGraph)(nil)

func (f *fakeGraph) FetchPosts(ctx context.Context, pageID, accessToken string) ([]domain.RawPost, error) {
	return nil, f.probeErr
}

func (f *fakeGraph) FetchAttachments(ctx context.Context, postID, accessToken string) ([]domain.Attachment, error) {
	return nil, nil
}

func (f *fakeGraph) ExchangeToken(ctx context.Context, shortLivedToken string) (string, error) {
	return f.token, f.tokenErr
}

type fakeHistory struct {
	entries []*domain.SyncEntry
	err     error
}

func (f *fakeHistory) Create(ctx context.Context, entry domain.SyncEntry) (*domain.SyncEntry, error) {
	return &entry, nil
}

func (f *fakeHistory) Latest(ctx context.Context, limit int) ([]*domain.SyncEntry, error) {
	return f.entries, f.err
}

func (f *fakeHistory) LatestSuccess(ctx context.Context) (*domain.SyncEntry, error) {
	if len(f.entries) == 0 {
		return nil, errors.New("not found")
	}
	return f.entries[0], nil
}

func (f *fakeHistory) TrimToNewest(ctx context.Context, keep int) (int64, error) {
	return 0, nil
}

type fixture struct {
	handler *Handler
	router  http.Handler
	cache   *cache.Manager
	syncer  *fakeSyncer
	graph   *fakeGraph
	history *fakeHistory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Facebook.PageID = "101"
	cfg.Facebook.AccessToken = "tok"

	log := logger.New(logger.Opts{})

	f := &fixture{
		cache:   cache.NewManager(cfg, log),
		syncer:  &fakeSyncer{},
		graph:   &fakeGraph{},
		history: &fakeHistory{},
	}

	f.handler = &Handler{
		config:   cfg,
		cache:    f.cache,
		syncer:   f.syncer,
		facebook: f.graph,
		history:  f.history,
		logger:   log,
	}
	f.router = NewRouter(f.handler, log)

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func samplePosts() []domain.SanitizedPost {
	return []domain.SanitizedPost{
		{ID: "101_1", Type: domain.PostTypePhoto, MediaURL: "https://cdn.example.com/a.jpg", CreatedTime: "t", SourceLink: "https://facebook.com/101_1"},
	}
}

func TestFetchWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	f.handler.config = &config.Config{}

	rec := f.do(t, http.MethodGet, "/api/fb/fetch", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	resp := decode[postsResponse](t, rec)
	if !strings.Contains(resp.Error, "not configured") {
		t.Fatalf("error = %q, want configuration message", resp.Error)
	}
}

func TestFetchCacheHit(t *testing.T) {
	f := newFixture(t)
	f.cache.Set(context.Background(), samplePosts())

	rec := f.do(t, http.MethodGet, "/api/fb/fetch", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[postsResponse](t, rec)
	if !resp.Cached {
		t.Fatal("cached = false, want true")
	}
	if resp.CacheAgeSeconds == nil {
		t.Fatal("cache_age_seconds missing on a cache hit")
	}
	if len(resp.Posts) != 1 || resp.Posts[0].ID != "101_1" {
		t.Fatalf("unexpected posts: %+v", resp.Posts)
	}
}

func TestFetchCacheMissPopulatesCache(t *testing.T) {
	f := newFixture(t)
	f.syncer.posts = samplePosts()

	rec := f.do(t, http.MethodGet, "/api/fb/fetch", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[postsResponse](t, rec)
	if resp.Cached {
		t.Fatal("cached = true on a miss")
	}
	if len(resp.Posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(resp.Posts))
	}

	if cached := f.cache.Get(context.Background()); len(cached) != 1 {
		t.Fatalf("cache holds %d posts after miss, want 1", len(cached))
	}
}

func TestFetchFailureWithEmptyCacheIs500(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = errors.New("facebook api error: 500 - upstream down")

	rec := f.do(t, http.MethodGet, "/api/fb/fetch", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	resp := decode[postsResponse](t, rec)
	if !strings.Contains(resp.Error, "upstream down") {
		t.Fatalf("error = %q, want the raw upstream message", resp.Error)
	}
	if resp.Posts == nil || len(resp.Posts) != 0 {
		t.Fatalf("posts = %+v, want empty array", resp.Posts)
	}
}

func TestFetchFailureServesCacheFilledMeanwhile(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = errors.New("boom")
	// A concurrent refresh lands between the miss and the error path.
	f.syncer.onFetch = func() {
		f.cache.Set(context.Background(), samplePosts())
	}

	rec := f.do(t, http.MethodGet, "/api/fb/fetch", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[postsResponse](t, rec)
	if !resp.Cached {
		t.Fatal("cached = false, want stale-cache fallback")
	}
	if resp.Error == "" {
		t.Fatal("fallback response carries no error note")
	}
}

func TestForceRefresh(t *testing.T) {
	f := newFixture(t)
	f.syncer.posts = samplePosts()

	rec := f.do(t, http.MethodPost, "/api/fb/fetch", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.syncer.refreshs != 1 {
		t.Fatalf("Refresh called %d times, want 1", f.syncer.refreshs)
	}

	resp := decode[postsResponse](t, rec)
	if resp.Cached {
		t.Fatal("cached = true on a forced refresh")
	}
}

func TestSyncEndpoint(t *testing.T) {
	f := newFixture(t)
	f.syncer.posts = samplePosts()

	rec := f.do(t, http.MethodPost, "/api/fb/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.syncer.synced != 1 {
		t.Fatalf("Sync called %d times, want 1", f.syncer.synced)
	}
}

func TestSyncEndpointFailure(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = errors.New("rate limited")

	rec := f.do(t, http.MethodPost, "/api/fb/sync", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSyncHistoryEndpoint(t *testing.T) {
	f := newFixture(t)
	f.history.entries = []*domain.SyncEntry{
		{ID: "sync-2", Status: domain.SyncStatusSuccess, PostsFound: 3, PostsAdded: 3, Timestamp: time.Now()},
		{ID: "sync-1", Status: domain.SyncStatusError, Error: "boom", Timestamp: time.Now().Add(-time.Hour)},
	}

	rec := f.do(t, http.MethodGet, "/api/fb/sync/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[historyResponse](t, rec)
	if !resp.Success {
		t.Fatal("success = false")
	}
	if len(resp.History) != 2 || resp.History[0].ID != "sync-2" {
		t.Fatalf("unexpected history: %+v", resp.History)
	}
}

func TestStatusConnected(t *testing.T) {
	f := newFixture(t)
	f.history.entries = []*domain.SyncEntry{
		{ID: "sync-1", Status: domain.SyncStatusSuccess, Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
	}

	rec := f.do(t, http.MethodGet, "/api/fb/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[statusResponse](t, rec)
	if !resp.Success || !resp.Status.Connected {
		t.Fatalf("unexpected status: %+v", resp.Status)
	}
	if resp.Status.PageID != "101" {
		t.Fatalf("page_id = %q, want 101", resp.Status.PageID)
	}
	if resp.Status.LastSync == "" {
		t.Fatal("last_sync missing despite a successful sync on record")
	}
}

func TestStatusProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.graph.probeErr = errors.New("facebook api error: 401 - Invalid OAuth access token")

	rec := f.do(t, http.MethodGet, "/api/fb/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when disconnected", rec.Code)
	}

	resp := decode[statusResponse](t, rec)
	if resp.Status.Connected {
		t.Fatal("connected = true despite probe failure")
	}
	if !strings.Contains(resp.Status.Error, "Invalid OAuth") {
		t.Fatalf("error = %q, want the probe error", resp.Status.Error)
	}
}

func TestStatusWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	f.handler.config = &config.Config{}

	rec := f.do(t, http.MethodGet, "/api/fb/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[statusResponse](t, rec)
	if resp.Status.Connected {
		t.Fatal("connected = true without credentials")
	}
}

func TestExchangeTokenEndpoint(t *testing.T) {
	f := newFixture(t)
	f.graph.token = "long-lived"

	rec := f.do(t, http.MethodPost, "/api/fb/token", `{"access_token":"short"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[tokenResponse](t, rec)
	if !resp.Success || resp.AccessToken != "long-lived" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExchangeTokenRequiresBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/fb/token", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	f := newFixture(t)
	f.syncer.posts = samplePosts()

	var limited bool
	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/api/fb/fetch", "")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("5 rapid refreshes from one IP were never limited")
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", rec.Body.String())
	}
}
