package server

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/wedstudio/pagefeed/internal/cache"
	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/internal/repositories/synchistory"
	"github.com/wedstudio/pagefeed/internal/syncer"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
)

const errCredentialsMissing = "Facebook API credentials not configured"

type Handler struct {
	config   *config.Config
	cache    *cache.Manager
	syncer   syncer.Client
	facebook facebook.Client
	history  synchistory.Repository
	logger   logger.Logger
}

type postsResponse struct {
	Posts           []domain.SanitizedPost `json:"posts"`
	Cached          bool                   `json:"cached"`
	CacheAgeSeconds *float64               `json:"cache_age_seconds,omitempty"`
	LastUpdated     string                 `json:"last_updated,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

type statusResponse struct {
	Success bool           `json:"success"`
	Status  facebookStatus `json:"status"`
}

type facebookStatus struct {
	Connected bool   `json:"connected"`
	PageID    string `json:"page_id,omitempty"`
	LastSync  string `json:"last_sync,omitempty"`
	Error     string `json:"error,omitempty"`
}

type historyResponse struct {
	Success bool                `json:"success"`
	History []*domain.SyncEntry `json:"history"`
	Error   string              `json:"error,omitempty"`
}

type tokenRequest struct {
	AccessToken string `json:"access_token"`
}

type tokenResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

func nonNil(posts []domain.SanitizedPost) []domain.SanitizedPost {
	if posts == nil {
		return []domain.SanitizedPost{}
	}
	return posts
}

func (h *Handler) credentialsConfigured() bool {
	return h.config.Facebook.PageID != "" && h.config.Facebook.AccessToken != ""
}

// FetchPosts is the read-through path: serve the cache when it is fresh,
// refetch on a miss, and degrade to whatever the cache still holds when
// the upstream fetch fails.
func (h *Handler) FetchPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.credentialsConfigured() {
		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: errCredentialsMissing,
		})
		return
	}

	if cached := h.cache.Get(ctx); len(cached) > 0 {
		resp := postsResponse{
			Posts:       cached,
			Cached:      true,
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
		}
		if age, ok := h.cache.Age(ctx); ok {
			seconds := age.Seconds()
			resp.CacheAgeSeconds = &seconds
		}
		respondJSON(w, h.logger, http.StatusOK, resp)
		return
	}

	posts, err := h.syncer.FetchAndNormalize(ctx)
	if err != nil {
		h.logger.Error("Feed fetch failed", "error", err)

		// A concurrent refresh may have repopulated the cache; serve it
		// rather than surfacing the error.
		if cached := h.cache.Get(ctx); len(cached) > 0 {
			respondJSON(w, h.logger, http.StatusOK, postsResponse{
				Posts:       cached,
				Cached:      true,
				Error:       "Failed to refresh, returning cached data",
				LastUpdated: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: err.Error(),
		})
		return
	}

	if len(posts) > 0 {
		h.cache.Set(ctx, posts)
	}

	respondJSON(w, h.logger, http.StatusOK, postsResponse{
		Posts:       nonNil(posts),
		Cached:      false,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	})
}

// RefreshPosts drops the cache and refetches unconditionally.
func (h *Handler) RefreshPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.credentialsConfigured() {
		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: errCredentialsMissing,
		})
		return
	}

	posts, err := h.syncer.Refresh(ctx)
	if err != nil {
		h.logger.Error("Forced refresh failed", "error", err)
		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: err.Error(),
		})
		return
	}

	respondJSON(w, h.logger, http.StatusOK, postsResponse{
		Posts:       nonNil(posts),
		Cached:      false,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	})
}

// SyncPosts is RefreshPosts plus an audit record, success or not.
func (h *Handler) SyncPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.credentialsConfigured() {
		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: errCredentialsMissing,
		})
		return
	}

	result, err := h.syncer.Sync(ctx)
	if err != nil {
		respondJSON(w, h.logger, http.StatusInternalServerError, postsResponse{
			Posts: []domain.SanitizedPost{},
			Error: err.Error(),
		})
		return
	}

	respondJSON(w, h.logger, http.StatusOK, postsResponse{
		Posts:       nonNil(result.Posts),
		Cached:      false,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	})
}

// SyncHistory lists the capped audit trail, most recent first.
func (h *Handler) SyncHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Latest(r.Context(), synchistory.MaxEntries)
	if err != nil {
		respondJSON(w, h.logger, http.StatusInternalServerError, historyResponse{
			Error: err.Error(),
		})
		return
	}

	if entries == nil {
		entries = []*domain.SyncEntry{}
	}

	respondJSON(w, h.logger, http.StatusOK, historyResponse{
		Success: true,
		History: entries,
	})
}

// Status probes the Graph API with a live fetch. The cache is never
// touched here, a status check must not interfere with the feed.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.credentialsConfigured() {
		respondJSON(w, h.logger, http.StatusOK, statusResponse{
			Success: true,
			Status:  facebookStatus{Connected: false, Error: errCredentialsMissing},
		})
		return
	}

	pageID := h.config.Facebook.PageID

	if _, err := h.facebook.FetchPosts(ctx, pageID, h.config.Facebook.AccessToken); err != nil {
		respondJSON(w, h.logger, http.StatusOK, statusResponse{
			Success: true,
			Status:  facebookStatus{Connected: false, PageID: pageID, Error: err.Error()},
		})
		return
	}

	status := facebookStatus{Connected: true, PageID: pageID}
	if latest, err := h.history.LatestSuccess(ctx); err == nil {
		status.LastSync = latest.Timestamp.UTC().Format(time.RFC3339)
	}

	respondJSON(w, h.logger, http.StatusOK, statusResponse{
		Success: true,
		Status:  status,
	})
}

// ExchangeToken swaps a short-lived token for a long-lived one.
func (h *Handler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		respondJSON(w, h.logger, http.StatusBadRequest, tokenResponse{
			Error: "access_token is required",
		})
		return
	}

	token, err := h.facebook.ExchangeToken(r.Context(), req.AccessToken)
	if err != nil {
		respondJSON(w, h.logger, http.StatusInternalServerError, tokenResponse{
			Error: err.Error(),
		})
		return
	}

	respondJSON(w, h.logger, http.StatusOK, tokenResponse{
		Success:     true,
		AccessToken: token,
	})
}

// Healthz reports process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}
