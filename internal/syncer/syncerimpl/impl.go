package syncerimpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/wedstudio/pagefeed/internal/cache"
	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/internal/repositories/synchistory"
	"github.com/wedstudio/pagefeed/internal/syncer"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/errors"
	"github.com/wedstudio/pagefeed/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Facebook    facebook.Client
	Cache       *cache.Manager
	HistoryRepo synchistory.Repository
	Logger      logger.Logger
	Config      *config.Config
}

type SyncerImpl struct {
	Facebook    facebook.Client
	Cache       *cache.Manager
	HistoryRepo synchistory.Repository
	Logger      logger.Logger
	Config      *config.Config
	Scheduler   gocron.Scheduler
}

func New(opts Opts) *SyncerImpl {
	return &SyncerImpl{
		Facebook:    opts.Facebook,
		Cache:       opts.Cache,
		HistoryRepo: opts.HistoryRepo,
		Logger:      opts.Logger.WithComponent("Syncer"),
		Config:      opts.Config,
	}
}

var _ syncer.Client = (*SyncerImpl)(nil)

// credentials returns the configured page id and access token, or
// ErrNotConfigured before any network call is made.
func (s *SyncerImpl) credentials() (string, string, error) {
	pageID := s.Config.Facebook.PageID
	accessToken := s.Config.Facebook.AccessToken
	if pageID == "" || accessToken == "" {
		return "", "", errors.ErrNotConfigured
	}
	return pageID, accessToken, nil
}

// Refresh clears the cache, refetches the feed, and repopulates the
// cache. An empty result is returned but not cached, so a likely
// erroneous empty feed cannot shadow a later good one.
func (s *SyncerImpl) Refresh(ctx context.Context) ([]domain.SanitizedPost, error) {
	s.Cache.Clear(ctx)

	posts, err := s.FetchAndNormalize(ctx)
	if err != nil {
		return nil, err
	}

	if len(posts) > 0 {
		s.Cache.Set(ctx, posts)
	}

	return posts, nil
}

// Sync runs Refresh and appends a sync-history record whatever the
// outcome. posts_added mirrors posts_found: the feed is replaced
// wholesale on every sync, there is no diff against the previous set.
func (s *SyncerImpl) Sync(ctx context.Context) (domain.SyncResult, error) {
	posts, err := s.Refresh(ctx)
	if err != nil {
		if _, histErr := s.HistoryRepo.Create(ctx, domain.SyncEntry{
			Status: domain.SyncStatusError,
			Error:  err.Error(),
		}); histErr != nil {
			s.Logger.Error("Failed to record failed sync", "error", histErr)
		}
		return domain.SyncResult{}, err
	}

	if _, histErr := s.HistoryRepo.Create(ctx, domain.SyncEntry{
		Status:     domain.SyncStatusSuccess,
		PostsFound: len(posts),
		PostsAdded: len(posts),
	}); histErr != nil {
		s.Logger.Error("Failed to record successful sync", "error", histErr)
	}

	s.Logger.Info("Sync completed", "posts_found", len(posts))

	return domain.SyncResult{Posts: posts, PostsFound: len(posts)}, nil
}

// ScheduleSync starts the background sync job when a cron expression is
// configured. With no expression the feed is only refreshed on demand.
func (s *SyncerImpl) ScheduleSync(ctx context.Context) error {
	expr := s.Config.Sync.Cron
	if expr == "" {
		s.Logger.Info("No sync schedule configured, background sync disabled")
		return nil
	}

	if s.Scheduler == nil {
		scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
		if err != nil {
			return fmt.Errorf("failed to create sync scheduler: %w", err)
		}
		s.Scheduler = scheduler
	}

	_, err := s.Scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			s.Logger.Info("Running scheduled sync")

			syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			if _, err := s.Sync(syncCtx); err != nil {
				s.Logger.Error("Scheduled sync failed", "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}

	s.Scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping sync scheduler")
		if err := s.Scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down sync scheduler", "error", err)
		}
	}()

	return nil
}
