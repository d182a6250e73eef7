package syncer

import (
	"context"

	"github.com/wedstudio/pagefeed/internal/domain"
)

// Client turns the page's raw Graph API feed into the sanitized feed the
// site serves, and keeps the cache and the sync audit trail up to date.
type Client interface {
	// FetchAndNormalize pulls the raw post list and normalizes it,
	// dropping posts without displayable media. The cache is untouched.
	FetchAndNormalize(ctx context.Context) ([]domain.SanitizedPost, error)

	// Refresh clears the cache, refetches, and repopulates the cache
	// when the result is non-empty.
	Refresh(ctx context.Context) ([]domain.SanitizedPost, error)

	// Sync runs Refresh and records a sync-history entry whatever the
	// outcome.
	Sync(ctx context.Context) (domain.SyncResult, error)

	// ScheduleSync starts the optional background sync job.
	ScheduleSync(ctx context.Context) error
}
