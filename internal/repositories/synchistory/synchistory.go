package synchistory

import (
	"context"
	"errors"

	"github.com/wedstudio/pagefeed/internal/domain"
)

var ErrNotFound = errors.New("sync history entry not found")

// MaxEntries caps the audit trail; inserts trim everything older.
const MaxEntries = 50

type Repository interface {
	// Create appends a new sync audit record and trims the trail to
	// MaxEntries.
	Create(ctx context.Context, entry domain.SyncEntry) (*domain.SyncEntry, error)

	// Latest returns up to limit entries, most recent first.
	Latest(ctx context.Context, limit int) ([]*domain.SyncEntry, error)

	// LatestSuccess returns the newest successful entry.
	LatestSuccess(ctx context.Context) (*domain.SyncEntry, error)

	// TrimToNewest deletes all but the newest keep entries and reports
	// how many rows went away.
	TrimToNewest(ctx context.Context, keep int) (int64, error)
}
