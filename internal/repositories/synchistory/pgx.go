package synchistory

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wedstudio/pagefeed/internal/domain"
	"github.com/wedstudio/pagefeed/internal/repositories"
	"github.com/wedstudio/pagefeed/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

type Pgx struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pg *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pg:     pg,
		logger: logger.WithComponent("SyncHistoryRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

// Create appends a new sync audit record and trims the trail to MaxEntries.
func (p *Pgx) Create(ctx context.Context, entry domain.SyncEntry) (*domain.SyncEntry, error) {
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query, args, err := repositories.SqBuilder.
		Insert("sync_history").
		Columns("id", "status", "posts_found", "posts_added", "error", "created_at").
		Values(entry.ID, entry.Status, entry.PostsFound, entry.PostsAdded, entry.Error, entry.Timestamp).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	if _, err := p.pg.Exec(ctx, query, args...); err != nil {
		return nil, err
	}

	if deleted, err := p.TrimToNewest(ctx, MaxEntries); err != nil {
		p.logger.Warn("Failed to trim sync history", "error", err)
	} else if deleted > 0 {
		p.logger.Debug("Trimmed sync history", "rows_deleted", deleted)
	}

	return &entry, nil
}

// Latest returns up to limit entries, most recent first.
func (p *Pgx) Latest(ctx context.Context, limit int) ([]*domain.SyncEntry, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "status", "posts_found", "posts_added", "error", "created_at").
		From("sync_history").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SyncEntry
	for rows.Next() {
		var entry domain.SyncEntry
		if err := rows.Scan(&entry.ID, &entry.Status, &entry.PostsFound, &entry.PostsAdded, &entry.Error, &entry.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// LatestSuccess returns the newest successful entry.
func (p *Pgx) LatestSuccess(ctx context.Context) (*domain.SyncEntry, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "status", "posts_found", "posts_added", "error", "created_at").
		From("sync_history").
		Where(sq.Eq{"status": domain.SyncStatusSuccess}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var entry domain.SyncEntry
	err = p.pg.QueryRow(ctx, query, args...).
		Scan(&entry.ID, &entry.Status, &entry.PostsFound, &entry.PostsAdded, &entry.Error, &entry.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// TrimToNewest deletes all but the newest keep entries.
func (p *Pgx) TrimToNewest(ctx context.Context, keep int) (int64, error) {
	query, args, err := repositories.SqBuilder.
		Delete("sync_history").
		Where(sq.Expr(
			"id NOT IN (SELECT id FROM sync_history ORDER BY created_at DESC LIMIT ?)",
			keep,
		)).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

// newEntryID builds ids of the form sync-<unix-ms>-<random base36>.
func newEntryID() string {
	suffix := strconv.FormatUint(rand.Uint64()%(36*36*36*36*36*36), 36)
	return fmt.Sprintf("sync-%d-%s", time.Now().UnixMilli(), suffix)
}
