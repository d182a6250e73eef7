package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSyncHistory, downCreateSyncHistory)
}

func upCreateSyncHistory(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE sync_history (
		id VARCHAR PRIMARY KEY,
		status VARCHAR NOT NULL,
		posts_found INTEGER NOT NULL DEFAULT 0,
		posts_added INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE INDEX sync_history_created_at_idx ON sync_history (created_at DESC);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downCreateSyncHistory(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE sync_history;
	`)
	if err != nil {
		return err
	}
	return nil
}
