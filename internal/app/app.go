package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/wedstudio/pagefeed/internal/cache"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/internal/facebook/graphimpl"
	_ "github.com/wedstudio/pagefeed/internal/migrations"
	repositories "github.com/wedstudio/pagefeed/internal/repositories/fx"
	"github.com/wedstudio/pagefeed/internal/server"
	"github.com/wedstudio/pagefeed/internal/syncer"
	"github.com/wedstudio/pagefeed/internal/syncer/syncerimpl"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
	"github.com/wedstudio/pagefeed/pkg/pgx"
	"go.uber.org/fx"
)

var App = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		cache.New,
	),
	fx.Provide(
		fx.Annotate(
			graphimpl.New,
			fx.As(new(facebook.Client)),
		),
		fx.Annotate(
			syncerimpl.New,
			fx.As(new(syncer.Client)),
		),
	),
	repositories.Module,
	fx.Invoke(migrate),
	fx.Invoke(server.New),
	fx.Invoke(run),
)

// migrate brings the schema up before anything touches the database. The
// migrations themselves are Go files registered by the blank import
// above; the dialect is set for the lib/pq connection goose drives.
func migrate(cfg *config.Config, log logger.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.Up(db, "."); err != nil {
		return err
	}

	log.Info("Database migrations applied")
	return nil
}

func run(lc fx.Lifecycle, log logger.Logger, syncClient syncer.Client) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx := context.Background()

			if err := syncClient.ScheduleSync(ctx); err != nil {
				log.Error("Failed to schedule background sync", "error", err)
				return err
			}

			return nil
		},
	})
}
