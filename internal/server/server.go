package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/wedstudio/pagefeed/internal/cache"
	"github.com/wedstudio/pagefeed/internal/facebook"
	"github.com/wedstudio/pagefeed/internal/ratelimit"
	"github.com/wedstudio/pagefeed/internal/repositories/synchistory"
	"github.com/wedstudio/pagefeed/internal/syncer"
	"github.com/wedstudio/pagefeed/pkg/config"
	"github.com/wedstudio/pagefeed/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Config   *config.Config
	Logger   logger.Logger
	Cache    *cache.Manager
	Syncer   syncer.Client
	Facebook facebook.Client
	History  synchistory.Repository
}

// Server owns the HTTP listener and its routes.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

func New(opts Opts) *Server {
	log := opts.Logger.WithComponent("Server")

	handler := &Handler{
		config:   opts.Config,
		cache:    opts.Cache,
		syncer:   opts.Syncer,
		facebook: opts.Facebook,
		history:  opts.History,
		logger:   log,
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Config.App.Port),
			Handler:           NewRouter(handler, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}

	opts.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server", "addr", s.httpServer.Addr)
			go func() {
				if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down HTTP server")
			return s.httpServer.Shutdown(ctx)
		},
	})

	return s
}

// NewRouter wires all routes. Split out so handler tests can run against
// the exact production routing table.
func NewRouter(handler *Handler, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", handler.Healthz)

	// One refresh per 30s with a burst of 3 is plenty for an admin panel
	// and keeps the Graph API quota safe.
	refreshLimiter := ratelimit.NewInMemoryLimiter(1, 30*time.Second, 3)

	r.Route("/api/fb", func(r chi.Router) {
		r.Get("/fetch", handler.FetchPosts)
		r.Get("/status", handler.Status)
		r.Get("/sync/history", handler.SyncHistory)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(refreshLimiter, log))
			r.Post("/fetch", handler.RefreshPosts)
			r.Post("/sync", handler.SyncPosts)
			r.Post("/token", handler.ExchangeToken)
		})
	})

	return r
}
