package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/tabstash/tabstash/internal/api/http"
	"github.com/tabstash/tabstash/internal/api/middleware"
	"github.com/tabstash/tabstash/internal/api/ws"
	"github.com/tabstash/tabstash/internal/cache"
	"github.com/tabstash/tabstash/internal/domain/bookmarks"
	"github.com/tabstash/tabstash/internal/domain/session"
	"github.com/tabstash/tabstash/internal/eventlog"
	"github.com/tabstash/tabstash/internal/host"
	"github.com/tabstash/tabstash/internal/host/memory"
	"github.com/tabstash/tabstash/internal/host/remote"
	"github.com/tabstash/tabstash/internal/infrastructure/config"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
	"github.com/tabstash/tabstash/internal/shared/types"
)

// Server wires the session engine to its HTTP surface.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	router   *gin.Engine
	http     *http.Server
	events   *eventlog.Store
	sessions *session.Manager
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	metrics := monitoring.New()

	storage, bookmarkTree, tabs, err := buildHost(cfg.Host)
	if err != nil {
		return nil, err
	}

	events := eventlog.New(storage, eventlog.Options{
		StorageKey:    cfg.EventLog.StorageKey,
		MaxEntries:    cfg.EventLog.MaxEntries,
		MaxAge:        cfg.EventLog.MaxAge,
		FlushInterval: cfg.EventLog.FlushInterval,
	}, logger.Named("eventlog")).WithMetrics(metrics)

	repo := bookmarks.New(bookmarkTree, cfg.Session.RootFolderID, cfg.Session.ParentFolderTitle, logger.Named("mirror")).
		WithMetrics(metrics).
		WithEvents(events)
	sessions := session.NewManager(storage, tabs, repo, cfg.Session, logger.Named("session")).
		WithMetrics(metrics).
		WithEvents(events)
	digests := cache.NewPersistent[types.PageDigest](storage, cfg.Cache.DigestNamespace, cfg.Cache.DigestCapacity, logger.Named("cache")).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := apihttp.NewHandlers(sessions, events, digests)
	wsHandler := ws.NewHandler(events, logger.Named("ws")).WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/sessions", handlers.ListSessions)
	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions/closed", handlers.ListClosedSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.DeleteSession)
	router.PUT("/sessions/:id/name", handlers.RenameSession)
	router.POST("/sessions/:id/tabs", handlers.UpdateSessionTabs)
	router.GET("/sessions/:id/tabs", handlers.GetSyncedTabs)
	router.POST("/sessions/:id/clone", handlers.CloneSession)
	router.POST("/sessions/:id/activate", handlers.ActivateSession)
	router.POST("/sessions/:id/restore", handlers.RestoreSession)
	router.PUT("/sessions/:id/window", handlers.ReassociateSession)
	router.POST("/sessions/:id/takeover", handlers.TakeoverTab)
	router.GET("/sessions/:id/saved", handlers.ListSavedPages)
	router.POST("/sessions/:id/saved", handlers.SavePage)
	router.DELETE("/sessions/:id/saved/:bookmarkId", handlers.DeleteSavedPage)

	router.GET("/digests/:key", handlers.GetDigest)
	router.PUT("/digests/:key", handlers.PutDigest)

	router.GET("/events", handlers.ListEvents)
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		events:   events,
		sessions: sessions,
	}, nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the flush loop and serves HTTP until the listener fails or
// Shutdown is called.
func (s *Server) Run() error {
	s.events.Start()

	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("host_mode", s.cfg.Host.Mode))

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, stops the auto-save timer, and
// performs a final event log flush.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Close()
	if err := s.events.Close(); err != nil {
		s.logger.Warn("Final event log flush failed", zap.Error(err))
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// buildHost selects the host backend. Memory mode runs the engine
// standalone with in-process fakes; remote mode talks to the browser
// bridge.
func buildHost(cfg config.HostConfig) (host.Storage, host.Bookmarks, host.Tabs, error) {
	switch cfg.Mode {
	case "memory":
		return memory.NewStorage(), memory.NewBookmarks(), memory.NewTabs(), nil
	case "remote":
		client := remote.NewClient(cfg.BridgeAddress, cfg.BridgeTimeout)
		return client.Storage(), client.Bookmarks(), client.Tabs(), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown host mode %q", cfg.Mode)
	}
}
