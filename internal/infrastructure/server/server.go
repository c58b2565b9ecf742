package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/SerVas333/WindowsLauncher-sub007/internal/api/http"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/api/middleware"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/api/ws"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/catalog"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/instance"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/launcher"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/lifecycle"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/webapp"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/tracing"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/winsys/agent"
)

// Server wraps the HTTP server and the lifecycle engine behind it
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	orch       *lifecycle.Orchestrator
	poller     *lifecycle.Poller
	watcher    *catalog.Watcher
	remote     *catalog.Remote
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer wires the engine end to end: window system facade, catalog,
// launchers, orchestrator, poller and the API layer on top.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing launcher daemon",
		zap.String("port", cfg.Server.Port),
		zap.String("catalog_dir", cfg.Catalog.Dir),
		zap.Bool("agent_enabled", cfg.Agent.Enabled),
	)

	metrics := monitoring.Default()
	tracer := tracing.New("launcherd", logger.Logger)

	// Window system facade. Without the agent the daemon still runs,
	// degraded: launches register instances but windows never bind.
	var win winsys.Manager
	var agentClient *agent.Client
	if cfg.Agent.Enabled {
		agentClient = agent.New(cfg.Agent, logger, metrics)
		win = agentClient
		logger.Info("Window agent client ready", zap.String("url", cfg.Agent.URL))
	} else {
		win = winsys.Unavailable()
		logger.Warn("Window agent disabled, running without window correlation")
	}

	// Catalog: local directory, plus optional live reload and remote sync
	store := catalog.NewStore()
	loader := catalog.NewLoader(cfg.Catalog.Dir, logger)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	apps, err := loader.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Warn("Catalog load failed, starting empty", zap.Error(err))
	} else {
		store.Replace(apps)
		metrics.SetCatalogApps(len(apps))
		logger.Info("Catalog loaded", zap.Int("apps", len(apps)))
	}

	var watcher *catalog.Watcher
	if cfg.Catalog.Watch {
		watcher, err = catalog.NewWatcher(cfg.Catalog.Dir, loader, store, logger, metrics)
		if err != nil {
			logger.Warn("Catalog watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(); err != nil {
			logger.Warn("Catalog watcher failed to start", zap.Error(err))
			watcher.Close()
			watcher = nil
		}
	}

	var remote *catalog.Remote
	if cfg.Catalog.RemoteURL != "" {
		remote = catalog.NewRemote(cfg.Catalog.RemoteURL, cfg.Catalog.Refresh, store, logger, metrics)
		remote.Start(context.Background())
	}

	// Launchers, one per application category
	resolver := launcher.NewResolver(cfg.Native.AppDirs, logger)
	prober := webapp.NewProber(logger)

	native := launcher.NewNativeProcess(win, resolver, cfg.Native, cfg.Discovery, logger)
	weburl := launcher.NewWebURL(win, prober, cfg.Discovery, logger)
	webwin := launcher.NewWebWindow(win, prober, cfg.Browser, cfg.Native, cfg.Discovery, logger)
	embedded := launcher.NewEmbeddedBrowser(win, prober, cfg.Discovery, logger)

	launchers := launcher.NewRegistry(logger)
	launchers.Register(native)
	launchers.Register(weburl)
	launchers.Register(webwin)
	launchers.Register(embedded)

	var emulated *launcher.EmulatedApp
	if cfg.Emulator.Enabled {
		emulated = launcher.NewEmulatedApp(win, cfg.Emulator, cfg.Native, cfg.Discovery, tracer, logger)
		launchers.Register(emulated)
		logger.Info("Emulator launcher registered", zap.String("health_addr", cfg.Emulator.HealthAddr))
	}

	// Lifecycle engine
	instances := instance.NewRegistry(logger)
	orch := lifecycle.NewOrchestrator(store, launchers, instances, win, cfg, metrics, logger)

	// Child exits feed straight into lifecycle bookkeeping
	native.SetExitHandler(orch.HandleProcessExit)
	webwin.SetExitHandler(orch.HandleProcessExit)
	if emulated != nil {
		emulated.SetExitHandler(orch.HandleProcessExit)
	}

	poller := lifecycle.NewPoller(orch, cfg.Poll, logger)
	poller.Start()

	switcher := lifecycle.NewSwitcher(orch)

	// API layer
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	var probe apihttp.AgentProbe
	if agentClient != nil {
		probe = agentClient
	}
	handlers := apihttp.NewHandlers(store, orch, switcher, probe, metrics)
	wsHandler := ws.NewHandler(orch, logger, metrics, cfg.Server.AllowedOrigins)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Catalog
	router.GET("/api/v1/apps", handlers.ListApps)
	router.POST("/api/v1/apps/:id/launch", handlers.LaunchApp)

	// Instances
	router.GET("/api/v1/instances", handlers.ListInstances)
	router.GET("/api/v1/instances/:id", handlers.GetInstance)
	router.POST("/api/v1/instances/:id/switch", handlers.SwitchToInstance)
	router.POST("/api/v1/instances/:id/terminate", handlers.TerminateInstance)

	// Alt-Tab rounds
	router.POST("/api/v1/switcher/open", handlers.OpenSwitcher)
	router.POST("/api/v1/switcher/next", handlers.SwitcherNext)
	router.POST("/api/v1/switcher/prev", handlers.SwitcherPrevious)
	router.POST("/api/v1/switcher/select", handlers.SwitcherSelect)
	router.POST("/api/v1/switcher/commit", handlers.SwitcherCommit)
	router.POST("/api/v1/switcher/cancel", handlers.SwitcherCancel)

	// Event stream
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	httpServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
		// No blanket write timeout: /stream connections live for hours
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Server initialized successfully")

	return &Server{
		httpServer: httpServer,
		router:     router,
		orch:       orch,
		poller:     poller,
		watcher:    watcher,
		remote:     remote,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server and the engine behind it
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	s.poller.Close()

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn("Catalog watcher close failed", zap.Error(err))
		}
	}
	if s.remote != nil {
		s.remote.Close()
	}

	s.orch.Shutdown(ctx)

	s.logger.Sync()
	return nil
}
