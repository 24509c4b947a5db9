package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/gamecore/internal/config"
	"github.com/temcen/gamecore/internal/database"
	"github.com/temcen/gamecore/internal/handlers"
	"github.com/temcen/gamecore/internal/middleware"
	"github.com/temcen/gamecore/internal/services"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	registry *prometheus.Registry
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg)

	// Initialize database connections
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app, err := newApp(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := services.New(cfg, logger, db, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app := &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		services: services,
		handlers: handlers.New(logger, services),
	}
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Run listens on the configured port and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.Server.Port)
	if err != nil {
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on port %s: %w", a.config.Server.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled or the server fails,
// then shuts down in dependency order: the HTTP server first, so no request
// can reach the stores or schedule usage, then the application.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()
	a.logger.WithField("addr", ln.Addr().String()).Info("Server started")

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Server forced to shutdown")
	}

	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown waits for pending usage writes before closing the stores they
// write to. The HTTP server must already be stopped.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.services.UsageTrack.Drain(ctx); err != nil {
		a.logger.WithError(err).Warn("Usage recordings still pending at shutdown")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger, !a.config.Server.IsProduction()))
	router.Use(middleware.CORS(a.config))

	router.GET("/", a.handlers.Index)

	// Health check and metrics (no auth required)
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	sessionAuth := middleware.SessionAuth(a.services.Tokens, a.services.Metrics)
	apiKeyAuth := middleware.APIKeyAuth(
		a.services.Credentials, a.services.UsageTrack, a.services.Metrics, a.logger,
	)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", a.handlers.Auth.Register)
			auth.POST("/login", a.handlers.Auth.Login)
			auth.GET("/me", sessionAuth, a.handlers.Auth.Me)
		}

		api.GET("/usage", apiKeyAuth, a.handlers.Usage.Get)
	}

	router.NoRoute(handlers.NotFound)

	a.router = router
}
