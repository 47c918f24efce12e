package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	natsadapter "github.com/dov85/Apartment/internal/adapter/messaging/nats"
	"github.com/dov85/Apartment/internal/adapter/storage/s3"
	"github.com/dov85/Apartment/internal/bridge"
	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/dov85/Apartment/internal/platform/metrics"
	"github.com/dov85/Apartment/internal/platform/tracer"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// App is the bridge process: HTTP server plus its optional collaborators.
type App struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	tp        *sdktrace.TracerProvider
	publisher *natsadapter.Publisher
}

func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")

	if err := cfg.ValidateBridge(); err != nil {
		return nil, fmt.Errorf("invalid bridge configuration: %w", err)
	}
	appLogger.Info("Configuration loaded", zap.String("mode", cfg.Bridge.Mode), zap.String("port", cfg.Bridge.Port))

	tp := tracer.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, appLogger)

	var store *s3.S3Storage
	if cfg.Storage.HasCredential() {
		store, err = s3.NewS3Storage(storageConfig(cfg.Storage), appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			appLogger.Warn("Bucket check failed, continuing", zap.Error(err))
		}
	}

	var backend bridge.Backend
	switch cfg.Bridge.Mode {
	case bridge.ModeLocal:
		var remote domain.ObjectStorage
		if store != nil {
			remote = store
		}
		backend = bridge.NewLocalBackend(cfg.Bridge.DataDir, remote, appLogger)
	default:
		backend = bridge.NewRemoteBackend(store)
	}

	application := &App{cfg: cfg, log: appLogger, tp: tp}

	var m *metrics.MetricsManager
	opts := []bridge.Option{}
	if cfg.Metrics.Enabled {
		m = metrics.NewMetricsManager("flatbridge")
		opts = append(opts, bridge.WithMetrics(m))
	}
	if cfg.NATS.URL != "" {
		nc, err := natsadapter.Connect(cfg.NATS, "apartment-bridge", appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable, change events disabled", zap.Error(err))
		} else {
			application.publisher = natsadapter.NewPublisher(nc, appLogger)
			opts = append(opts, bridge.WithPublisher(application.publisher))
		}
	}

	publicBase := cfg.Storage.PublicBaseURL
	if publicBase == "" && store != nil {
		publicBase = store.PublicURL("")
	}
	handler := bridge.NewHandler(backend, bridge.PublicConfig{
		PublicBaseURL: strings.TrimRight(publicBase, "/"),
		Bucket:        cfg.Storage.Bucket,
	}, appLogger, opts...)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := bridge.NewRouter(handler, bridge.RouterConfig{
		MaxBodyBytes: cfg.Bridge.MaxBodyBytes,
		MetricsPath:  metricsPath,
	}, m, appLogger)

	application.server = &http.Server{
		Addr:              ":" + cfg.Bridge.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return application, nil
}

// Run serves until SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() {
	defer func() { _ = a.log.Sync() }()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting bridge HTTP server", zap.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		a.log.Info("Received shutdown signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		a.log.Error("Bridge HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Bridge.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("Error during HTTP server graceful shutdown", zap.Error(err))
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	if a.publisher != nil {
		a.publisher.Close()
		a.log.Info("NATS connection drained")
	}

	if err := a.tp.Shutdown(shutdownCtx); err != nil {
		a.log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	a.log.Info("Bridge shut down successfully")
}

func storageConfig(c config.StorageConfig) s3.Config {
	return s3.Config{
		Endpoint:      c.Endpoint,
		AccessKey:     c.AccessKey,
		SecretKey:     c.SecretKey,
		Bucket:        c.Bucket,
		UseSSL:        c.UseSSL,
		Region:        c.Region,
		PublicBaseURL: c.PublicBaseURL,
	}
}
