package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/audit"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/config"
	apphttp "github.com/maddiethegm/Home-Inventory-Controller/internal/http"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/service"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/storage"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/throttle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	directory, err := buildDirectory(cfg, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	recorder, err := buildRecorder(ctx, cfg, store, logger, m)
	if err != nil {
		return err
	}
	recorder.Start()

	users := repository.NewUserRepository(store)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(cfg.TrustedProxies()); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	handler := apphttp.NewHandler(apphttp.Deps{
		Auth:    service.NewAuthService(users, auth.BcryptVerifier{}, directory, logger),
		Users:   service.NewUserService(users, auth.DefaultPasswordCost),
		Tokens:  tokens,
		Store:   store,
		Limiter: limiter,
		Audit:   recorder,
		Metrics: m,
		Logger:  logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("http server")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		logger.Warnf("audit shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}

func buildDirectory(cfg config.Config, logger *logrus.Logger) (auth.DirectoryAuthenticator, error) {
	if !cfg.DirectoryEnabled() {
		logger.Info("no directory configured; directory accounts cannot log in")
		return nil, nil
	}

	directory, err := auth.NewLDAPAuthenticator(auth.DirectoryConfig{
		URL:                cfg.LDAP.URL,
		BaseDN:             cfg.LDAP.DomainComponents,
		UserAttribute:      cfg.LDAP.UserAttribute,
		Timeout:            cfg.LDAP.Timeout,
		InsecureSkipVerify: cfg.LDAP.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("setup directory: %w", err)
	}
	if cfg.LDAP.InsecureSkipVerify {
		logger.Warn("directory TLS certificate verification is disabled")
	}
	logger.Infof("using directory %s (timeout %s)", cfg.LDAP.URL, cfg.LDAP.Timeout)
	return directory, nil
}

// buildLimiter picks the shared Redis limiter when REDIS_ADDR is set and the
// per-process one otherwise.
func buildLimiter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (throttle.Limiter, func(), error) {
	limits := throttle.Config{Limit: cfg.Throttle.Limit, Window: cfg.Throttle.Window}

	if cfg.Redis.Addr == "" {
		limiter := throttle.NewMemoryLimiter(limits)
		limiter.StartCleanup(ctx)
		logger.Infof("login throttle: %d attempts per %s (in-memory)", limits.Limit, limits.Window)
		return limiter, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Infof("login throttle: %d attempts per %s (redis %s)", limits.Limit, limits.Window, cfg.Redis.Addr)
	return throttle.NewRedisLimiter(client, limits, ""), func() { _ = client.Close() }, nil
}

func buildRecorder(ctx context.Context, cfg config.Config, store repository.Executor, logger *logrus.Logger, m *metrics.Metrics) (*audit.Recorder, error) {
	sinks := audit.MultiSink{audit.NewRepositorySink(repository.NewAuditRepository(store))}

	if cfg.Audit.Bucket != "" {
		s3svc, err := storage.NewS3ServiceFromOptions(ctx, storage.S3Options{
			Region:   cfg.Audit.Region,
			Endpoint: cfg.Audit.Endpoint,
			Profile:  cfg.Audit.Profile,
		})
		if err != nil {
			return nil, fmt.Errorf("setup audit archive: %w", err)
		}
		sinks = append(sinks, audit.NewArchiveSink(s3svc, cfg.Audit.Bucket, cfg.Audit.KeyPrefix))
		logger.Infof("archiving audit entries to s3 bucket %s (region %s)", cfg.Audit.Bucket, cfg.Audit.Region)
	}

	return audit.NewRecorder(sinks, audit.Config{
		QueueSize:  cfg.Audit.QueueSize,
		Workers:    cfg.Audit.Workers,
		AuditReads: cfg.AuditReads(),
	}, logger, m), nil
}
