package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/onboard/internal/config"
	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/httpserver"
	"github.com/MrSnakeDoc/onboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/onboard/internal/index"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/manifest"
	"github.com/MrSnakeDoc/onboard/internal/onboarding"
	"github.com/MrSnakeDoc/onboard/internal/redis"
	"github.com/MrSnakeDoc/onboard/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/onboard/internal/store/redis"
	"github.com/MrSnakeDoc/onboard/internal/utils"
	"github.com/MrSnakeDoc/onboard/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	collector   *scheduler.SessionCollector // nil when Redis holds sessions
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	var (
		store       onboarding.SessionStore
		redisClient *goredis.Client
		redisStore  *redisstore.Store
		memIndex    *index.MemoryIndex
		collector   *scheduler.SessionCollector
		cache       manifest.Cache
	)

	if cfg.UseRedis() {
		// Fail fast if Redis is configured but unreachable
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		loggerClient.Info("Redis initialized successfully")

		redisClient = client
		redisStore = redisstore.NewStore(client, cfg.SessionTTL)
		store = redisStore
		cache = redisStore
	} else {
		loggerClient.Info("no redis configured, sessions are kept in memory")
		memIndex = index.NewMemoryIndex()
		store = memIndex
		collector = scheduler.NewSessionCollector(memIndex, loggerClient, cfg.GCInterval, cfg.SessionTTL)
	}

	fetcher, err := newFetcher(cfg, loggerClient)
	if err != nil {
		if redisClient != nil {
			utils.Close(redisClient)
		}
		return nil, err
	}
	fetcher = manifest.NewCachingFetcher(fetcher, cache, cfg.ManifestCacheTTL, loggerClient)

	opts := domain.Options{
		PlatformSuffix: cfg.PlatformSuffix,
		DefaultApp:     cfg.DefaultApp,
	}
	service := onboarding.NewService(store, fetcher, opts, loggerClient)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		Service:         service,
		MemoryIndex:     memIndex,
		RedisStore:      redisStore,
		ManifestSource:  cfg.ManifestSource,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		collector:   collector,
	}, nil
}

// newFetcher picks the manifest source named in the config.
func newFetcher(cfg *config.Config, log logger.Logger) (domain.ManifestFetcher, error) {
	switch cfg.ManifestSource {
	case config.SourceHTTP:
		return manifest.NewHTTPFetcher(manifest.HTTPOptions{
			Path:      cfg.ManifestPath,
			Timeout:   cfg.FetchTimeout,
			UserAgent: version.UserAgent(),
		}, log), nil
	case config.SourceFixtures:
		log.Warn("serving built-in fixture manifests, not for production")
		return manifest.NewFixtureFetcher(), nil
	case config.SourceDir:
		if _, err := os.Stat(cfg.ManifestDir); err != nil {
			return nil, fmt.Errorf("manifest directory: %w", err)
		}
		return manifest.NewDirFetcher(cfg.ManifestDir), nil
	default:
		return nil, fmt.Errorf("unknown manifest source %q", cfg.ManifestSource)
	}
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting onboard %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("onboard %s", version.String())
	a.logger.Info("onboarding configured",
		logger.String("manifest_source", a.cfg.ManifestSource),
		logger.String("platform_suffix", a.cfg.PlatformSuffix),
		logger.String("default_app", a.cfg.DefaultApp),
		logger.Duration("session_ttl", a.cfg.SessionTTL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session collector (memory mode only)
	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start session collector: %w", err)
		}
		a.logger.Info("session collector started",
			logger.Duration("interval", a.cfg.GCInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.collector != nil {
		a.collector.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "redis", a.logger)
	}

	a.logger.Info("✅ onboard stopped cleanly")
	return nil
}
