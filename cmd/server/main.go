// Command server runs the Nimbus assistant platform API.
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

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/service"
	"github.com/nimbusworks/nimbus/internal/config"
	domainservice "github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/agentapi"
	"github.com/nimbusworks/nimbus/internal/infrastructure/analytics"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
	"github.com/nimbusworks/nimbus/internal/infrastructure/oidc"
	"github.com/nimbusworks/nimbus/internal/infrastructure/persistence/postgres"
	redisconn "github.com/nimbusworks/nimbus/internal/infrastructure/persistence/redis"
	"github.com/nimbusworks/nimbus/internal/infrastructure/ratelimit"
	"github.com/nimbusworks/nimbus/internal/infrastructure/secrets"
	"github.com/nimbusworks/nimbus/internal/infrastructure/statestore"
	httpiface "github.com/nimbusworks/nimbus/internal/interfaces/http"
	"github.com/nimbusworks/nimbus/internal/interfaces/http/handlers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := monitoring.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := monitoring.NewTracingManager(cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	metrics := monitoring.NewMetrics()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	// Redis backs the distributed login state store and the rate limiter.
	// Without it the service still runs, single-instance only.
	var (
		redisClient *redis.Client
		states      domainservice.StateStore
		limiter     domainservice.RateLimiter
	)
	if cfg.Redis.Enabled {
		client, err := redisconn.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		redisClient = client
		states = statestore.NewRedisStateStore(client, log, metrics)
		limiter = ratelimit.NewRedisRateLimiter(client)
	} else {
		states = statestore.NewMemoryStateStore(log)
		limiter = ratelimit.NewAllowAll()
	}
	if !cfg.RateLimit.Enabled {
		limiter = ratelimit.NewAllowAll()
	}

	var secretsProvider domainservice.SecretsProvider
	if cfg.Vault.Enabled {
		secretsProvider, err = secrets.NewVaultProvider(cfg.Vault, log)
		if err != nil {
			return fmt.Errorf("initialize vault: %w", err)
		}
	} else {
		secretsProvider = secrets.NewStaticProvider(cfg.JWT.SigningKey, cfg.OIDC.ClientSecret)
	}

	var publisher domainservice.UsagePublisher
	if cfg.Kafka.Enabled {
		publisher = analytics.NewKafkaPublisher(cfg.Kafka, log)
	} else {
		publisher = analytics.NewNoopPublisher()
	}
	defer publisher.Close()

	sessionRepo := postgres.NewSessionRepository(db)
	quotaRepo := postgres.NewQuotaRepository(db)
	usageRepo := postgres.NewUsageRepository(db)
	modelRepo := postgres.NewModelRepository(db)
	assistantRepo := postgres.NewAssistantRepository(db)

	provider := oidc.NewProviderClient(cfg.OIDC, secretsProvider, log)
	runner := agentapi.NewClient(cfg.Agent, log)

	authService := service.NewAuthService(*cfg, states, provider, secretsProvider, log)
	quotaService := service.NewQuotaService(cfg.Quota, quotaRepo, usageRepo, log)
	catalogService := service.NewCatalogService(modelRepo, log)
	costService := service.NewCostService(usageRepo)
	assistantService := service.NewAssistantService(assistantRepo, modelRepo)
	chatService := service.NewChatService(
		cfg.Agent, sessionRepo, assistantRepo, usageRepo,
		catalogService, quotaService, runner, publisher, metrics, log,
	)

	engine := httpiface.NewRouter(httpiface.RouterDeps{
		Config:     cfg,
		Logger:     log,
		Metrics:    metrics,
		Tracing:    tracing,
		Secrets:    secretsProvider,
		Limiter:    limiter,
		Auth:       handlers.NewAuthHandler(authService),
		Chat:       handlers.NewChatHandler(chatService, metrics, log),
		Quota:      handlers.NewQuotaHandler(quotaService),
		Cost:       handlers.NewCostHandler(costService),
		Catalog:    handlers.NewCatalogHandler(catalogService),
		Assistants: handlers.NewAssistantHandler(assistantService),
		Health:     handlers.NewHealthHandler(db, redisClient),
	})

	// WriteTimeout stays zero by default: SSE responses outlive any
	// reasonable fixed deadline.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Hot-reload of log level and similar tunables is best-effort; a config
	// file change never restarts the listener.
	config.Watch(func(updated *config.Config) {
		log.Info(ctx, "configuration file changed",
			logger.String("log_level", updated.Log.Level))
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info(groupCtx, "server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
