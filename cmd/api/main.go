package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/parcelrate/api/internal/handlers"
	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/config"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/platform/idempotency"
	"github.com/parcelrate/api/internal/platform/jobs"
	"github.com/parcelrate/api/internal/platform/metrics"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/platform/observability"
	"github.com/parcelrate/api/internal/platform/secrets"
	"github.com/parcelrate/api/internal/repositories"
	firestoreRepo "github.com/parcelrate/api/internal/repositories/firestore"
	"github.com/parcelrate/api/internal/services"
)

const (
	partnerWebhookSecretName = "partner-webhook"
	seedActor                = "system:bootstrap"
	currencyLocale           = "en-IN"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	lookup, err := config.Lookup()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, lookup)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(lookup, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var events services.EventPublisher
	var pubsubClient *pubsub.Client
	var publisher *jobs.PubSubEventPublisher
	if topicID := strings.TrimSpace(cfg.PubSub.TopicID); topicID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		publisher, err = jobs.NewPubSubEventPublisher(pubsubClient.Topic(topicID))
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
		events = publisher
	} else {
		logger.Info("pubsub topic not configured; domain events disabled")
	}
	defer func() {
		if publisher != nil {
			publisher.Stop()
		}
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	healthRepo, err := newHealthRepository(firestoreClient, fetcher, pubsubClient, cfg.PubSub.TopicID)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	rateCache, err := services.NewRateConfigCache(registry.RateConfigs(), cfg.Pricing.CacheTTL, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise rate config cache", zap.Error(err))
	}

	var promRegistry *metrics.Registry
	var serviceMetrics services.Metrics
	if cfg.Metrics.Enabled {
		promRegistry = metrics.New("")
		serviceMetrics = promRegistry
	}

	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: registry.Health(),
		Configs:          rateCache,
		Clock:            time.Now,
		Build:            buildInfo,
	})
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	rateConfigService, err := services.NewRateConfigService(services.RateConfigServiceDeps{
		Configs: registry.RateConfigs(),
		Cache:   rateCache,
		Events:  events,
		Metrics: serviceMetrics,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("tariff")),
	})
	if err != nil {
		logger.Fatal("failed to initialise rate config service", zap.Error(err))
	}

	zoneService, err := services.NewZoneService(services.ZoneServiceDeps{
		Zones:  registry.Zones(),
		Orders: registry.Orders(),
		Clock:  time.Now,
		Logger: observability.EventLogger(logger.Named("zones")),
	})
	if err != nil {
		logger.Fatal("failed to initialise zone service", zap.Error(err))
	}

	pricingService, err := services.NewPricingService(services.PricingServiceDeps{
		Configs: rateCache,
		Zones:   registry.Zones(),
		Metrics: serviceMetrics,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:          registry.Orders(),
		Zones:           registry.Zones(),
		Counters:        registry.Counters(),
		Configs:         rateCache,
		Events:          events,
		Metrics:         serviceMetrics,
		ReferencePrefix: cfg.Pricing.ReferencePrefix,
		Clock:           time.Now,
		Logger:          observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	supportService, err := services.NewSupportService(services.SupportServiceDeps{
		Tickets: registry.SupportTickets(),
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("support")),
	})
	if err != nil {
		logger.Fatal("failed to initialise support service", zap.Error(err))
	}

	seedDefaults(ctx, logger.Named("bootstrap"), rateConfigService, zoneService)

	idempotencyStore := idempotency.NewFirestoreStore(firestoreProvider)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			runIdempotencyCleanup(cleanupCtx, logger.Named("idempotency"), idempotencyStore, cfg.Idempotency)
		}()
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	formatter, err := money.NewFormatter(cfg.Pricing.Currency, currencyLocale)
	if err != nil {
		logger.Fatal("failed to initialise currency formatter", zap.Error(err))
	}

	quoteHandlers := handlers.NewQuoteHandlers(pricingService,
		handlers.WithQuoteFormatter(formatter),
		handlers.WithQuoteRateLimit(cfg.Pricing.QuotesPerMinute, time.Now),
	)
	publicHandlers := handlers.NewPublicHandlers(zoneService, orderService)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService,
		handlers.WithOrderFormatter(formatter),
		handlers.WithOrderIdempotency(idempotencyMiddleware),
	)
	supportHandlers := handlers.NewSupportHandlers(authenticator, supportService)
	partnerHandlers := handlers.NewPartnerHandlers(authenticator, orderService, formatter)
	adminHandlers := handlers.NewAdminHandlers(handlers.AdminDeps{
		Authenticator: authenticator,
		RateConfigs:   rateConfigService,
		Zones:         zoneService,
		Orders:        orderService,
		Support:       supportService,
		Formatter:     formatter,
	})
	webhookHandlers := handlers.NewWebhookHandlers(orderService)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}
	if promRegistry != nil {
		middlewares = append(middlewares, promRegistry.Middleware)
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)

	var opts []handlers.Option
	opts = append(opts, handlers.WithMiddlewares(middlewares...))
	opts = append(opts, handlers.WithHealthHandlers(healthHandlers))
	opts = append(opts, handlers.WithQuoteRoutes(quoteHandlers.Routes))
	opts = append(opts, handlers.WithPublicRoutes(publicHandlers.Routes))
	opts = append(opts, handlers.WithOrderRoutes(orderHandlers.Routes))
	opts = append(opts, handlers.WithSupportRoutes(supportHandlers.Routes))
	opts = append(opts, handlers.WithPartnerRoutes(partnerHandlers.Routes))
	opts = append(opts, handlers.WithAdminRoutes(adminHandlers.Routes))
	opts = append(opts, handlers.WithWebhookRoutes(webhookHandlers.Routes))
	if hmacMiddleware := buildHMACMiddleware(cfg); hmacMiddleware != nil {
		opts = append(opts, handlers.WithWebhookMiddlewares(hmacMiddleware))
	} else {
		logger.Warn("partner webhook secret not configured; webhook signatures are not verified")
	}
	if promRegistry != nil {
		opts = append(opts, handlers.WithMetricsHandler(cfg.Metrics.Path, promRegistry.Handler()))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("parcelrate api listening", zap.String("environment", buildInfo.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// seedDefaults publishes the default tariff and zones on an empty database so quotes work from the first boot.
func seedDefaults(ctx context.Context, logger *zap.Logger, tariff services.RateConfigService, zones services.ZoneService) {
	seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg, created, err := tariff.SeedDefaults(seedCtx, seedActor)
	switch {
	case err != nil:
		logger.Warn("tariff seed failed", zap.Error(err))
	case created:
		logger.Info("default tariff published", zap.Int("version", cfg.Version))
	}

	count, err := zones.SeedDefaults(seedCtx)
	switch {
	case err != nil:
		logger.Warn("zone seed failed", zap.Error(err))
	case count > 0:
		logger.Info("default zones created", zap.Int("count", count))
	}
}

func runIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func buildInfoFromEnv(lookup func(string) (string, bool), cfg config.Config, started time.Time) services.BuildInfo {
	version := lookupTrimmed(lookup, "BUILD_VERSION")
	if version == "" {
		version = "dev"
	}
	commit := lookupTrimmed(lookup, "BUILD_COMMIT_SHA")
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher, ps *pubsub.Client, topicID string) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 3)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system-healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				if errors.Is(err, secrets.ErrSecretNotFound) {
					return nil
				}
				return err
			},
		})
	}
	if ps != nil && strings.TrimSpace(topicID) != "" {
		topic := ps.Topic(topicID)
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topicID)
				}
				return nil
			},
		})
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func buildHMACMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	secret := strings.TrimSpace(cfg.Security.PartnerWebhookSecret)
	if secret == "" {
		return nil
	}
	validator := auth.NewHMACValidator(
		auth.StaticSecrets{partnerWebhookSecretName: secret},
		auth.NewInMemoryNonceStore(),
		auth.WithHMACClockSkew(cfg.Security.HMACClockSkew),
	)
	return validator.RequireHMAC(partnerWebhookSecretName)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, lookup func(string) (string, bool)) (*secrets.Fetcher, error) {
	project := lookupTrimmed(lookup, "SECRET_PROJECT_ID")
	if project == "" {
		project = lookupTrimmed(lookup, "FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookupTrimmed(lookup, "SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentialsFile := lookupTrimmed(lookup, "FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func lookupTrimmed(lookup func(string) (string, bool), key string) string {
	if lookup == nil {
		return ""
	}
	value, _ := lookup(key)
	return strings.TrimSpace(value)
}
