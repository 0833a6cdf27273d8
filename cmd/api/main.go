package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberq/internal/api"
	"barberq/internal/config"
	"barberq/internal/database"
	"barberq/internal/domain"
	"barberq/internal/events"
	"barberq/internal/export"
	"barberq/internal/google"
	"barberq/internal/logging"
	"barberq/internal/messaging"
	"barberq/internal/metrics"
	"barberq/internal/models"
	"barberq/internal/repository"
	"barberq/internal/schedule"
	"barberq/internal/service"
	"barberq/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// changeNotifier is what both the queue service and the SSE endpoint
// need from a notifier backend.
type changeNotifier interface {
	domain.Notifier
	Subscribe(ctx context.Context, barberID string) (*events.Subscription, error)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	barbers, services, err := loadCatalog(&logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var notifier changeNotifier
	if redisClient != nil {
		notifier = events.NewRedisNotifier(redisClient, &logger)
	} else {
		notifier = events.NewLocalNotifier()
	}

	limiter := initLimiter(redisClient, &logger)

	grid, err := schedule.GridFromConfig(cfg.Queue)
	if err != nil {
		return fmt.Errorf("slot grid: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	eventBus := events.NewEventBus()

	queueService := service.NewQueueService(
		db, eventBus, sheetsWorker, notifier, limiter,
		grid, cfg.Queue.ServiceEstimate, cfg.API.RateLimit.RegistrationsPerHour,
		&logger,
	)
	catalogService := service.NewCatalogService(db, &logger)

	if err := catalogService.Seed(ctx, barbers, services); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	subscribeBarberStatus(eventBus, catalogService, &logger)

	sweeper := worker.NewExpirySweeper(
		db, queueService, eventBus, notifier,
		cfg.Queue.SweepIntervalDuration(),
		worker.FixedRetry(cfg.Queue.SweepAttempts, cfg.Queue.SweepRetryDelayDuration()),
		&logger,
	)
	go sweeper.Start(ctx)

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	whatsapp := messaging.NewWhatsApp(cfg.Messaging.CountryCode)

	httpServer := api.NewHTTPServer(
		cfg.API, queueService, catalogService, queueService,
		exporter, notifier, whatsapp,
		cfg.Queue.GridWaitPerCustomer, &logger,
	)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadCatalog(logger *zerolog.Logger) ([]models.Barber, []models.Service, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return nil, nil, err
	}

	var catalog struct {
		Barbers  []models.Barber  `yaml:"barbers"`
		Services []models.Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return nil, nil, err
	}

	return catalog.Barbers, catalog.Services, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initLimiter prefers Redis so the registration throttle is shared
// across instances, falling back to per-process counting.
func initLimiter(redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimitStore {
	memory := repository.NewMemoryLimitStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverLimitStore(
		repository.NewRedisLimitStore(redisClient), memory, logger,
	)
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) domain.SyncWorker {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.QueueSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.QueueSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	go sheetsWorker.Start(ctx)

	logger.Info().Msg("google sheets sync started")
	return sheetsWorker
}

// subscribeBarberStatus keeps the informational barber status in step
// with the queue: busy while someone is in the chair, available after.
func subscribeBarberStatus(bus *events.EventBus, catalog *service.CatalogService, logger *zerolog.Logger) {
	refresh := func(event *events.Event) error {
		var payload events.CustomerEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		if payload.BarberID == "" {
			return nil
		}
		if err := catalog.RefreshBarberStatus(context.Background(), payload.BarberID); err != nil {
			logger.Warn().Err(err).Str("barber_id", payload.BarberID).Msg("refresh barber status")
		}
		return nil
	}

	bus.Subscribe(events.EventStatusChanged, refresh)
	bus.Subscribe(events.EventCustomerCompleted, refresh)
	bus.Subscribe(events.EventCustomerRemoved, refresh)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
