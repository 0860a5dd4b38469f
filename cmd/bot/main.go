package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"taxbook/internal/api"
	"taxbook/internal/availability"
	"taxbook/internal/booking"
	"taxbook/internal/bot"
	"taxbook/internal/config"
	"taxbook/internal/database"
	"taxbook/internal/domain"
	"taxbook/internal/events"
	"taxbook/internal/logging"
	"taxbook/internal/metrics"
	"taxbook/internal/repository"
	"taxbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "bot-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(baseLogger, "database"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open session database")
		return err
	}
	defer db.Close()

	redisClient, cache := initCache(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	metrics.Register()
	botMetrics := bot.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Monitoring.PrometheusEnabled {
		srv := startMetricsServer(cfg.Monitoring.PrometheusPort, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), logging.Component(baseLogger, "api-client"))
	client.UseCache(cache, cfg.API.CacheTTL())
	client.UseRetry(api.RetryPolicy{
		MaxRetries:    cfg.API.MaxRetries,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2,
	})
	if cfg.API.RateLimit.RPS > 0 {
		client.UseRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst)
	}

	eventBus := events.NewEventBus(logging.Component(baseLogger, "events"))

	catalogService := service.NewCatalogService(client, logging.Component(baseLogger, "catalog"))
	authService := service.NewAuthService(client, db, eventBus, logging.Component(baseLogger, "auth"))
	appointmentService := service.NewAppointmentService(client, cache, cfg.Booking.PendingCacheTTL(), logging.Component(baseLogger, "appointments"))
	appointmentService.Subscribe(eventBus)
	expenseService := service.NewExpenseService(client, cache, service.ExpenseOptions{
		PageSize:   cfg.Expenses.PageSize,
		CacheTTL:   cfg.Expenses.CacheTTL(),
		AccountID:  cfg.Expenses.AccountID,
		CategoryID: cfg.Expenses.CategoryID,
	}, logging.Component(baseLogger, "expenses"))
	expenseService.Subscribe(eventBus)

	submitter := booking.NewSubmitter(client, eventBus, logging.Component(baseLogger, "submitter"))
	sessions := booking.NewSessions(submitter, cfg.Booking.MaxCommentLength)
	sessions.UsePublisher(eventBus)
	fetcher := availability.NewFetcher(client, cfg.Booking.SlotLength(), logging.Component(baseLogger, "availability"))
	fetcher.Subscribe(eventBus)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))

	telegramBot := bot.NewBot(
		tgService, cfg, sessions, fetcher,
		catalogService, authService, appointmentService, expenseService,
		cache, botMetrics, logging.Component(baseLogger, "bot"),
	)

	logger.Info().Str("api", cfg.API.BaseURL).Msg("Bot started")
	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// initCache prefers Redis and falls back to process memory while Redis is down.
func initCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.QueryCache) {
	fallback := repository.NewMemoryQueryCache()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, using in-memory cache")
		return nil, fallback
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	primary := repository.NewRedisQueryCache(client)
	return client, repository.NewFailoverQueryCache(primary, fallback, logger)
}

func startMetricsServer(port int, logger *zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	logger.Info().Int("port", port).Msg("Metrics server started")
	return srv
}
