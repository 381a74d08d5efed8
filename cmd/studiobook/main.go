package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"studiobook/internal/api"
	"studiobook/internal/availability"
	"studiobook/internal/config"
	"studiobook/internal/events"
	"studiobook/internal/feed"
	"studiobook/internal/metrics"
	"studiobook/internal/notify"
	"studiobook/internal/pricing"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIOBOOK_CONFIG"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rates := config.NewLiveRates(pricing.DefaultRateCard())
	ratesWatcher := config.NewRatesWatcher(cfg.Rates.Path, cfg.RatesWatchInterval(), rates, &logger)
	if err := ratesWatcher.Load(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load rate card")
	}
	go ratesWatcher.Run(ctx)

	database, err := feed.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	bus := events.NewBus(&logger)
	store := availability.NewStore(bus)
	source := feed.NewCachedSource(database, rdb, cfg.SnapshotTTL(), &logger)
	go feed.NewWatcher(source, store, cfg.FeedPollInterval(), &logger).Run(ctx)

	notifier := buildNotifier(ctx, cfg, &logger)

	srv := api.NewServer(api.Deps{
		Rates:             rates,
		Store:             store,
		Notifier:          notifier,
		Bus:               bus,
		Logger:            &logger,
		WhatsAppNumber:    cfg.WhatsApp.Number,
		SessionTimeout:    cfg.SessionTimeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		TrustProxyHeaders: cfg.API.TrustProxyHeaders,
	})
	go srv.RunJanitor(ctx, time.Minute)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, store, &logger)
	if cfg.Server.GRPCPort != 0 {
		go startGRPCHealth(ctx, cfg.Server.GRPCPort, store, &logger)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		_ = httpSrv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.HTTPPort).Msg("studiobook started")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("studiobook stopped")
}

// buildNotifier wires the delivery channels that are configured. It returns nil when
// none are, in which case confirmed requests are only handed back to the client.
func buildNotifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ManagerChatIDs) > 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		retry := notify.DefaultRetryConfig()
		retry.MaxRetries = cfg.Telegram.MaxRetries
		notifiers = append(notifiers, notify.NewTelegram(bot, cfg.Telegram.ManagerChatIDs, cfg.Telegram.MessagesPerSecond, retry, logger))
	}

	if cfg.Sheets.CredentialsFile != "" && cfg.Sheets.SpreadsheetID != "" {
		service, err := notify.NewSheetsService(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			logger.Error().Err(err).Msg("google sheets disabled")
		} else {
			notifiers = append(notifiers, notify.NewSheets(service, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range))
		}
	}

	if len(notifiers) == 0 {
		logger.Warn().Msg("no delivery channel configured")
		return nil
	}
	return notify.NewFanout(logger, notifiers...)
}

func startHealthServer(ctx context.Context, port int, database *feed.DB, rdb *redis.Client, store *availability.Store, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if !store.Loaded() {
			http.Error(w, "reservations not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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

// startGRPCHealth serves the standard gRPC health service. The status flips to
// SERVING once the first reservation snapshot has loaded.
func startGRPCHealth(ctx context.Context, port int, store *availability.Store, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error().Err(err).Int("port", port).Msg("grpc listen error")
		return
	}

	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				s.GracefulStop()
				return
			case <-ticker.C:
				if store.Loaded() {
					hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
				}
			}
		}
	}()

	if err := s.Serve(lis); err != nil {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
