package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/api"
	"github.com/LeniadVe/DryCleaning/internal/bot"
	"github.com/LeniadVe/DryCleaning/internal/config"
	"github.com/LeniadVe/DryCleaning/internal/db"
	"github.com/LeniadVe/DryCleaning/internal/events"
	"github.com/LeniadVe/DryCleaning/internal/metrics"
	"github.com/LeniadVe/DryCleaning/internal/ratelimit"
	"github.com/LeniadVe/DryCleaning/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SHOP_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("level", cfg.Logging.Level).Msg("unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	bus.OnError(func(e events.Event, err error) {
		logger.Error().Err(err).Str("type", e.Type).Str("target", e.Target).Msg("event handler failed")
	})

	var audit *db.DB
	if cfg.Audit.Enabled {
		audit, err = db.NewDB(cfg.Audit.Path, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open audit db error")
		}
		defer audit.Close()
		audit.Subscribe(bus)

		backups := db.NewBackupService(audit, db.BackupConfig{
			Enabled:       cfg.Backup.Enabled,
			Path:          cfg.Backup.Path,
			Interval:      cfg.BackupInterval(),
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	svc := service.NewScheduleService(&service.Config{MaxSearchDays: cfg.Calculator.MaxSearchDays}, bus, &logger)

	// Initial load + hot reload of shop hours
	if cfg.HoursConfigPath != "" {
		if err := config.WatchHours(ctx, cfg.HoursConfigPath, 30*time.Second, func(hours *config.HoursConfig) {
			applyHours(ctx, svc, hours, &logger)
		}); err != nil {
			logger.Error().Err(err).Msg("hours watch failed")
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if rdb != nil {
			limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute, time.Minute)
		} else {
			limiter = ratelimit.NewLocalLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		}
	}

	var changes api.ChangeLister
	if audit != nil {
		changes = audit
	}
	server := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.Server.Port), svc, changes, limiter, &logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP API error")
			stop()
		}
	}()

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, audit, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Telegram.BotToken != "" {
		b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, svc, cfg.Telegram.Managers, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create bot error")
		} else {
			go b.Start(ctx)
		}
	}

	logger.Info().Msg("DryCleaning service started")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP API shutdown error")
	}
	logger.Info().Msg("DryCleaning service stopped")
}

func applyHours(ctx context.Context, svc *service.ScheduleService, hours *config.HoursConfig, logger *zerolog.Logger) {
	week, err := hours.WeekHours()
	if err != nil {
		logger.Error().Err(err).Msg("invalid weekly hours")
		return
	}
	dates, err := hours.DateHours()
	if err != nil {
		logger.Error().Err(err).Msg("invalid date overrides")
		return
	}
	if err := svc.ApplyHours(ctx, week, dates); err != nil {
		logger.Error().Err(err).Msg("failed to apply hours config")
		return
	}
	logger.Info().Str("summary", hours.String()).Time("reloaded_at", time.Now()).Msg("hours config applied")
}

func startHealthServer(ctx context.Context, port int, audit *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if audit != nil {
			if err := audit.PingContext(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
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
