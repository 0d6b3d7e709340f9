package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/barberq/libs/auth"
	"github.com/md-rashed-zaman/barberq/libs/config"
	"github.com/md-rashed-zaman/barberq/libs/db"
	"github.com/md-rashed-zaman/barberq/libs/grpcx"
	"github.com/md-rashed-zaman/barberq/libs/httpx"
	"github.com/md-rashed-zaman/barberq/libs/kafkax"
	otelx "github.com/md-rashed-zaman/barberq/libs/otel"
	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/libs/runtime"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/checkin"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/reminder"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/sweeper"
)

func main() {
	_ = runtime.LoadDotEnv()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := config.Location("BUSINESS_TIMEZONE", "UTC")
	if err != nil {
		panic(err)
	}
	calendar, err := loadCalendar()
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	horizon, err := config.Int("BOOKING_HORIZON_DAYS", booking.DefaultHorizonDays)
	if err != nil {
		panic(err)
	}

	m := metrics.New(nil)
	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo, storage.WithProviderSeed(config.Bool("SEED_PROVIDERS", true)))
	manager := booking.NewManager(repo, calendar, logger,
		booking.WithLocation(loc),
		booking.WithMetrics(m),
		booking.WithHorizonDays(horizon),
	)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}

	var (
		rdb     *redis.Client
		limiter httpx.Limiter
		dedupe  reminder.Deduper
	)
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	dedupeTTL, err := config.Duration("REMINDER_DEDUPE_TTL", 24*time.Hour)
	if err != nil {
		panic(err)
	}
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
		dedupe = reminder.NewRedisDeduper(rdb, dedupeTTL, config.String("REMINDER_DEDUPE_PREFIX", "reminder"))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis enabled", "redis_addr", addr)
	} else {
		limiter = httpx.NewRateLimiter(limitPerMinute, time.Minute)
		dedupe = reminder.NewMemoryDeduper(dedupeTTL)
		logger.Info("redis not configured; using in-memory rate limit and reminder dedupe")
	}

	sweepEvery, err := config.Duration("SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		panic(err)
	}
	remindEvery, err := config.Duration("REMINDER_INTERVAL", 30*time.Second)
	if err != nil {
		panic(err)
	}
	remindLead, err := config.Duration("REMINDER_LEAD", 30*time.Minute)
	if err != nil {
		panic(err)
	}

	workers := runtime.NewWorkers(logger)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, m, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	workers.Go(ctx, "outbox-publisher", publisher.Run)
	workers.Go(ctx, "expiry-sweeper", sweeper.New(manager, logger, m, sweeper.Config{Interval: sweepEvery}).Run)
	notifier := reminder.NewNotifier(manager, dedupe, reminder.NewOutboxSender(repo, loc), logger, m, reminder.Config{
		Interval: remindEvery,
		Lead:     remindLead,
	})
	workers.Go(ctx, "reminder-notifier", notifier.Run)

	grpcSrv := grpcx.NewServer()
	grpcx.RegisterHealth(grpcSrv, service)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	workers.Go(ctx, "grpc-health", func(ctx context.Context) { grpcx.Serve(ctx, logger, grpcSrv, lis) })

	var keys auth.KeySource
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		jwksTTL, err := config.Duration("JWKS_CACHE_TTL", 5*time.Minute)
		if err != nil {
			panic(err)
		}
		keys = auth.NewJWKSClient(jwksURL, jwksTTL)
	}
	verifier := auth.NewVerifier(config.String("JWT_SECRET", "dev-secret"), keys)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("GET /metrics", m.Handler())
	h := handlers.New(manager, repo, checkin.NewProcessor(manager, logger, m), logger)
	h.Register(mux, verifier)

	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-Id"}),
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
		httpx.RateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if !workers.Wait(10 * time.Second) {
		logger.Warn("background workers did not stop in time")
	}
	logger.Info("http server stopped")
}

// loadCalendar reads BOOKING_HOLIDAYS (YYYY-MM-DD list, built-in list when
// unset) and BOOKING_WEEKEND_DAYS (three-letter names, sat,sun when unset).
func loadCalendar() (*availability.Calendar, error) {
	holidays := availability.DefaultHolidays()
	if raw := config.List("BOOKING_HOLIDAYS", nil); len(raw) > 0 {
		parsed, err := availability.ParseHolidays(raw)
		if err != nil {
			return nil, err
		}
		holidays = parsed
	}
	weekend, err := availability.ParseWeekdays(config.List("BOOKING_WEEKEND_DAYS", []string{"sat", "sun"}))
	if err != nil {
		return nil, err
	}
	return availability.NewCalendar(holidays, weekend...), nil
}
