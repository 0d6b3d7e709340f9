package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/barberq/libs/config"
	"github.com/md-rashed-zaman/barberq/libs/db"
	"github.com/md-rashed-zaman/barberq/libs/grpcx"
	"github.com/md-rashed-zaman/barberq/libs/httpx"
	"github.com/md-rashed-zaman/barberq/libs/kafkax"
	otelx "github.com/md-rashed-zaman/barberq/libs/otel"
	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/libs/runtime"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/reminder"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/storage"
)

func main() {
	_ = runtime.LoadDotEnv()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	brokers := config.String("KAFKA_BROKERS", "")
	workers := runtime.NewWorkers(logger)
	outboxRepo := outbox.NewRepository()
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, nil, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	workers.Go(ctx, "outbox-publisher", publisher.Run)

	emailSender := email.NewSMTPSender(email.SMTPConfig{
		Host:     config.String("SMTP_HOST", "mailpit"),
		Port:     config.String("SMTP_PORT", "1025"),
		From:     config.String("SMTP_FROM", "no-reply@barberq.local"),
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
	})
	var smsSender sms.Sender
	switch provider := strings.ToLower(config.String("SMS_PROVIDER", "noop")); provider {
	case "noop":
		smsSender = sms.NewNoopSender()
	case "webhook":
		timeout, err := config.Duration("SMS_WEBHOOK_TIMEOUT", 5*time.Second)
		if err != nil {
			panic(err)
		}
		smsSender = sms.NewWebhookSender(sms.WebhookConfig{
			URL:     config.String("SMS_WEBHOOK_URL", ""),
			Token:   config.String("SMS_WEBHOOK_TOKEN", ""),
			Timeout: timeout,
		})
	default:
		logger.Error("unknown SMS_PROVIDER", "provider", provider)
		panic("unknown SMS_PROVIDER " + provider)
	}
	logger.Info("sms sender selected", "provider", smsSender.ProviderID())

	handler := reminder.NewHandler(pool, storage.NewRepository(), outboxRepo, smsSender, emailSender, logger, reminder.Config{
		FailSuffix: config.String("NOTIFICATION_FAIL_SUFFIX", ""),
	})
	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "booking.reminder.due.v1"),
	}, handler.Handle)
	workers.Go(ctx, "reminder-consumer", eventConsumer.Run)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if addr := config.String("BOOKING_GRPC_ADDR", ""); addr != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "booking-service", Check: grpcx.HealthReadyCheck(addr, "")})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
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
