package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/whatodo/internal/calendar"
	"github.com/benvon/whatodo/internal/config"
	"github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/queue"
	"github.com/benvon/whatodo/internal/telemetry"
	"github.com/benvon/whatodo/internal/workers"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(logger.Options{
		Debug:      debugMode,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required")
	}

	zapLogger.Info("starting_worker",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("calendar", cfg.GoogleCalendarName),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName: "whatodo-worker",
		Version:     version,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	srv, calendarID, err := calendar.NewService(ctx, calendar.ServiceOptions{
		CredentialsFile: cfg.GoogleCredentialsFile,
		TokenFile:       cfg.GoogleTokenFile,
		CalendarName:    cfg.GoogleCalendarName,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_create_calendar_service", zap.Error(err))
	}
	exporter := calendar.NewExporter(srv, calendarID, cfg.Location(), zapLogger)

	eventQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := eventQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	gc := queue.NewGarbageCollector(eventQueue, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	msgs, errs, err := eventQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	syncer := workers.NewCalendarSync(exporter, eventQueue, zapLogger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		syncer.Run(ctx, msgs, errs)
	}()
	zapLogger.Info("worker_started", zap.String("calendar_id", calendarID))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		zapLogger.Info("worker_shutting_down")
	case <-done:
		zapLogger.Warn("worker_delivery_stopped")
	}

	cancel()
	<-done
	zapLogger.Info("worker_stopped")
}
