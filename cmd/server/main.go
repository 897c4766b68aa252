package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/whatodo/internal/chatlog"
	"github.com/benvon/whatodo/internal/config"
	"github.com/benvon/whatodo/internal/handlers"
	"github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/middleware"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/notify"
	"github.com/benvon/whatodo/internal/orchestrator"
	"github.com/benvon/whatodo/internal/queue"
	"github.com/benvon/whatodo/internal/schedule"
	"github.com/benvon/whatodo/internal/services/ai"
	"github.com/benvon/whatodo/internal/services/identity"
	"github.com/benvon/whatodo/internal/settings"
	"github.com/benvon/whatodo/internal/storage"
	"github.com/benvon/whatodo/internal/tasks"
	"github.com/benvon/whatodo/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

var version = "dev"

const (
	serviceName = "whatodo-api"
	// persistTimeout bounds each write-through from a store change hook
	persistTimeout = 5 * time.Second
	// aiTimeoutMargin leaves room to write the error response after AI_TIMEOUT fires
	aiTimeoutMargin = 10 * time.Second
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

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

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("ai_provider", cfg.AIProvider),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	kv, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StorageBackend,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_open_storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			zapLogger.Warn("failed_to_close_storage", zap.Error(err))
		}
	}()
	repo := storage.NewRepository(kv, zapLogger)
	zapLogger.Info("storage_opened", zap.String("backend", cfg.StorageBackend))

	publisher, closeQueue := connectPublisher(cfg, zapLogger)
	defer closeQueue()
	notifier := queue.NewScheduleNotifier(publisher)

	taskStore, sched, prefs := buildStores(ctx, cfg, repo, notifier, zapLogger)

	session := identity.NewSession(cfg.OpenAIKey)
	completer, err := buildProvider(cfg, session, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}

	chat := chatlog.New()
	notices := notify.NewCenter(notify.DefaultTTL)
	defer notices.Close()

	orch := orchestrator.New(orchestrator.Deps{
		AI:        completer,
		Tasks:     taskStore,
		Schedule:  sched,
		Chat:      chat,
		Settings:  prefs,
		Notifier:  notices,
		Publisher: notifier,
	}, orchestrator.Options{
		Timeout:       cfg.AITimeout,
		HistoryWindow: cfg.ChatHistoryWindow,
		Logger:        zapLogger,
	})

	var limiterClient *redis.Client
	if rkv, ok := kv.(*storage.RedisKV); ok {
		limiterClient = rkv.Client()
	}
	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, limiterClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	requestTimeout := cfg.AITimeout + aiTimeoutMargin
	if requestTimeout < middleware.DefaultRequestTimeout {
		requestTimeout = middleware.DefaultRequestTimeout
	}

	// mux runs middleware in registration order, first registered is outermost
	r := mux.NewRouter()
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(requestTimeout))

	checks := map[string]handlers.CheckFunc{"storage": kv.Ping}
	if hc, ok := publisher.(interface{ HealthCheck(context.Context) error }); ok {
		checks["queue"] = hc.HealthCheck
	}
	handlers.NewHealthChecker(version, checks).RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	handlers.API{
		Tasks:     handlers.NewTaskHandler(taskStore),
		Schedule:  handlers.NewScheduleHandler(sched, orch, chat),
		Snapshots: handlers.NewSnapshotHandler(sched),
		Settings:  handlers.NewSettingsHandler(prefs, session, notices, orch),
	}.Register(r.PathPrefix("/api/v1").Subrouter(), rateLimitMW)

	// CORS answers preflights before routing; this catches OPTIONS on paths without an OPTIONS route
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   requestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// buildStores restores persisted state and wires write-through persistence.
// Schedule changes are also published so the calendar export follows manual edits.
func buildStores(ctx context.Context, cfg *config.Config, repo *storage.Repository, notifier *queue.ScheduleNotifier, zapLogger *zap.Logger) (*tasks.Store, *schedule.Store, *settings.Store) {
	persist := func(what string, save func(context.Context) error) {
		saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := save(saveCtx); err != nil {
			zapLogger.Error("failed_to_persist", zap.String("document", what), zap.Error(err))
		}
	}

	taskStore := tasks.NewStore(
		tasks.WithLogger(zapLogger),
		tasks.WithChangeHook(func(all []models.Task) {
			persist(storage.KeyTasks, func(ctx context.Context) error { return repo.SaveTasks(ctx, all) })
		}),
	)
	sched := schedule.NewStore(
		schedule.WithDefaultStart(cfg.DefaultStartTime),
		schedule.WithTaskSink(taskStore),
		schedule.WithLogger(zapLogger),
		schedule.WithChangeHook(func(state models.ScheduleState) {
			persist(storage.KeyTimetable, func(ctx context.Context) error { return repo.SaveSchedule(ctx, state) })
			publishCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := notifier.Changed(publishCtx, state); err != nil {
				zapLogger.Warn("event_publish_failed", zap.String("date", state.Date), zap.Int("blocks", len(state.Blocks)), zap.Error(err))
			}
		}),
	)
	taskStore.SetRenameHook(sched.RetitleTask)
	prefs := settings.NewStore(func(s models.Settings) {
		persist(storage.KeySettings, func(ctx context.Context) error { return repo.SaveSettings(ctx, s) })
	})

	// A document that fails to load starts empty rather than blocking startup
	if all, err := repo.LoadTasks(ctx); err != nil {
		zapLogger.Warn("failed_to_load_tasks", zap.Error(err))
	} else {
		taskStore.Replace(all)
	}
	if state, err := repo.LoadSchedule(ctx); err != nil {
		zapLogger.Warn("failed_to_load_schedule", zap.Error(err))
	} else {
		sched.Restore(state)
	}
	if s, err := repo.LoadSettings(ctx); err != nil {
		zapLogger.Warn("failed_to_load_settings", zap.Error(err))
	} else {
		prefs.Replace(s)
	}

	zapLogger.Info("state_restored",
		zap.Int("tasks", len(taskStore.All())),
		zap.Int("blocks", sched.Len()),
		zap.Int("snapshots", len(sched.Snapshots())),
	)
	return taskStore, sched, prefs
}

// buildProvider resolves the configured provider; the key comes from session on every call
func buildProvider(cfg *config.Config, session *identity.Session, zapLogger *zap.Logger, debugMode bool) (ai.Completer, error) {
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry, zapLogger, debugMode)
	return registry.GetProvider(cfg.AIProvider, map[string]string{
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
		"timeout":  cfg.AITimeout.String(),
	}, session)
}

// connectPublisher dials RabbitMQ with backoff. Without RABBITMQ_URL schedule
// events are dropped and calendar export is off.
func connectPublisher(cfg *config.Config, zapLogger *zap.Logger) (queue.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		zapLogger.Info("event_queue_disabled")
		return queue.NoopPublisher{}, func() {}
	}

	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q, func() {
				if err := q.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}
		}
		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Int("max_retries", maxRetries), zap.Error(lastErr))
	return nil, nil
}
