// Package main - точка входа HTTP-сервиса зачислений EduLearn Hub.
//
// Сервис отвечает за зачисления и прогресс обучения:
// - провижининг зачислений из событий order.completed коммерческой системы
// - прогресс по урокам и попытки квизов с правилом "лучшая попытка побеждает"
// - запросы чтения для плеера курсов и кабинета преподавателя
// - уведомления и заявки на сертификаты по завершении курса
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: репозитории, внешние API, шина событий
// - Interface: REST endpoints и вебхук заказов
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edulearn-hub/enrollment-hub/config"

	// Application layer
	"github.com/edulearn-hub/enrollment-hub/internal/application/command"
	"github.com/edulearn-hub/enrollment-hub/internal/application/eventhandler"
	"github.com/edulearn-hub/enrollment-hub/internal/application/query"

	// Domain layer
	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/notification"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/shared"

	// Infrastructure layer
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/external/certificate"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/messaging"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/persistence/redis"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/edulearn-hub/enrollment-hub/internal/interface/http"
	"github.com/edulearn-hub/enrollment-hub/internal/interface/http/handlers"

	// Packages
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env файл опционален: в контейнерах окружение приходит извне
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupSlog(cfg)
	appLog := setupAppLogger(cfg)

	log.Info("starting EduLearn Hub enrollment service",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Без Redis сервис остаётся работоспособным: кеш зачислений выключен,
	// шина событий становится локальной, уведомления пишутся в лог.
	var redisCache *redis.Cache
	var enrollmentCache enrollment.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			enrollmentCache = redis.NewEnrollmentCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)
	quizRepo := postgres.NewQuizRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)
	processedEventRepo := postgres.NewProcessedEventRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS И DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log

	var eventBus shared.EventBus
	if redisCache != nil {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         &redisPubSubAdapter{cache: redisCache},
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		defer func() {
			log.Info("closing event bus...")
			_ = bus.Close()
		}()
		eventBus = bus
	} else {
		bus := messaging.NewInMemoryEventBus(localBusCfg)
		defer func() {
			log.Info("closing event bus...")
			_ = bus.Close()
		}()
		eventBus = bus
	}

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	var certClient *certificate.Client
	if cfg.Certificate.BaseURL != "" {
		log.Info("initializing certificate service client...")
		certCfg := certificate.DefaultClientConfig(cfg.Certificate.BaseURL)
		certCfg.APIKey = cfg.Certificate.APIKey
		certCfg.Timeout = cfg.Certificate.RequestTimeout
		certCfg.RateLimiterConfig.RequestsPerSecond = cfg.Certificate.RateLimit
		certCfg.RateLimiterConfig.BurstSize = cfg.Certificate.RateLimitBurst
		certCfg.Logger = log
		certCfg.Debug = cfg.App.Debug
		certClient = certificate.NewClient(certCfg)
	} else {
		log.Warn("certificate service not configured, completion certificates disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	provisionCmd := command.NewProvisionEnrollmentHandler(enrollmentRepo, courseRepo, eventBus, appLog)
	updateLessonCmd := command.NewUpdateLessonProgressHandler(enrollmentRepo, enrollmentCache, eventBus, appLog)
	submitQuizCmd := command.NewSubmitQuizAttemptHandler(enrollmentRepo, quizRepo, enrollmentCache, eventBus, appLog)
	dropEnrollmentCmd := command.NewDropEnrollmentHandler(enrollmentRepo, enrollmentCache, eventBus, appLog)
	deleteEnrollmentCmd := command.NewDeleteEnrollmentHandler(enrollmentRepo, enrollmentCache, appLog)

	getEnrollmentQuery := query.NewGetEnrollmentHandler(enrollmentRepo, enrollmentCache, appLog)
	listEnrollmentsQuery := query.NewListStudentEnrollmentsHandler(enrollmentRepo, appLog)
	courseProgressQuery := query.NewGetCourseProgressHandler(enrollmentRepo, appLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	// Доставка уведомлений: push через Redis Pub/Sub или в лог
	var sender notification.Sender
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureNotifyPushDelivery, nil) {
		sender = service.NewPushSender(redisCache, log)
	} else {
		sender = service.NewLogSender(log)
	}

	// order.completed регистрируется синхронно: ошибка провижининга
	// доходит до вебхука, коммерческая система доставляет событие повторно
	orderHandler := eventhandler.NewOnOrderCompletedHandler(processedEventRepo, provisionCmd, log)
	if err := dispatcher.RegisterSync(orderHandler.EventType(), "on_order_completed", orderHandler.Handle); err != nil {
		return fmt.Errorf("failed to register order handler: %w", err)
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyEnrollmentCreated, nil) {
		h := eventhandler.NewOnEnrollmentCreatedHandler(courseRepo, notificationRepo, sender, log)
		if err := dispatcher.Register(h.EventType(), "on_enrollment_created", h.Handle); err != nil {
			return fmt.Errorf("failed to register enrollment created handler: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyUnitCompleted, nil) {
		h := eventhandler.NewOnUnitCompletedHandler(notificationRepo, sender, log)
		if err := dispatcher.Register(h.EventType(), "on_unit_completed", h.Handle); err != nil {
			return fmt.Errorf("failed to register unit completed handler: %w", err)
		}
	}

	// Запрос сертификата ретраится диспетчером, исчерпанные попытки
	// остаются в DLQ для ручного повтора
	var certRequester eventhandler.CertificateRequester
	if certClient != nil && cfg.Features.IsEnabled(config.FeatureCertificateAutoRequest, nil) {
		certRequester = certClient
	}
	courseCompletedHandler := eventhandler.NewOnCourseCompletedHandler(certRequester, notificationRepo, sender, log)
	if err := dispatcher.Register(courseCompletedHandler.EventType(), "on_course_completed", courseCompletedHandler.Handle); err != nil {
		return fmt.Errorf("failed to register course completed handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if certClient != nil {
		healthChecker.AddCheck("certificate_service", handlers.NewCertificateServiceCheck(certClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes
	httpCfg.WebhookSecret = cfg.HTTP.WebhookSecret

	httpDeps := httpserver.Dependencies{
		UpdateLessonProgressHandler:   updateLessonCmd,
		SubmitQuizAttemptHandler:      submitQuizCmd,
		DropEnrollmentHandler:         dropEnrollmentCmd,
		DeleteEnrollmentHandler:       deleteEnrollmentCmd,
		GetEnrollmentHandler:          getEnrollmentQuery,
		ListStudentEnrollmentsHandler: listEnrollmentsQuery,
		GetCourseProgressHandler:      courseProgressQuery,
		Logger:                        appLog,
		HealthChecker:                 healthChecker,
		OrderWebhook:                  handlers.NewOrderEventWebhook(dispatcher),
	}

	httpServer := httpserver.NewServer(httpCfg, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. ЗАПУСК СЕРВИСА
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpCfg.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("EduLearn Hub enrollment service is running",
		"http_address", httpCfg.Address(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// HTTP сервер первым: перестаём принимать новые запросы и вебхуки,
	// затем диспетчер и шина закрываются через defer
	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		log.Warn("shutdown completed with errors")
		return nil
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupSlog настраивает slog для инфраструктурных слоёв.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	switch cfg.Observability.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// setupAppLogger настраивает логгер application-слоя.
func setupAppLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// These adapt infrastructure implementations to messaging interfaces.
// ══════════════════════════════════════════════════════════════════════════════

// redisPubSubAdapter adapts redis.Cache to messaging.RedisClient.
// Publish bypasses the cache's JSON wrapping: the event bus hands over an
// already-serialized envelope.
type redisPubSubAdapter struct {
	cache  *redis.Cache
	pubsub interface{ Close() error }
}

// Publish implements messaging.RedisClient.
func (a *redisPubSubAdapter) Publish(ctx context.Context, channel string, message interface{}) error {
	return a.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe implements messaging.RedisClient.
func (a *redisPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	pubsub := a.cache.Subscribe(ctx, channels...)
	a.pubsub = pubsub

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close implements messaging.RedisClient. The underlying Redis connection is
// shared with the cache and closed there.
func (a *redisPubSubAdapter) Close() error {
	if a.pubsub != nil {
		return a.pubsub.Close()
	}
	return nil
}
