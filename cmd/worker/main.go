// Package main - точка входа фоновых процессов (Worker) EduLearn Hub.
//
// Worker отвечает за периодические задачи:
// - очистка журнала обработанных событий за горизонтом redelivery
// - сверка денормализованных счётчиков зачислений по курсам
//
// Worker не обслуживает HTTP-трафик и не подписывается на события:
// он делит с сервисом только базу данных и схему миграций.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edulearn-hub/enrollment-hub/config"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/scheduler"
	"github.com/edulearn-hub/enrollment-hub/internal/infrastructure/scheduler/jobs"
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
	log := setupLogger(cfg)
	log.Info("starting EduLearn Hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, nothing to do")
		return nil
	}

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
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	courseRepo := postgres.NewCourseRepository(dbConn)
	processedEventRepo := postgres.NewProcessedEventRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕГИСТРАЦИЯ ЗАДАЧ В SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger: log,
	})

	purgeCron, err := scheduler.ParseCronExpression(cfg.Scheduler.PurgeCron)
	if err != nil {
		return fmt.Errorf("invalid purge cron expression %q: %w", cfg.Scheduler.PurgeCron, err)
	}

	purgeCfg := jobs.DefaultPurgeProcessedEventsConfig()
	purgeCfg.Retention = cfg.Scheduler.PurgeRetention
	if cfg.Scheduler.JobTimeout > 0 {
		purgeCfg.Timeout = cfg.Scheduler.JobTimeout
	}
	purgeJob := jobs.NewPurgeProcessedEventsJob(processedEventRepo, log, purgeCfg)
	if err := sched.Register(purgeJob, purgeCron); err != nil {
		return fmt.Errorf("failed to register purge job: %w", err)
	}

	reconcileCfg := jobs.DefaultReconcileEnrollmentCountsConfig()
	if cfg.Scheduler.JobTimeout > 0 {
		reconcileCfg.Timeout = cfg.Scheduler.JobTimeout
	}
	reconcileJob := jobs.NewReconcileEnrollmentCountsJob(courseRepo, log, reconcileCfg)
	reconcileSchedule := scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileInterval)
	if err := sched.Register(reconcileJob, reconcileSchedule); err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("EduLearn Hub worker is running",
		"purge_cron", cfg.Scheduler.PurgeCron,
		"purge_retention", cfg.Scheduler.PurgeRetention.String(),
		"reconcile_interval", cfg.Scheduler.ReconcileInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		log.Warn("shutdown completed with errors")
		return nil
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
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
