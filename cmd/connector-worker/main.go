// Connector Worker — выполняет jobs workflow-движка через внешние функции.
//
// Worker:
//   - Получает активированные jobs из RabbitMQ
//   - Вычисляет параметры вызова из custom headers, переменных и окружения
//   - Вызывает функцию (AWS Lambda или HTTP endpoint)
//   - Отправляет ровно одну команду: complete, fail или throw_error
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/lambda-connector/internal/api"
	"github.com/shaiso/lambda-connector/internal/config"
	"github.com/shaiso/lambda-connector/internal/environment"
	"github.com/shaiso/lambda-connector/internal/invoker"
	"github.com/shaiso/lambda-connector/internal/mq"
	"github.com/shaiso/lambda-connector/internal/repo"
	"github.com/shaiso/lambda-connector/internal/telemetry"
	"github.com/shaiso/lambda-connector/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting connector-worker", "job_type", cfg.AMQP.JobType, "invoker", cfg.Invoker.Kind)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Переменные окружения для overlay
	env, err := environment.New(cfg.EnvironmentConfig(logger))
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		os.Exit(1)
	}
	if err := env.Start(ctx); err != nil {
		logger.Error("failed to start environment provider", "error", err)
		os.Exit(1)
	}
	defer env.Stop()

	// Invoker
	inv, err := invoker.New(ctx, cfg.InvokerOptions(), logger)
	if err != nil {
		logger.Error("failed to create invoker", "error", err)
		os.Exit(1)
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.AMQP.URL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn, cfg.AMQP.JobType); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	logger.Debug(mq.TopologyInfo(cfg.AMQP.JobType))

	publisher := mq.NewPublisher(mqConn, logger)

	// Журнал (опционально)
	var journal worker.Journal
	var journalReader api.JournalReader
	if cfg.DB.Journal {
		pool, err := repo.NewPool(ctx, cfg.DB.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journalRepo := repo.NewJournalRepo(pool)
		if err := journalRepo.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare journal", "error", err)
			os.Exit(1)
		}
		journal = journalRepo
		journalReader = journalRepo
		logger.Info("job journal enabled")
	}

	handler := worker.NewJobHandler(worker.HandlerConfig{
		Invoker:     inv,
		Client:      mq.NewCommandPublisher(publisher),
		Environment: env,
		Journal:     journal,
		Logger:      logger,
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Conn:        mqConn,
		Processor:   handler,
		JobType:     cfg.AMQP.JobType,
		Prefetch:    cfg.AMQP.Prefetch,
		Concurrency: cfg.AMQP.Concurrency,
		Logger:      logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz, /metrics, /api/v1/journal
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Journal: journalReader,
		Checks: map[string]api.Check{
			"amqp":   mqConn.IsConnected,
			"worker": func() bool { return !w.IsStopped() },
		},
		Logger: logger,
	}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker: jobs в обработке завершаются и финализируются
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}

	logger.Info("connector-worker stopped")
}
