package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/mq"
	"github.com/shaiso/lambda-connector/internal/telemetry"
)

// Default configuration values.
const (
	defaultJobType     = "lambda"
	defaultPrefetch    = 5
	defaultConcurrency = 5
)

// Processor обрабатывает один job. Реализуется JobHandler.
type Processor interface {
	Handle(ctx context.Context, job *domain.Job) error
}

// Worker получает активированные job из очереди jobs.<type>
// и передаёт их Processor.
//
// Worker — stateless компонент: несколько экземпляров
// потребляют из одной очереди.
type Worker struct {
	conn      *mq.Connection
	processor Processor

	jobType     string
	prefetch    int
	concurrency int

	consumer *mq.Consumer

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Conn — соединение с RabbitMQ.
	Conn *mq.Connection

	// Processor — обработчик job (обязательно).
	Processor Processor

	// JobType — тип обрабатываемых job (default: lambda).
	JobType string

	// Prefetch — prefetch consumer'а (default: 5).
	Prefetch int

	// Concurrency — максимум параллельно обрабатываемых job (default: 5).
	Concurrency int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	jobType := cfg.JobType
	if jobType == "" {
		jobType = defaultJobType
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		conn:        cfg.Conn,
		processor:   cfg.Processor,
		jobType:     jobType,
		prefetch:    prefetch,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start запускает consumer очереди jobs.<type>.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	queue := mq.JobQueue(w.jobType)

	w.logger.Info("starting worker",
		"queue", queue,
		"prefetch", w.prefetch,
		"concurrency", w.concurrency,
	)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:       string(queue),
		Handler:     w.handleJobActivated,
		Prefetch:    w.prefetch,
		Concurrency: w.concurrency,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("job consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и дожидается начатых обработок.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// handleJobActivated обрабатывает сообщение job.activated.
func (w *Worker) handleJobActivated(ctx context.Context, delivery *mq.Delivery) error {
	logger := telemetry.FromContext(ctx)

	job, err := decodeJob(&delivery.Message)
	if err != nil {
		logger.Error("failed to parse job.activated payload", "error", err)
		return err
	}

	logger.Debug("received job.activated event",
		"job_key", job.Key,
		"process_instance_key", job.ProcessInstanceKey,
		"retries", job.Retries,
	)

	// Ошибка означает, что команда не доставлена: сообщение вернётся в очередь
	return w.processor.Handle(ctx, job)
}

// decodeJob извлекает job из сообщения.
// Некорректные сообщения отклоняются в DLQ.
func decodeJob(msg *mq.Message) (*domain.Job, error) {
	if msg.Type != mq.MessageTypeJobActivated {
		return nil, fmt.Errorf("%w: unexpected message type %q", mq.ErrRejected, msg.Type)
	}

	job, err := mq.ParsePayload[domain.Job](msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mq.ErrRejected, err)
	}
	if job.Key == 0 {
		return nil, fmt.Errorf("%w: job key is missing", mq.ErrRejected)
	}

	return &job, nil
}
