package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// JournalReader — чтение журнала обработанных job.
type JournalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, error)
	ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error)
	ListByJobKey(ctx context.Context, jobKey int64) ([]domain.JournalEntry, error)
}

// Check — проверка готовности компонента. Возвращает false, если компонент недоступен.
type Check func() bool

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	journal JournalReader
	checks  map[string]Check
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Journal — журнал (опционально; без него /api/v1/journal отвечает 404).
	Journal JournalReader

	// Checks — проверки готовности по имени компонента.
	Checks map[string]Check

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		journal: cfg.Journal,
		checks:  cfg.Checks,
		logger:  logger,
	}
}
