package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shaiso/lambda-connector/internal/config"
	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/environment"
)

// Deps — ленивые зависимости команд.
// Создаются после парсинга PersistentFlags.
type Deps struct {
	// Config загружает конфигурацию коннектора.
	Config func() (*config.Config, error)

	// Output создаёт Output.
	Output func() *Output

	// Logger создаёт логгер для указанной конфигурации
	// (опционально; по умолчанию логи отключены ниже WARN в stderr).
	Logger func(cfg *config.Config) *slog.Logger
}

func (d Deps) logger(cfg *config.Config) *slog.Logger {
	if d.Logger != nil {
		return d.Logger(cfg)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// environmentProvider создаёт провайдер переменных окружения
// и однократно загружает удалённые переменные.
func environmentProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*environment.Provider, error) {
	env, err := environment.New(cfg.EnvironmentConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("create environment provider: %w", err)
	}
	if err := env.Refresh(ctx); err != nil {
		return nil, err
	}
	return env, nil
}

// loadJob читает job из JSON файла ("-" — stdin).
func loadJob(path string, stdin io.Reader) (*domain.Job, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open job file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var job domain.Job
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", path, err)
	}
	return &job, nil
}
