package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/lambda-connector/internal/engine"
)

const defaultReloadInterval = 15 * time.Second

// ErrRemoteVariables — не удалось загрузить переменные с удалённого адреса.
var ErrRemoteVariables = errors.New("remote environment variables unavailable")

// Config — конфигурация Provider.
type Config struct {
	// Prefix — префикс переменных процесса (например, "CONNECTOR_VAR_").
	// Префикс отрезается от имени. Пустой префикс отключает источник.
	Prefix string

	// File — путь к .env файлу (опционально).
	File string

	// URL — адрес JSON-документа с переменными (опционально).
	URL string

	// ReloadInterval — период перезагрузки удалённых переменных. Default: 15s
	ReloadInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// Provider — источник переменных окружения для overlay.
//
// Источники (поздние перекрывают ранние):
//
//	.env файл < переменные процесса с префиксом < удалённый JSON-документ
//
// Удалённые переменные кэшируются и перезагружаются по расписанию.
// Variables() всегда возвращает копию: обработки job не разделяют состояние.
type Provider struct {
	prefix   string
	file     string
	url      string
	interval time.Duration
	client   *resty.Client
	logger   *slog.Logger

	mu     sync.RWMutex
	local  map[string]string
	remote map[string]string

	cron *cron.Cron
}

// New создаёт Provider и загружает локальные источники (файл и процесс).
func New(cfg Config) (*Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.ReloadInterval
	if interval <= 0 {
		interval = defaultReloadInterval
	}

	p := &Provider{
		prefix:   cfg.Prefix,
		file:     cfg.File,
		url:      cfg.URL,
		interval: interval,
		logger:   logger,
		remote:   make(map[string]string),
	}

	if p.url != "" {
		p.client = resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json")
	}

	local, err := p.loadLocal()
	if err != nil {
		return nil, err
	}
	p.local = local

	return p, nil
}

// loadLocal читает .env файл и переменные процесса.
func (p *Provider) loadLocal() (map[string]string, error) {
	fromFile := make(map[string]string)
	if p.file != "" {
		vars, err := godotenv.Read(p.file)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read env file %s: %w", p.file, err)
			}
			p.logger.Warn("env file not found", "file", p.file)
		} else {
			fromFile = vars
		}
	}

	return merge(fromFile, processVariables(p.prefix))
}

// processVariables возвращает переменные процесса с префиксом (без префикса в имени).
func processVariables(prefix string) map[string]string {
	vars := make(map[string]string)
	if prefix == "" {
		return vars
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			continue
		}
		vars[name] = value
	}
	return vars
}

// merge объединяет map, значения из override перекрывают base.
func merge(base, override map[string]string) (map[string]string, error) {
	result := make(map[string]string, len(base)+len(override))
	if err := mergo.Merge(&result, base, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge environment: %w", err)
	}
	if err := mergo.Merge(&result, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge environment: %w", err)
	}
	return result, nil
}

// Start выполняет первую загрузку удалённых переменных и запускает
// периодическую перезагрузку. Без URL ничего не делает.
//
// Ошибка первой загрузки логируется: воркер продолжает работу
// с локальными переменными.
func (p *Provider) Start(ctx context.Context) error {
	if p.url == "" {
		return nil
	}

	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("initial load of remote environment variables failed", "url", p.url, "error", err)
	}

	p.cron = cron.New()
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() {
		if err := p.Refresh(ctx); err != nil {
			p.logger.Warn("reload of remote environment variables failed", "url", p.url, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule env reload %q: %w", spec, err)
	}
	p.cron.Start()

	p.logger.Info("environment reload scheduled", "url", p.url, "interval", p.interval)
	return nil
}

// Stop останавливает перезагрузку.
func (p *Provider) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// Refresh загружает удалённые переменные.
// При ошибке предыдущие значения сохраняются.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.url == "" {
		return nil
	}

	resp, err := p.client.R().
		SetContext(ctx).
		Get(p.url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteVariables, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: HTTP %d", ErrRemoteVariables, resp.StatusCode())
	}

	var vars map[string]any
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&vars); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrRemoteVariables, err)
	}

	// Значения приводятся к тексту так же, как в overlay
	remote := make(map[string]string, len(vars))
	for key, val := range vars {
		if val == nil {
			continue
		}
		text, err := engine.Text(val)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRemoteVariables, key, err)
		}
		remote[key] = text
	}

	p.mu.Lock()
	p.remote = remote
	p.mu.Unlock()

	p.logger.Debug("remote environment variables loaded", "count", len(remote))
	return nil
}

// Variables возвращает копию всех переменных окружения.
func (p *Provider) Variables() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]any, len(p.local)+len(p.remote))
	for key, val := range p.local {
		result[key] = val
	}
	for key, val := range p.remote {
		result[key] = val
	}
	return result
}

// Static — фиксированный набор переменных (для CLI и тестов).
type Static map[string]any

// Variables возвращает копию набора.
func (s Static) Variables() map[string]any {
	return maps.Clone(map[string]any(s))
}
