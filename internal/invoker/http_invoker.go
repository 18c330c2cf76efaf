package invoker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Значения по умолчанию для HTTPInvoker.
const (
	DefaultInvokePath          = "/2015-03-31/functions/{name}/invocations"
	DefaultFunctionErrorHeader = "X-Amz-Function-Error"
	defaultHTTPTimeout         = 30 * time.Second
)

// HTTPConfig — конфигурация HTTPInvoker.
type HTTPConfig struct {
	// BaseURL — адрес сервиса функций (обязательно).
	BaseURL string

	// Path — путь вызова, {name} заменяется именем функции.
	// Default: /2015-03-31/functions/{name}/invocations
	Path string

	// FunctionErrorHeader — заголовок, которым функция сообщает об ошибке.
	// Default: X-Amz-Function-Error
	FunctionErrorHeader string

	// Timeout — таймаут одного вызова. Default: 30s
	Timeout time.Duration
}

// HTTPInvoker вызывает функции через HTTP endpoint с контрактом Lambda invoke API
// (Lambda Runtime Interface Emulator, LocalStack, совместимые шлюзы).
//
// Ответ:
//   - заголовок FunctionErrorHeader — FunctionError
//   - HTTP >= 400 и сетевые ошибки — ErrInvocation
//   - иначе — payload функции
type HTTPInvoker struct {
	client      *resty.Client
	path        string
	errorHeader string
	logger      *slog.Logger
}

// NewHTTPInvoker создаёт HTTPInvoker.
func NewHTTPInvoker(cfg HTTPConfig, logger *slog.Logger) (*HTTPInvoker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvocation)
	}

	path := cfg.Path
	if path == "" {
		path = DefaultInvokePath
	}

	errorHeader := cfg.FunctionErrorHeader
	if errorHeader == "" {
		errorHeader = DefaultFunctionErrorHeader
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPInvoker{
		client:      client,
		path:        path,
		errorHeader: errorHeader,
		logger:      logger,
	}, nil
}

// Invoke вызывает функцию и возвращает тело ответа.
func (i *HTTPInvoker) Invoke(ctx context.Context, functionName, payload string) (string, error) {
	resp, err := i.client.R().
		SetContext(ctx).
		SetPathParam("name", functionName).
		SetBody(payload).
		Post(i.path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvocation, functionName, err)
	}

	body := resp.String()

	if kind := resp.Header().Get(i.errorHeader); kind != "" {
		i.logger.Info("function returned error",
			"function_name", functionName,
			"kind", kind,
			"payload", body,
		)
		return "", &FunctionError{
			FunctionName: functionName,
			Kind:         kind,
			Message:      body,
		}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s: HTTP %d: %s", ErrInvocation, functionName, resp.StatusCode(), truncate(body, 200))
	}

	i.logger.Info("function invoked",
		"function_name", functionName,
		"status_code", resp.StatusCode(),
		"result", body,
	)

	return body, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
