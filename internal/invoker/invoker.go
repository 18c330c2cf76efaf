package invoker

import (
	"context"
	"fmt"
	"log/slog"
)

// Invoker — клиент внешней функции.
//
// Invoke синхронно вызывает функцию и возвращает её ответ.
// Если функция явно сообщила об ошибке, возвращается *FunctionError;
// любые другие ошибки оборачивают ErrInvocation.
//
// Реализации: LambdaInvoker (AWS Lambda), HTTPInvoker (HTTP endpoint
// с контрактом Lambda invoke API).
type Invoker interface {
	Invoke(ctx context.Context, functionName, payload string) (string, error)
}

// Виды invoker'а.
const (
	KindLambda = "lambda"
	KindHTTP   = "http"
)

// Options — выбор и настройка реализации Invoker.
type Options struct {
	// Kind — lambda (по умолчанию) или http.
	Kind   string
	HTTP   HTTPConfig
	Lambda LambdaConfig
}

// New создаёт Invoker по Options.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Invoker, error) {
	switch opts.Kind {
	case KindLambda, "":
		client, err := NewLambdaClient(ctx, opts.Lambda, logger)
		if err != nil {
			return nil, err
		}
		return NewLambdaInvoker(client, logger), nil
	case KindHTTP:
		return NewHTTPInvoker(opts.HTTP, logger)
	default:
		return nil, fmt.Errorf("%w: unknown invoker kind %q", ErrInvocation, opts.Kind)
	}
}
