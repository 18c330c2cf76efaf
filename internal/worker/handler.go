package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/lambda-connector/internal/domain"
	"github.com/shaiso/lambda-connector/internal/engine"
	"github.com/shaiso/lambda-connector/internal/invoker"
	"github.com/shaiso/lambda-connector/internal/telemetry"
)

// Параметры задачи, которые читаются из overlay.
const (
	ParamFunctionName      = "functionName"
	ParamResultName        = "resultName"
	ParamFunctionErrorCode = "functionErrorCode"
	ParamBody              = "body"
)

// Суффиксы переменных результата.
const (
	suffixStatusCode = "StatusCode"
	suffixJSONString = "JsonString"
)

// JobClient — команды жизненного цикла job в workflow-движке.
// Каждая команда блокирует до подтверждения движком (или брокером).
type JobClient interface {
	Complete(ctx context.Context, jobKey int64, variables map[string]any) error
	Fail(ctx context.Context, jobKey int64, retries int, message string) error
	ThrowError(ctx context.Context, jobKey int64, errorCode, message string) error
}

// EnvironmentSource — источник переменных окружения для overlay.
type EnvironmentSource interface {
	Variables() map[string]any
}

// Journal — журнал обработанных job.
type Journal interface {
	Record(ctx context.Context, entry *domain.JournalEntry) error
}

// HandlerConfig — конфигурация JobHandler.
type HandlerConfig struct {
	// Invoker — вызов внешней функции (обязательно).
	Invoker invoker.Invoker

	// Client — команды workflow-движка (обязательно).
	Client JobClient

	// Environment — переменные окружения (опционально).
	Environment EnvironmentSource

	// Placeholders — обработчик шаблонов (опционально; если nil — NewPlaceholderProcessor()).
	Placeholders *engine.PlaceholderProcessor

	// Journal — журнал (опционально).
	Journal Journal

	// Logger
	Logger *slog.Logger
}

// JobHandler обрабатывает один job от начала до финализирующей команды.
//
// Handle не разделяет состояние между вызовами: overlay и параметры
// создаются заново для каждого job, поэтому JobHandler безопасен
// для параллельного использования.
type JobHandler struct {
	invoker      invoker.Invoker
	client       JobClient
	environment  EnvironmentSource
	placeholders *engine.PlaceholderProcessor
	journal      Journal
	logger       *slog.Logger
}

// NewJobHandler создаёт JobHandler.
func NewJobHandler(cfg HandlerConfig) *JobHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	placeholders := cfg.Placeholders
	if placeholders == nil {
		placeholders = engine.NewPlaceholderProcessor()
	}

	return &JobHandler{
		invoker:      cfg.Invoker,
		client:       cfg.Client,
		environment:  cfg.Environment,
		placeholders: placeholders,
		journal:      cfg.Journal,
		logger:       logger,
	}
}

// Handle обрабатывает job и отправляет ровно одну финализирующую команду:
// complete, fail или throw_error.
//
// Ошибки конфигурации, вызова и разбора результата не возвращаются:
// они превращаются в fail или throw_error. Ошибка возвращается только
// если сама команда не доставлена (тогда job будет доставлен повторно).
func (h *JobHandler) Handle(ctx context.Context, job *domain.Job) error {
	start := time.Now()
	logger := telemetry.WithJobKey(h.logger, job.Key, job.ProcessInstanceKey)

	params, outcome, variables := h.run(ctx, job, logger)
	cmd := decide(job, params, outcome, variables)

	if err := h.send(ctx, cmd); err != nil {
		logger.Error("failed to send command",
			"command", cmd.Type,
			"error", err,
		)
		return fmt.Errorf("%w: %s for job %d: %v", ErrCommandDelivery, cmd.Type, job.Key, err)
	}
	telemetry.ObserveCommand(string(cmd.Type))

	functionName := ""
	if params != nil {
		functionName = params.FunctionName
	}

	switch cmd.Type {
	case domain.CommandComplete:
		logger.Info("job completed",
			"function_name", functionName,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	case domain.CommandThrowError:
		logger.Warn("job threw error",
			"function_name", functionName,
			"error_code", cmd.ErrorCode,
			"error", cmd.ErrorMessage,
		)
	default:
		logger.Warn("job failed",
			"function_name", functionName,
			"retries", cmd.Retries,
			"outcome", outcome.Kind,
			"error", cmd.ErrorMessage,
		)
	}

	h.record(ctx, domain.NewJournalEntry(job, functionName, outcome.Kind, cmd, time.Since(start)), logger)
	return nil
}

// Parameters вычисляет параметры вызова для job без вызова функции.
func (h *JobHandler) Parameters(job *domain.Job) (*domain.CallParameters, error) {
	return h.callParameters(h.overlay(job))
}

// run выполняет шаги до классификации: overlay, параметры, вызов, разбор результата.
func (h *JobHandler) run(ctx context.Context, job *domain.Job, logger *slog.Logger) (*domain.CallParameters, domain.Outcome, map[string]any) {
	params, err := h.callParameters(h.overlay(job))
	if err != nil {
		logger.Warn("failed to resolve call parameters", "error", err)
		return nil, failure(err), nil
	}

	logger = telemetry.WithFunction(logger, params.FunctionName)
	logger.Debug("invoking function", "payload", params.Payload)

	start := time.Now()
	result, err := h.invoker.Invoke(ctx, params.FunctionName, params.Payload)
	outcome := classify(result, err)
	telemetry.ObserveInvocation(string(outcome.Kind), time.Since(start))

	if outcome.Kind == domain.OutcomeDeclaredError {
		var fnErr *invoker.FunctionError
		if errors.As(err, &fnErr) {
			logger.Info("function declared error", "detail", fnErr.Detail())
		}
	}

	if outcome.Kind != domain.OutcomeSuccess {
		return params, outcome, nil
	}

	variables, err := resultVariables(params.ResultName, outcome.ResultText)
	if err != nil {
		logger.Warn("failed to parse function result", "error", err)
		return params, failure(err), nil
	}

	return params, outcome, variables
}

// overlay строит overlay для job.
func (h *JobHandler) overlay(job *domain.Job) *engine.Overlay {
	var env map[string]any
	if h.environment != nil {
		env = h.environment.Variables()
	}

	return engine.BuildOverlay(engine.Sources{
		CustomHeaders:      job.CustomHeaders,
		Variables:          job.Variables,
		Environment:        env,
		JobKey:             job.Key,
		ProcessInstanceKey: job.ProcessInstanceKey,
	}, h.logger)
}

// callParameters вычисляет functionName, resultName, functionErrorCode и payload.
func (h *JobHandler) callParameters(o *engine.Overlay) (*domain.CallParameters, error) {
	functionName, ok, err := h.resolveParam(o, ParamFunctionName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, ParamFunctionName)
	}

	resultName, ok, err := h.resolveParam(o, ParamResultName)
	if err != nil {
		return nil, err
	}
	if !ok {
		resultName = functionName
	}

	params := &domain.CallParameters{
		FunctionName: functionName,
		ResultName:   resultName,
	}

	errorCode, ok, err := h.resolveParam(o, ParamFunctionErrorCode)
	if err != nil {
		return nil, err
	}
	if ok {
		params.FunctionErrorCode = &errorCode
	}

	payload, err := h.payload(o)
	if err != nil {
		return nil, err
	}
	params.Payload = payload

	return params, nil
}

// resolveParam читает параметр из overlay и раскрывает в нём шаблоны.
// Возвращает false, если параметр не задан.
func (h *JobHandler) resolveParam(o *engine.Overlay, name string) (string, bool, error) {
	tmpl, ok := o.GetString(name)
	if !ok {
		return "", false, nil
	}

	value, err := h.placeholders.Resolve(tmpl, o)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", name, err)
	}
	return value, true, nil
}

// payload вычисляет тело вызова:
//   - body задан строкой — раскрывается как шаблон
//   - body задан структурой — сериализуется в JSON без подстановок
//   - body не задан — сериализуются все значения overlay
func (h *JobHandler) payload(o *engine.Overlay) (string, error) {
	body, ok := o.Get(ParamBody)
	if !ok {
		return encodePayload(o.Variables())
	}

	if tmpl, isText := body.(string); isText {
		payload, err := h.placeholders.Resolve(tmpl, o)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", ParamBody, err)
		}
		return payload, nil
	}

	return encodePayload(body)
}

func encodePayload(v any) (string, error) {
	payload, err := engine.MarshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadEncode, err)
	}
	return payload, nil
}

// classify определяет результат вызова.
func classify(result string, err error) domain.Outcome {
	if err == nil {
		return domain.Outcome{Kind: domain.OutcomeSuccess, ResultText: result}
	}
	if invoker.IsFunctionError(err) {
		return domain.Outcome{Kind: domain.OutcomeDeclaredError, Message: err.Error()}
	}
	return failure(err)
}

func failure(err error) domain.Outcome {
	return domain.Outcome{Kind: domain.OutcomeUnexpectedFailure, Message: err.Error()}
}

// resultEnvelope — ответ функции.
type resultEnvelope struct {
	StatusCode int     `json:"statusCode"`
	Body       *string `json:"body"`
}

// resultVariables разбирает ответ функции в переменные результата:
//
//	<name>StatusCode — код ответа
//	<name>JsonString — тело ответа как строка
//	<name>           — тело ответа как структура
func resultVariables(name, resultText string) (map[string]any, error) {
	var envelope resultEnvelope
	if err := json.Unmarshal([]byte(resultText), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if envelope.Body == nil {
		return nil, fmt.Errorf("%w: body is missing", ErrInvalidResult)
	}

	body, err := decodeBody(*envelope.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: body is not JSON: %v", ErrInvalidResult, err)
	}

	return map[string]any{
		name + suffixStatusCode: envelope.StatusCode,
		name + suffixJSONString: *envelope.Body,
		name:                    body,
	}, nil
}

// decodeBody разбирает тело ответа, сохраняя точность чисел (json.Number).
func decodeBody(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return body, nil
}

// decide выбирает финализирующую команду.
func decide(job *domain.Job, params *domain.CallParameters, outcome domain.Outcome, variables map[string]any) *domain.Command {
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		return domain.CompleteCommand(job.Key, variables)
	case domain.OutcomeDeclaredError:
		if params.HasErrorCode() {
			return domain.ThrowErrorCommand(job.Key, *params.FunctionErrorCode, outcome.Message)
		}
	}
	return domain.FailCommand(job.Key, job.RemainingRetries(), outcome.Message)
}

// send отправляет команду в workflow-движок.
func (h *JobHandler) send(ctx context.Context, cmd *domain.Command) error {
	switch cmd.Type {
	case domain.CommandComplete:
		return h.client.Complete(ctx, cmd.JobKey, cmd.Variables)
	case domain.CommandThrowError:
		return h.client.ThrowError(ctx, cmd.JobKey, cmd.ErrorCode, cmd.ErrorMessage)
	default:
		return h.client.Fail(ctx, cmd.JobKey, cmd.Retries, cmd.ErrorMessage)
	}
}

// record пишет запись в журнал. Ошибка журнала не влияет на job.
func (h *JobHandler) record(ctx context.Context, entry *domain.JournalEntry, logger *slog.Logger) {
	if h.journal == nil {
		return
	}
	if err := h.journal.Record(ctx, entry); err != nil {
		logger.Warn("failed to record journal entry", "error", err)
	}
}
