package worker

import "errors"

// Ошибки обработки job.
var (
	// ErrMissingParameter — обязательный параметр задачи не задан.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidResult — ответ функции не соответствует формату {statusCode, body}.
	ErrInvalidResult = errors.New("invalid function result")

	// ErrPayloadEncode — не удалось сериализовать payload вызова.
	ErrPayloadEncode = errors.New("payload encoding failed")

	// ErrCommandDelivery — финализирующая команда не доставлена.
	ErrCommandDelivery = errors.New("command delivery failed")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
