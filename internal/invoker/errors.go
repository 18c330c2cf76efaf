package invoker

import (
	"errors"
	"fmt"
)

// ErrInvocation — вызов функции не состоялся (сеть, таймаут, ошибка провайдера).
var ErrInvocation = errors.New("function invocation failed")

// FunctionError — функция явно сообщила об ошибке.
//
// Отличается от ErrInvocation: транспорт отработал, но сама функция
// вернула ошибку. Только такие ошибки могут стать BPMN error event.
type FunctionError struct {
	// FunctionName — имя вызванной функции.
	FunctionName string

	// Kind — тип ошибки, как его сообщил провайдер (например, "Unhandled").
	Kind string

	// Message — сообщение об ошибке (обычно тело ответа функции).
	Message string
}

// Error реализует интерфейс error.
func (e *FunctionError) Error() string {
	return e.Message
}

// Detail возвращает развёрнутое описание ошибки для логов.
func (e *FunctionError) Detail() string {
	return fmt.Sprintf("failure invoking function '%s': %s: %s", e.FunctionName, e.Kind, e.Message)
}

// IsFunctionError проверяет, является ли ошибка FunctionError.
func IsFunctionError(err error) bool {
	var fnErr *FunctionError
	return errors.As(err, &fnErr)
}
