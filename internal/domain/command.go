package domain

// CommandType — тип финализирующей команды для job.
//
// На каждый job отправляется ровно одна команда:
//
//	complete     — функция выполнена, переменные результата записаны
//	fail         — техническая ошибка, движок уменьшит retries
//	throw_error  — бизнес-ошибка, моделируемая BPMN error event
type CommandType string

const (
	// CommandComplete — успешное завершение job.
	CommandComplete CommandType = "complete"

	// CommandFail — job завершился ошибкой (retries уменьшаются).
	CommandFail CommandType = "fail"

	// CommandThrowError — job выбросил BPMN-ошибку.
	CommandThrowError CommandType = "throw_error"
)

// IsFailure возвращает true для команд, сообщающих об ошибке.
func (c CommandType) IsFailure() bool {
	return c == CommandFail || c == CommandThrowError
}

// Command — финализирующая команда для workflow-движка.
type Command struct {
	// Type — тип команды.
	Type CommandType `json:"type"`

	// JobKey — ключ job.
	JobKey int64 `json:"jobKey"`

	// Variables — переменные результата (только для complete).
	Variables map[string]any `json:"variables,omitempty"`

	// Retries — оставшиеся попытки (только для fail).
	Retries int `json:"retries,omitempty"`

	// ErrorCode — код BPMN-ошибки (только для throw_error).
	ErrorCode string `json:"errorCode,omitempty"`

	// ErrorMessage — сообщение об ошибке (fail и throw_error).
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// CompleteCommand создаёт команду complete.
func CompleteCommand(jobKey int64, variables map[string]any) *Command {
	if variables == nil {
		variables = make(map[string]any)
	}
	return &Command{
		Type:      CommandComplete,
		JobKey:    jobKey,
		Variables: variables,
	}
}

// FailCommand создаёт команду fail.
func FailCommand(jobKey int64, retries int, message string) *Command {
	return &Command{
		Type:         CommandFail,
		JobKey:       jobKey,
		Retries:      retries,
		ErrorMessage: message,
	}
}

// ThrowErrorCommand создаёт команду throw_error.
func ThrowErrorCommand(jobKey int64, errorCode, message string) *Command {
	return &Command{
		Type:         CommandThrowError,
		JobKey:       jobKey,
		ErrorCode:    errorCode,
		ErrorMessage: message,
	}
}
