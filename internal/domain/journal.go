package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalEntry — запись журнала обработанных job.
//
// Журнал не участвует в обработке следующих job: это append-only
// история для операторов (CLI history).
type JournalEntry struct {
	// ID — идентификатор записи.
	ID uuid.UUID `json:"id"`

	// JobKey — ключ job.
	JobKey int64 `json:"job_key"`

	// ProcessInstanceKey — ключ экземпляра процесса.
	ProcessInstanceKey int64 `json:"process_instance_key"`

	// FunctionName — вызванная функция (пусто, если не удалось вычислить).
	FunctionName string `json:"function_name,omitempty"`

	// Outcome — классификация результата.
	Outcome OutcomeKind `json:"outcome"`

	// Command — отправленная команда.
	Command CommandType `json:"command"`

	// ErrorCode — код BPMN-ошибки для throw_error.
	ErrorCode string `json:"error_code,omitempty"`

	// Message — сообщение об ошибке.
	Message string `json:"message,omitempty"`

	// DurationMs — длительность обработки в миллисекундах.
	DurationMs int64 `json:"duration_ms"`

	// HandledAt — время финализации.
	HandledAt time.Time `json:"handled_at"`
}

// NewJournalEntry создаёт запись журнала для отправленной команды.
func NewJournalEntry(job *Job, fn string, outcome OutcomeKind, cmd *Command, d time.Duration) *JournalEntry {
	return &JournalEntry{
		ID:                 uuid.New(),
		JobKey:             job.Key,
		ProcessInstanceKey: job.ProcessInstanceKey,
		FunctionName:       fn,
		Outcome:            outcome,
		Command:            cmd.Type,
		ErrorCode:          cmd.ErrorCode,
		Message:            cmd.ErrorMessage,
		DurationMs:         d.Milliseconds(),
		HandledAt:          time.Now(),
	}
}
