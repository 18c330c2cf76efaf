package domain

import "time"

// Job — активированный job workflow-движка.
//
// Job доставляется воркеру через очередь и описывает ожидающую
// активность процесса: какие custom headers заданы на задаче в модели
// и какие переменные несёт конкретный экземпляр процесса.
type Job struct {
	// Key — уникальный ключ job в workflow-движке.
	Key int64 `json:"key"`

	// Type — тип задачи (например, "lambda").
	Type string `json:"type"`

	// ProcessInstanceKey — ключ экземпляра процесса.
	ProcessInstanceKey int64 `json:"processInstanceKey"`

	// BpmnProcessID — идентификатор процесса в модели.
	BpmnProcessID string `json:"bpmnProcessId,omitempty"`

	// ElementID — идентификатор элемента (service task) в модели.
	ElementID string `json:"elementId,omitempty"`

	// Worker — имя воркера, активировавшего job.
	Worker string `json:"worker,omitempty"`

	// Retries — оставшееся количество попыток.
	Retries int `json:"retries"`

	// Deadline — момент, после которого движок переназначит job.
	Deadline *time.Time `json:"deadline,omitempty"`

	// CustomHeaders — статическая конфигурация задачи из модели.
	CustomHeaders map[string]string `json:"customHeaders,omitempty"`

	// Variables — переменные экземпляра процесса.
	Variables map[string]any `json:"variables,omitempty"`
}

// RemainingRetries возвращает количество попыток для команды fail:
// текущее значение минус одна.
func (j *Job) RemainingRetries() int {
	return j.Retries - 1
}
