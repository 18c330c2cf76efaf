package domain

// OutcomeKind — классификация результата вызова функции.
//
// Жизненный цикл:
//
//	invoke → SUCCESS            → complete
//	       ↘ DECLARED_ERROR     → throw_error (если задан functionErrorCode) или fail
//	       ↘ UNEXPECTED_FAILURE → fail
type OutcomeKind string

const (
	// OutcomeSuccess — функция вернула результат.
	OutcomeSuccess OutcomeKind = "SUCCESS"

	// OutcomeDeclaredError — функция явно сообщила об ошибке.
	OutcomeDeclaredError OutcomeKind = "DECLARED_ERROR"

	// OutcomeUnexpectedFailure — любая другая ошибка
	// (сеть, сериализация, конфигурация, разбор результата).
	OutcomeUnexpectedFailure OutcomeKind = "UNEXPECTED_FAILURE"
)

// Outcome — результат одного вызова. Не сохраняется,
// используется только на шаге классификации.
type Outcome struct {
	Kind OutcomeKind

	// ResultText — сырой ответ функции (для SUCCESS).
	ResultText string

	// Message — сообщение об ошибке (для ошибок).
	Message string
}

// CallParameters — параметры вызова, вычисленные для job.
type CallParameters struct {
	// FunctionName — имя функции (обязательно).
	FunctionName string `json:"functionName"`

	// ResultName — префикс переменных результата.
	// По умолчанию совпадает с FunctionName.
	ResultName string `json:"resultName"`

	// FunctionErrorCode — код BPMN-ошибки.
	// nil означает, что маппинг ошибки не настроен.
	FunctionErrorCode *string `json:"functionErrorCode,omitempty"`

	// Payload — JSON-тело вызова.
	Payload string `json:"payload"`
}

// HasErrorCode возвращает true, если для задачи настроен код BPMN-ошибки.
func (p *CallParameters) HasErrorCode() bool {
	return p != nil && p.FunctionErrorCode != nil
}
