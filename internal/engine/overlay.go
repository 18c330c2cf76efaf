package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Синтетические ключи overlay.
const (
	KeyJobKey               = "jobKey"
	KeyProcessInstanceKey   = "processInstanceKey"
	KeyVariablesJSON        = "variablesJson"
	KeyVariablesJSONEscaped = "variablesJsonEscaped"
)

// Sources — источники данных для overlay одного job.
type Sources struct {
	// CustomHeaders — custom headers задачи (наивысший приоритет).
	CustomHeaders map[string]string

	// Variables — переменные экземпляра процесса.
	Variables map[string]any

	// Environment — переменные окружения (наименьший приоритет).
	Environment map[string]any

	JobKey             int64
	ProcessInstanceKey int64
}

// Overlay — объединённое представление всех источников конфигурации job.
//
// Приоритет (поздние перекрывают ранние):
//
//	environment < variables < custom headers < jobKey/processInstanceKey
//
// После построения Overlay только читается.
type Overlay struct {
	values map[string]any
}

// BuildOverlay строит Overlay из источников.
//
// variablesJson/variablesJsonEscaped вычисляются только из Variables.
// Ошибка сериализации не фатальна: она логируется, а оба ключа
// отсутствуют в результате.
func BuildOverlay(src Sources, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}

	values := make(map[string]any, len(src.Environment)+len(src.Variables)+len(src.CustomHeaders)+4)
	maps.Copy(values, src.Environment)
	maps.Copy(values, src.Variables)
	for key, val := range src.CustomHeaders {
		values[key] = val
	}

	values[KeyJobKey] = src.JobKey
	values[KeyProcessInstanceKey] = src.ProcessInstanceKey

	variables := src.Variables
	if variables == nil {
		variables = map[string]any{}
	}
	jsonText, err := MarshalJSON(variables)
	if err != nil {
		logger.Error("could not transform workflow variables to json",
			"job_key", src.JobKey,
			"error", err,
		)
	} else {
		values[KeyVariablesJSON] = jsonText
		values[KeyVariablesJSONEscaped] = EscapeJSONString(jsonText)
	}

	return &Overlay{values: values}
}

// NewOverlay создаёт Overlay из готовой map (для тестов и CLI).
func NewOverlay(values map[string]any) *Overlay {
	return &Overlay{values: maps.Clone(values)}
}

// Get возвращает значение по точному совпадению ключа.
// nil-значения считаются отсутствующими.
func (o *Overlay) Get(key string) (any, bool) {
	val, ok := o.values[key]
	if !ok || val == nil {
		return nil, false
	}
	return val, true
}

// GetString возвращает текстовое представление значения.
// Пустая строка неотличима от отсутствующего ключа.
func (o *Overlay) GetString(key string) (string, bool) {
	val, ok := o.Get(key)
	if !ok {
		return "", false
	}
	text, err := Text(val)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}

// Keys возвращает отсортированный список ключей.
func (o *Overlay) Keys() []string {
	keys := make([]string, 0, len(o.values))
	for key := range o.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len возвращает количество ключей.
func (o *Overlay) Len() int {
	return len(o.values)
}

// Variables возвращает копию всех значений overlay.
func (o *Overlay) Variables() map[string]any {
	return maps.Clone(o.values)
}

// MarshalJSON сериализует значение в JSON без HTML-экранирования.
// Ключи map сортируются, поэтому результат детерминирован.
func MarshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// EscapeJSONString применяет JSON-экранирование строки без внешних кавычек.
// Результат можно встраивать внутрь строкового литерала JSON-шаблона.
func EscapeJSONString(s string) string {
	quoted, err := MarshalJSON(s)
	if err != nil {
		// строка всегда сериализуема
		return s
	}
	return quoted[1 : len(quoted)-1]
}

// Text возвращает текстовое представление значения overlay.
//
//   - string — как есть
//   - целые числа — десятичная запись
//   - float и json.Number — кратчайшая запись без экспоненты (42.0 → "42")
//   - bool — true/false
//   - map/slice — JSON
func Text(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val), nil
	case float32:
		return formatFloat(float64(val)), nil
	case float64:
		return formatFloat(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		if f, err := val.Float64(); err == nil {
			return formatFloat(f), nil
		}
		return val.String(), nil
	default:
		return MarshalJSON(val)
	}
}
