// Package cli реализует инструмент командной строки коннектора.
//
// # Обзор
//
// CLI помогает отлаживать задачи workflow без движка: вычисляет параметры
// вызова для job, выполняет job локально, публикует job в очередь воркера
// и показывает журнал обработанных job.
//
// # Ключевые компоненты
//
// ## Deps
//
// Ленивые зависимости (конфигурация, Output, логгер), создаются
// после парсинга PersistentFlags.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// ## Recorder
//
// JobClient, который запоминает команду вместо отправки в движок.
//
// ## Commands
//
//   - job: params, handle, publish
//   - env: show
//   - history: list
package cli
