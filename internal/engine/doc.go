// Package engine строит конфигурацию вызова для одного job.
//
// Включает:
//   - overlay.go     — Overlay: объединение custom headers, переменных процесса
//     и переменных окружения с фиксированным приоритетом
//   - placeholder.go — раскрытие шаблонов ${expression} по Overlay (CEL)
//
// Engine не выполняет I/O и не хранит состояние между job:
// Overlay строится заново для каждого job и только читается.
package engine
