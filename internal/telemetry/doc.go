// Package telemetry обеспечивает наблюдаемость коннектора.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики обработки job
//
// Метрики экспортируются на /metrics endpoint воркера.
package telemetry
