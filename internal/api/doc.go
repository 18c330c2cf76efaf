// Package api содержит служебный HTTP сервер воркера.
//
// Структура:
//   - handler.go         — Handler с DI (журнал, проверки готовности, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - health_handler.go  — /healthz
//   - journal_handler.go — обработчики для /api/v1/journal
//
// Журнал доступен только на чтение и только если он включён (db.journal).
package api
