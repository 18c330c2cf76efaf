// Package environment предоставляет переменные окружения для overlay job.
//
// Источники:
//   - .env файл (godotenv)
//   - переменные процесса с префиксом (например, CONNECTOR_ENV_API_KEY → API_KEY)
//   - JSON-документ по URL, перезагружаемый по расписанию (cron)
//
// Переменные окружения имеют наименьший приоритет в overlay:
// их перекрывают переменные процесса workflow и custom headers задачи.
package environment
