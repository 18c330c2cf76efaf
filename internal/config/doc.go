// Package config загружает конфигурацию коннектора.
//
// Источники (поздние перекрывают ранние):
//   - значения по умолчанию (Default)
//   - переменные окружения с префиксом CONNECTOR_
//
// Имя переменной переводится в путь: первая часть — секция,
// остальные — имя поля. CONNECTOR_INVOKER_BASE_URL → invoker.base_url.
package config
