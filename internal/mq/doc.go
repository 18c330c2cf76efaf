// Package mq предоставляет транспорт job и команд поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, publisher confirms, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений и CommandPublisher
//   - consumer.go   — потребление сообщений с ограниченным параллелизмом
//
// Типы сообщений:
//   - job.activated — workflow-движок активировал job для воркера
//   - job.command   — финализирующая команда (complete, fail, throw_error)
//
// Exchanges:
//   - connector.jobs     — активированные job, routing key = тип job
//   - connector.commands — команды, routing key = тип команды
//   - connector.dlq      — dead letter queue для некорректных сообщений
package mq
