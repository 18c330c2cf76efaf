package mq

import "errors"

// Ошибки брокера.
var (
	// ErrNoChannel — канал недоступен (соединение переподключается).
	ErrNoChannel = errors.New("no channel available")

	// ErrRejected — сообщение не может быть обработано никогда.
	// Handler оборачивает её, чтобы отправить сообщение в DLQ без повторной доставки.
	ErrRejected = errors.New("message rejected")

	// ErrPublishNacked — брокер не подтвердил публикацию.
	ErrPublishNacked = errors.New("publish not confirmed by broker")
)
