// Package repo хранит журнал обработанных job в PostgreSQL.
//
// Журнал append-only: воркер пишет запись после доставки
// финализирующей команды, CLI читает историю.
package repo
