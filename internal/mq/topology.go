package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs     Exchange = "connector.jobs"
	ExchangeCommands Exchange = "connector.commands"
	ExchangeDLQ      Exchange = "connector.dlq"
)

// Queues — имена очередей.
const (
	QueueCommands Queue = "jobs.commands"
	QueueDLQJobs  Queue = "dlq.jobs"
)

// RoutingKeyDLQJobs — routing key для отклонённых job.
const RoutingKeyDLQJobs RoutingKey = "jobs"

// JobQueue возвращает очередь активированных job данного типа.
func JobQueue(jobType string) Queue {
	return Queue("jobs." + jobType)
}

// JobRoutingKey возвращает routing key для job данного типа.
func JobRoutingKey(jobType string) RoutingKey {
	return RoutingKey(jobType)
}

// CommandRoutingKey возвращает routing key для команды.
func CommandRoutingKey(cmd domain.CommandType) RoutingKey {
	return RoutingKey(cmd)
}

// commandTypes — команды, которые маршрутизируются в jobs.commands.
var commandTypes = []domain.CommandType{
	domain.CommandComplete,
	domain.CommandFail,
	domain.CommandThrowError,
}

// SetupTopology объявляет exchanges, очереди и bindings для типа job.
func SetupTopology(ctx context.Context, conn *Connection, jobType string) error {
	if jobType == "" {
		return fmt.Errorf("setup topology: job type is required")
	}

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch, jobType); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		return bindQueues(ch, bindings(jobType))
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeJobs, ExchangeCommands, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel, jobType string) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// jobs.<type> — с DLQ (некорректные сообщения уходят в dlq.jobs)
		{JobQueue(jobType), amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
		}},

		// jobs.commands — команды для workflow-движка
		{QueueCommands, nil},

		// dlq.jobs — сама DLQ очередь
		{QueueDLQJobs, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// bindings возвращает bindings для типа job.
func bindings(jobType string) []binding {
	result := []binding{
		{JobQueue(jobType), JobRoutingKey(jobType), ExchangeJobs},
		{QueueDLQJobs, RoutingKeyDLQJobs, ExchangeDLQ},
	}
	for _, cmd := range commandTypes {
		result = append(result, binding{QueueCommands, CommandRoutingKey(cmd), ExchangeCommands})
	}
	return result
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel, bs []binding) error {
	for _, b := range bs {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(jobType string) string {
	var b strings.Builder
	b.WriteString("connector topology:\n")
	fmt.Fprintf(&b, "  %s (direct)\n", ExchangeJobs)
	fmt.Fprintf(&b, "  └── %s [routing: %s] consumer: worker, dlq: %s\n", JobQueue(jobType), JobRoutingKey(jobType), QueueDLQJobs)
	fmt.Fprintf(&b, "  %s (direct)\n", ExchangeCommands)
	for i, cmd := range commandTypes {
		branch := "├──"
		if i == len(commandTypes)-1 {
			branch = "└──"
		}
		fmt.Fprintf(&b, "  %s %s [routing: %s] consumer: workflow engine\n", branch, QueueCommands, cmd)
	}
	fmt.Fprintf(&b, "  %s (direct)\n", ExchangeDLQ)
	fmt.Fprintf(&b, "  └── %s [routing: %s]\n", QueueDLQJobs, RoutingKeyDLQJobs)
	return b.String()
}
