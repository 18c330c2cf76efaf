package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/lambda-connector/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobActivated MessageType = "job.activated"
	MessageTypeJobCommand   MessageType = "job.command"
)

// Message — сообщение в очереди.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publisher публикует сообщения в RabbitMQ.
//
// Publish ждёт подтверждения брокера (publisher confirms),
// если канал находится в режиме confirm.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		// confirm == nil, если канал не в режиме confirm
		if confirm != nil {
			acked, err := confirm.WaitContext(ctx)
			if err != nil {
				return fmt.Errorf("wait confirm %s/%s: %w", exchange, routingKey, err)
			}
			if !acked {
				return fmt.Errorf("%w: %s/%s", ErrPublishNacked, exchange, routingKey)
			}
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishJobActivated публикует активированный job в очередь его типа.
// Используется CLI и тестовыми окружениями вместо workflow-движка.
func (p *Publisher) PublishJobActivated(ctx context.Context, job *domain.Job) error {
	if job.Type == "" {
		return fmt.Errorf("publish job %d: job type is required", job.Key)
	}
	return p.Publish(ctx, ExchangeJobs, JobRoutingKey(job.Type), NewMessage(MessageTypeJobActivated, job))
}

// PublishCommand публикует финализирующую команду.
func (p *Publisher) PublishCommand(ctx context.Context, cmd *domain.Command) error {
	return p.Publish(ctx, ExchangeCommands, CommandRoutingKey(cmd.Type), NewMessage(MessageTypeJobCommand, cmd))
}

// CommandPublisher отправляет команды жизненного цикла job
// в exchange connector.commands.
//
// Команды идемпотентны по JobKey: workflow-движок игнорирует
// повторную команду для уже завершённого job.
type CommandPublisher struct {
	publisher *Publisher
}

// NewCommandPublisher создаёт CommandPublisher.
func NewCommandPublisher(publisher *Publisher) *CommandPublisher {
	return &CommandPublisher{publisher: publisher}
}

// Complete отправляет команду complete.
func (c *CommandPublisher) Complete(ctx context.Context, jobKey int64, variables map[string]any) error {
	return c.publisher.PublishCommand(ctx, domain.CompleteCommand(jobKey, variables))
}

// Fail отправляет команду fail.
func (c *CommandPublisher) Fail(ctx context.Context, jobKey int64, retries int, message string) error {
	return c.publisher.PublishCommand(ctx, domain.FailCommand(jobKey, retries, message))
}

// ThrowError отправляет команду throw_error.
func (c *CommandPublisher) ThrowError(ctx context.Context, jobKey int64, errorCode, message string) error {
	return c.publisher.PublishCommand(ctx, domain.ThrowErrorCommand(jobKey, errorCode, message))
}
