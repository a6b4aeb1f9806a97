package notification

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cafems-dev/shift-request/backend/internal/config"
	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

// QueueName 是 api 进程和 notifier 进程共享的队列名
const QueueName = "notification_queue"

// 队列信封的类型，cmd/notifier 据此选择邮件模板
const (
	MessageTypeRequestEvent  = "shift_request_event"
	MessageTypeCreateUser    = "create_user"
	MessageTypeResetPassword = "reset_password"
)

// AMQPDispatcher 把申请流转事件发布到消息队列，实现 workflow.Dispatcher。
// 真正的投递（站内信、邮件）由 notifier 进程完成
type AMQPDispatcher struct {
	cfg *config.Config
	ch  *amqp.Channel
}

func NewAMQPDispatcher(cfg *config.Config, ch *amqp.Channel) *AMQPDispatcher {
	return &AMQPDispatcher{
		cfg: cfg,
		ch:  ch,
	}
}

func (d *AMQPDispatcher) Notify(n *domain.RequestNotification) error {
	body, err := json.Marshal(domain.NotificationMessage{
		Type: MessageTypeRequestEvent,
		Data: n,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return d.ch.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
