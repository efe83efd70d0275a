package emailsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/learnweb/moodleoverflow/core"
)

const (
	routingKeyNotification = "mail.notification"

	publishTimeout = 3 * time.Second
)

// amqpService hands rendered emails to a broker instead of sending them
// itself, for deployments where the host LMS owns the actual SMTP path.
type amqpService struct {
	conf     *core.Config
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   core.Logger
}

var _ core.EmailService = (*amqpService)(nil)

func NewAMQPService(conf *core.Config, logger core.Logger) (*amqpService, error) {
	conn, err := amqp.Dial(conf.Broker.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err = ch.ExchangeDeclare(conf.Broker.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &amqpService{
		conf:     conf,
		conn:     conn,
		ch:       ch,
		exchange: conf.Broker.Exchange,
		logger:   logger,
	}, nil
}

func (svc *amqpService) Close() error {
	if svc.ch != nil {
		_ = svc.ch.Close()
	}
	if svc.conn != nil {
		_ = svc.conn.Close()
	}
	return nil
}

func (svc *amqpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
				return
			}
			if err := svc.publish(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("publishing email: %v", err), err)
			}
		}()
	}
}

func (svc *amqpService) publish(msg *core.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return svc.ch.PublishWithContext(ctx, svc.exchange, routingKeyNotification, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
	})
}
