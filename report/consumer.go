package report

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fintrack/events"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/transaction"
)

// Subscriber registers topic handlers.
type Subscriber interface {
	Subscribe(topic string, h events.Handler) func()
}

// Consumer feeds transaction events from the bus into a Service.
type Consumer struct {
	service *Service
	logger  logging.Logger
}

// NewConsumer creates a consumer for service.
func NewConsumer(service *Service, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{service: service, logger: logger}
}

// Register subscribes to the transaction topics and returns a function that
// removes both subscriptions.
func (c *Consumer) Register(bus Subscriber) func() {
	created := bus.Subscribe(transaction.TopicCreated, c.Handle)
	updated := bus.Subscribe(transaction.TopicUpdated, c.Handle)
	return func() {
		created()
		updated()
	}
}

// Handle applies one message.
func (c *Consumer) Handle(ctx context.Context, msg events.Message) error {
	var event transaction.Event
	switch p := msg.Payload.(type) {
	case transaction.Event:
		event = p
	case *transaction.Event:
		if p == nil {
			return fmt.Errorf("%s: nil payload", msg.Topic)
		}
		event = *p
	default:
		return fmt.Errorf("%s: unexpected payload %T", msg.Topic, msg.Payload)
	}

	if err := c.service.Apply(ctx, event); err != nil {
		c.logger.Error("failed to apply transaction to report",
			"topic", msg.Topic,
			"transaction_id", event.TransactionID,
			"user_id", event.UserID,
			"error", err,
		)
		return err
	}
	return nil
}
