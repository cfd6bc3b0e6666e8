package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-api/internal/config"
	"storefront-api/internal/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TypeOrderCreated = "order.created"
	TypeOrderPaid    = "order.paid"
)

type OrderEvent struct {
	EventID   string           `json:"event_id"`
	Type      string           `json:"type"`
	OrderID   string           `json:"order_id"`
	UserID    string           `json:"user_id"`
	Total     decimal.Decimal  `json:"total"`
	Status    string           `json:"status"`
	Items     []OrderEventItem `json:"items"`
	Timestamp time.Time        `json:"timestamp"`
}

type OrderEventItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func NewOrderEvent(eventType string, order *model.Order) OrderEvent {
	items := make([]OrderEventItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	return OrderEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Status:    string(order.Status),
		Items:     items,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher emits order lifecycle events after the database commit.
// Delivery is best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer kafkaWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(cfg config.Kafka, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf("kafka writer: "+msg, args...))
		}),
	}

	return &kafkaPublisher{
		writer: writer,
		topic:  cfg.Topic,
		logger: logger,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	// keyed by order so every event of one order lands on the same partition
	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event to %s: %w", event.Type, p.topic, err)
	}

	p.logger.Info("order event published",
		zap.String("event_id", event.EventID),
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID))

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

// NewNopPublisher is used when no kafka brokers are configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (nopPublisher) Close() error                              { return nil }
