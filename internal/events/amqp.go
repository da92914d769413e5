// Package events provides EventSink implementations: an AMQP publisher for
// production and a log-only fallback.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/dinehall/orderd/internal/domain/order"
)

const (
	// Exchange is the topic exchange lifecycle events are published to.
	// Kitchen displays and customer trackers bind their own queues to it.
	Exchange = "orders.events"

	routingKeyNew    = "order.new"
	routingKeyStatus = "order.status"

	publishTimeout = 10 * time.Second
)

var _ order.EventSink = (*AMQPSink)(nil)

// AMQPSink publishes order lifecycle events as persistent JSON messages.
type AMQPSink struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPSink dials the broker and declares the events exchange.
func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &AMQPSink{conn: conn, ch: ch}, nil
}

// Close releases the channel and the connection.
func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// OrderCreated publishes an order:new event.
func (s *AMQPSink) OrderCreated(ctx context.Context, o *order.Order) error {
	return s.publish(ctx, routingKeyNew, orderEvent{
		Type:  "order:new",
		Order: toPayload(o),
	})
}

// OrderStatusChanged publishes an order:status event.
func (s *AMQPSink) OrderStatusChanged(ctx context.Context, o *order.Order, previous order.Status) error {
	return s.publish(ctx, routingKeyStatus, orderEvent{
		Type:           "order:status",
		Order:          toPayload(o),
		PreviousStatus: string(previous),
	})
}

func (s *AMQPSink) publish(ctx context.Context, key string, event orderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.ch.PublishWithContext(ctx, Exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", key)
	}
	return nil
}

// orderEvent is the wire shape subscribers consume.
type orderEvent struct {
	Type           string       `json:"type"`
	Order          orderPayload `json:"order"`
	PreviousStatus string       `json:"previous_status,omitempty"`
}

type orderPayload struct {
	ID            string          `json:"id"`
	Number        string          `json:"order_number"`
	RestaurantID  string          `json:"restaurant_id"`
	TableID       string          `json:"table_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Lines         []linePayload   `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
}

type linePayload struct {
	MenuItemID string          `json:"menu_item_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func toPayload(o *order.Order) orderPayload {
	lines := make([]linePayload, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = linePayload{
			MenuItemID: l.MenuItemID,
			Price:      l.Price,
			Quantity:   l.Quantity,
		}
	}
	return orderPayload{
		ID:            o.ID,
		Number:        o.Number,
		RestaurantID:  o.RestaurantID,
		TableID:       o.TableID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount,
		Lines:         lines,
		CreatedAt:     o.CreatedAt,
	}
}
