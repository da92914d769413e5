package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/dinehall/orderd/internal/domain/order"
)

var _ order.EventSink = (*LogSink)(nil)

// LogSink records lifecycle events in the service log. It is the fallback
// wiring when no message broker is configured.
type LogSink struct {
	lg *zap.Logger
}

// NewLogSink creates a LogSink on the given logger.
func NewLogSink(lg *zap.Logger) *LogSink {
	return &LogSink{lg: lg}
}

func (s *LogSink) OrderCreated(_ context.Context, o *order.Order) error {
	s.lg.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("table_id", o.TableID),
		zap.String("total", o.TotalAmount.String()),
	)
	return nil
}

func (s *LogSink) OrderStatusChanged(_ context.Context, o *order.Order, previous order.Status) error {
	s.lg.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("from", string(previous)),
		zap.String("to", string(o.Status)),
	)
	return nil
}
