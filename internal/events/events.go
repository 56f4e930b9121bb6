package events

import (
	"context"
	"time"

	"cafepos/backend/internal/domain"
)

// OrderPlaced is emitted after a successful stock reconciliation. Consumers
// (kitchen display, analytics) only ever see orders that were committed.
type OrderPlaced struct {
	OrderID     string             `json:"order_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Status      string             `json:"status"`
	OrderedBy   string             `json:"ordered_by"`
	OrderDate   time.Time          `json:"order_date"`
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(_ context.Context, _ OrderPlaced) error { return nil }

func (NoopPublisher) Close() error { return nil }
