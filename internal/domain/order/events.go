// internal/domain/order/events.go
package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// EventPublisher sends a JSON payload keyed for partitioning
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload any) error
}

// Event is the envelope published for order lifecycle changes
type Event struct {
	EventID           string      `json:"eventId"`
	Type              string      `json:"type"`
	OccurredAt        time.Time   `json:"occurredAt"`
	OrderID           uint        `json:"orderId"`
	OrderNumber       string      `json:"orderNumber"`
	UserID            uint        `json:"userId"`
	Status            OrderStatus `json:"status"`
	PreviousStatus    OrderStatus `json:"previousStatus,omitempty"`
	Total             int64       `json:"total"`
	Currency          string      `json:"currency"`
	DeliveryPartnerID *uint       `json:"deliveryPartnerId,omitempty"`
}

func newEvent(eventType string, o *Order, previous OrderStatus) Event {
	return Event{
		EventID:           uuid.NewString(),
		Type:              eventType,
		OccurredAt:        time.Now().UTC(),
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		Status:            o.Status,
		PreviousStatus:    previous,
		Total:             o.Total,
		Currency:          o.Currency,
		DeliveryPartnerID: o.DeliveryPartnerID,
	}
}
