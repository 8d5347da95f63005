package services

import (
	"context"
	"time"
)

// EventPublisher sends JSON events to a named queue. *rabbitmq.Client
// satisfies it.
type EventPublisher interface {
	PublishJSON(queue string, payload interface{}) error
}

// Event types published by the services.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
	EventOrdersCleared      = "orders.cleared"
	EventUserRegistered     = "user.registered"
)

// OrderEvent is published to the order events queue.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Status      string    `json:"status,omitempty"`
	Items       int       `json:"items,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	TotalAmount int64     `json:"totalAmount,omitempty"`
	Deleted     int64     `json:"deleted,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// UserEvent is published to the user events queue.
type UserEvent struct {
	Type            string    `json:"type"`
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	VerificationURL string    `json:"verificationUrl,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// AnalyticsInvalidator drops cached analytics after writes that change them.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}
