package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.Body).Msg("email")
	return nil
}

// VerificationMessage builds the verification email for a registration event.
func VerificationMessage(event services.UserEvent) Message {
	return Message{
		To:      event.Email,
		Subject: "Verify your email address",
		Body: fmt.Sprintf("Hi %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n",
			event.Username, event.VerificationURL),
	}
}

// DirectSender mails the verification link during the request.
type DirectSender struct {
	mailer Mailer
}

func NewDirectSender(mailer Mailer) *DirectSender {
	return &DirectSender{mailer: mailer}
}

func (s *DirectSender) SendVerification(ctx context.Context, event services.UserEvent) error {
	return s.mailer.Send(ctx, VerificationMessage(event))
}

// QueueSender hands the verification over to the user events consumer.
type QueueSender struct {
	publisher services.EventPublisher
}

func NewQueueSender(publisher services.EventPublisher) *QueueSender {
	return &QueueSender{publisher: publisher}
}

func (s *QueueSender) SendVerification(ctx context.Context, event services.UserEvent) error {
	return s.publisher.PublishJSON(rabbitmq.UserEventsQueue, event)
}

// UserEventHandler consumes the user events queue and mails verification links.
// Malformed messages are logged and acknowledged.
func UserEventHandler(mailer Mailer, log zerolog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.UserEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping malformed user event")
			return nil
		}
		switch event.Type {
		case services.EventUserRegistered:
			if err := mailer.Send(context.Background(), VerificationMessage(event)); err != nil {
				return fmt.Errorf("failed to send verification email to user %s: %w", event.UserID, err)
			}
		default:
			log.Debug().Str("type", event.Type).Msg("ignoring user event")
		}
		return nil
	}
}

// OrderEventHandler logs order events for the audit trail.
func OrderEventHandler(log zerolog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping malformed order event")
			return nil
		}
		log.Info().
			Str("type", event.Type).
			Str("order_id", event.OrderID).
			Str("user_id", event.UserID).
			Str("status", event.Status).
			Int64("total_amount", event.TotalAmount).
			Msg("order event received")
		return nil
	}
}
