package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
)

type envelope struct {
	ID   string          `json:"id"`
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NotificationConsumer turns order and draft decisions into emails
type NotificationConsumer struct {
	router *message.Router
	sender mailer.Sender
	logger *slog.Logger
}

func NewNotificationConsumer(subscriber message.Subscriber, sender mailer.Sender, logger *slog.Logger) (*NotificationConsumer, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	c := &NotificationConsumer{router: router, sender: sender, logger: logger}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			Logger:          wmLogger,
		}.Middleware,
	)

	router.AddNoPublisherHandler("order_notifications", TopicOrders, subscriber, c.handle)
	router.AddNoPublisherHandler("draft_notifications", TopicDrafts, subscriber, c.handle)

	return c, nil
}

// Run blocks until ctx is cancelled or the router is closed
func (c *NotificationConsumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (c *NotificationConsumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *NotificationConsumer) Close() error {
	return c.router.Close()
}

func (c *NotificationConsumer) handle(msg *message.Message) error {
	ctx := msg.Context()

	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// Malformed payloads are acked so they do not block the partition
		c.logger.ErrorContext(ctx, "Dropping malformed event", "message_uuid", msg.UUID, "error", err)
		return nil
	}

	mail, err := c.buildMessage(env)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping undecodable event", "event_id", env.ID, "type", env.Type, "error", err)
		return nil
	}
	if mail == nil {
		return nil
	}

	if err := c.sender.Send(ctx, mail); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", env.Type, err)
	}

	c.logger.InfoContext(ctx, "Notification sent", "event_id", env.ID, "type", env.Type)
	return nil
}

func (c *NotificationConsumer) buildMessage(env envelope) (*mailer.Message, error) {
	switch env.Type {
	case OrderApproved, OrderRejected:
		var data OrderEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		if data.Email == "" {
			return nil, nil
		}
		return mailer.OrderOutcomeMessage(data.Email, mailer.OrderOutcomeData{
			Username:   data.Username,
			CourseName: data.CourseName,
			Approved:   env.Type == OrderApproved,
			Note:       data.NoteFromAdmin,
		})

	case DraftApproved, DraftRejected:
		var data DraftEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		if data.Email == "" {
			return nil, nil
		}
		return mailer.DraftOutcomeMessage(data.Email, mailer.DraftOutcomeData{
			Username:   data.Username,
			CourseName: data.Name,
			Approved:   env.Type == DraftApproved,
		})
	}

	return nil, nil
}
