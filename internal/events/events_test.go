package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/testutil"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(OrderApproved, OrderEventData{OrderID: 1})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, TopicOrders, event.Type.Topic())
	assert.Equal(t, TopicDrafts, DraftRejected.Topic())
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testutil.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(OrderCreated, nil)))
	require.NoError(t, mock.Publish(ctx, NewEvent(OrderApproved, nil)))
	assert.Equal(t, []EventType{OrderCreated, OrderApproved}, mock.EventTypes())

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())

	mock.FailWith(assert.AnError)
	assert.ErrorIs(t, mock.Publish(ctx, NewEvent(OrderCreated, nil)), assert.AnError)
}

func TestNotificationConsumer_SendsDecisionEmails(t *testing.T) {
	logger := testutil.NewTestLogger()
	bus, err := NewBus(config.KafkaConfig{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "gochannel", bus.Kind)

	sender := mailer.NewMemorySender()
	consumer, err := NewNotificationConsumer(bus.Subscriber, sender, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = consumer.Close()
		_ = bus.Close()
	})

	go func() { _ = consumer.Run(ctx) }()
	select {
	case <-consumer.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not start")
	}

	publisher := NewWatermillEventPublisher(bus.Publisher, logger)
	require.NoError(t, publisher.Publish(ctx, NewEvent(OrderCreated, OrderEventData{OrderID: 1, Email: "a@example.com"})))
	require.NoError(t, publisher.Publish(ctx, NewEvent(OrderApproved, OrderEventData{
		OrderID: 1, Email: "a@example.com", Username: "alice", CourseName: "Go",
	})))
	require.NoError(t, publisher.Publish(ctx, NewEvent(DraftRejected, DraftEventData{
		DraftID: 2, Email: "b@example.com", Username: "bob", Name: "Rust",
	})))

	require.Eventually(t, func() bool {
		return len(sender.Messages()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	subjects := []string{}
	for _, m := range sender.Messages() {
		subjects = append(subjects, m.Subject)
	}
	assert.ElementsMatch(t, []string{"Online Learning - Order approved", "Online Learning - Course draft rejected"}, subjects)
}
