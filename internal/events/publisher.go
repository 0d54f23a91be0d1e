package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// WatermillEventPublisher publishes JSON envelopes through any watermill
// publisher (Kafka or the in-process channel)
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillEventPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{publisher: publisher, logger: logger}
}

func (p *WatermillEventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(event.Type.Topic(), msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillEventPublisher) Close() error {
	return p.publisher.Close()
}

// ===== MOCK =====

// MockEventPublisher records events in memory
type MockEventPublisher struct {
	mu     sync.Mutex
	events []*Event
	err    error
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

// FailWith makes subsequent publishes return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	m.logger.DebugContext(ctx, "Mock event recorded", "type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventTypes lists the recorded types in publish order
func (m *MockEventPublisher) EventTypes() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]EventType, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
