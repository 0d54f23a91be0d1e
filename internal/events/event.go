// Package events publishes workflow outcomes to a message bus and consumes
// them to send notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "course-marketplace"
	EventVersion = "1.0"
)

// Topics
const (
	TopicOrders = "marketplace.orders"
	TopicDrafts = "marketplace.drafts"
)

type EventType string

const (
	OrderCreated     EventType = "order.created"
	OrderApproved    EventType = "order.approved"
	OrderRejected    EventType = "order.rejected"
	OrderResubmitted EventType = "order.resubmitted"

	DraftSubmitted EventType = "draft.submitted"
	DraftApproved  EventType = "draft.approved"
	DraftRejected  EventType = "draft.rejected"
)

// Topic returns the topic an event type is published on
func (t EventType) Topic() string {
	switch t {
	case DraftSubmitted, DraftApproved, DraftRejected:
		return TopicDrafts
	default:
		return TopicOrders
	}
}

// Event is the envelope of every published message
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// OrderEventData describes an order at the moment of a transition
type OrderEventData struct {
	OrderID       uint    `json:"order_id"`
	UserID        uint    `json:"user_id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	CourseID      uint    `json:"course_id"`
	CourseName    string  `json:"course_name"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	NoteFromAdmin string  `json:"note_from_admin,omitempty"`
}

// DraftEventData describes a draft decision. CourseID is set on approval.
type DraftEventData struct {
	DraftID  uint   `json:"draft_id"`
	CourseID uint   `json:"course_id,omitempty"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Items    int    `json:"items"`
	Dropped  int    `json:"dropped,omitempty"`
}
