package models

import "time"

// EventTypeStatus is the only realtime event type.
const EventTypeStatus = "status"

// StatusPayload is the payload of a realtime status event.
type StatusPayload struct {
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StatusEvent is the message sent on an order's realtime topic.
type StatusEvent struct {
	Type    string        `json:"type"`
	Payload StatusPayload `json:"payload"`
}

// NewStatusEvent builds the realtime event for an order's current status.
func NewStatusEvent(status OrderStatus, updatedAt time.Time) StatusEvent {
	return StatusEvent{
		Type:    EventTypeStatus,
		Payload: StatusPayload{Status: status, UpdatedAt: updatedAt},
	}
}

// StatusChangedEvent is published to SNS or Kafka for other services.
type StatusChangedEvent struct {
	EventType      string      `json:"event_type"`
	OrderID        string      `json:"order_id"`
	PreviousStatus OrderStatus `json:"previous_status"`
	Status         OrderStatus `json:"status"`
	Timestamp      time.Time   `json:"timestamp"`
}

const EventTypeStatusChanged = "order.status_changed"
