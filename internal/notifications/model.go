package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Notification types. BALL_WITH_YOU marks the turn passing to the
// recipient's company; the rest mirror the timeline tags.
const (
	TypeBallWithYou       = "BALL_WITH_YOU"
	TypeDeliveryConfirmed = "DELIVERY_CONFIRMED"
	TypeDeliveryCancelled = "DELIVERY_CANCELLED"
	TypeDeliveryInTransit = "DELIVERY_IN_TRANSIT"
	TypeDeliveryCompleted = "DELIVERY_COMPLETED"
	TypeNewMessage        = "NEW_MESSAGE"
)

// Notification targets exactly one user.
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	DeliveryID *uuid.UUID `json:"delivery_id,omitempty"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Draft is a notification before fan-out: the dispatcher turns one draft
// into one row per recipient user.
type Draft struct {
	DeliveryID *uuid.UUID
	Type       string
	Title      string
	Message    string
}
