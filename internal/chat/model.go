// Package chat carries the free-text conversation both parties keep on a
// delivery. Messages are append-only and ordered by creation time.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 2000

// Message is one chat entry on a delivery.
type Message struct {
	ID         uuid.UUID `json:"id"`
	DeliveryID uuid.UUID `json:"delivery_id"`
	UserID     uuid.UUID `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// SendMessageRequest posts a new message.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}
