package messaging

import (
	"time"

	"github.com/sudo-init-do/bazaar/internal/user"
)

type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	ReceiverID string     `json:"receiver_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Conversation is the latest message exchanged with one counterpart.
type Conversation struct {
	Message Message      `json:"message"`
	User    user.Profile `json:"user"`
}

type CreateMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}
