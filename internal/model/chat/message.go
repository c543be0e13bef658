package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. The backend only ever produces these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation transcript.
type Message struct {
	ID              string    `json:"id"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	ConfidenceScore *float64  `json:"confidenceScore,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// WithDefaults fills the id and timestamp when the caller left them empty.
func (m Message) WithDefaults() Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return m
}
