package chat

// Session captures the client-local conversational context. SessionID is the
// opaque token generated on this side; ConversationID is assigned by the
// backend on the first successful exchange and never changes afterwards.
type Session struct {
	SessionID      string    `json:"sessionId"`
	ConversationID string    `json:"conversationId,omitempty"`
	Messages       []Message `json:"messages"`
}
