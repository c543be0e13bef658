// Package chat implements the dashboard chat controller and the shared
// send-message protocol both the typed path and the voice path go through.
package chat

import (
	"context"

	"github.com/tidecall/supportkit/internal/api"
)

// Sender is the chat session protocol: submit one user turn, get the
// assistant reply. The dashboard and the widget each bind it to their own
// backend endpoint, which keeps the two surfaces from drifting apart.
type Sender interface {
	Send(ctx context.Context, sessionID, conversationID, content string) (*api.Reply, error)
}

// OrgSender sends through the organization-scoped dashboard endpoint. The
// backend resolves the conversation from the session token, so the
// conversation id travels only client-side.
type OrgSender struct {
	Client         *api.Client
	OrganizationID string
}

func (s *OrgSender) Send(ctx context.Context, sessionID, _, content string) (*api.Reply, error) {
	return s.Client.SendMessage(ctx, s.OrganizationID, sessionID, content)
}

// ChatbotSender sends through the public widget endpoint.
type ChatbotSender struct {
	Client    *api.Client
	ChatbotID string
}

func (s *ChatbotSender) Send(ctx context.Context, sessionID, _, content string) (*api.Reply, error) {
	return s.Client.WidgetMessage(ctx, s.ChatbotID, sessionID, content)
}
