package chat

import (
	"context"
	"sync"

	modelchat "github.com/tidecall/supportkit/internal/model/chat"
	"github.com/tidecall/supportkit/internal/speech"
	"github.com/tidecall/supportkit/internal/store"
)

// Controller drives the synchronous request/response chat: append the user
// turn, send it, append the reply. Voice output is an optional toggle on
// top; the voice call path has its own coordinator and uses this controller
// with the toggle off.
type Controller struct {
	store  *store.Store
	sender Sender

	mu          sync.Mutex
	speaker     *speech.Speaker
	voiceOutput bool
}

// NewController wires a controller to its store and sender. speaker may be
// nil when the host has no speech output.
func NewController(st *store.Store, sender Sender, speaker *speech.Speaker) *Controller {
	return &Controller{store: st, sender: sender, speaker: speaker}
}

// SetVoiceOutput toggles speaking assistant replies aloud.
func (c *Controller) SetVoiceOutput(enabled bool) {
	c.mu.Lock()
	c.voiceOutput = enabled
	c.mu.Unlock()
}

// Send submits one typed (or transcribed) user turn. The user message is
// appended before the remote call and deliberately stays in the log when the
// send fails, preserved for a manual resend; the failure is surfaced as the
// store's error state.
func (c *Controller) Send(ctx context.Context, content string) (string, error) {
	sessionID, err := c.store.InitSession()
	if err != nil {
		c.store.SetError(err)
		return "", err
	}

	if _, err := c.store.AddMessage(modelchat.Message{Role: modelchat.RoleUser, Content: content}); err != nil {
		return "", err
	}

	c.store.SetLoading(true)
	defer c.store.SetLoading(false)

	reply, err := c.sender.Send(ctx, sessionID, c.store.ConversationID(), content)
	if err != nil {
		c.store.SetError(err)
		return "", err
	}

	if reply.ConversationID != "" {
		c.store.SetConversationID(reply.ConversationID)
	}

	if _, err := c.store.AddMessage(modelchat.Message{
		Role:            modelchat.RoleAssistant,
		Content:         reply.Content,
		ConfidenceScore: reply.ConfidenceScore,
	}); err != nil {
		return "", err
	}

	c.speakIfEnabled(reply.Content)
	return reply.Content, nil
}

// HandlePush appends a message pushed over the live channel, e.g. a human
// agent reply after escalation.
func (c *Controller) HandlePush(content string) {
	if content == "" {
		return
	}
	_, _ = c.store.AddMessage(modelchat.Message{Role: modelchat.RoleAssistant, Content: content})
	c.speakIfEnabled(content)
}

// StartNewConversation resets the session store entirely: persisted session
// id, message log, conversation id and error state go together.
func (c *Controller) StartNewConversation() error {
	return c.store.ClearChat()
}

func (c *Controller) speakIfEnabled(text string) {
	c.mu.Lock()
	speaker, enabled := c.speaker, c.voiceOutput
	c.mu.Unlock()

	if enabled && speaker != nil && text != "" {
		speaker.Speak(text, nil)
	}
}
