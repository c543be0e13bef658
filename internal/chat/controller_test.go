package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tidecall/supportkit/internal/api"
	"github.com/tidecall/supportkit/internal/chat"
	modelchat "github.com/tidecall/supportkit/internal/model/chat"
	"github.com/tidecall/supportkit/internal/store"
)

type stubSender struct {
	reply      *api.Reply
	err        error
	sessionIDs []string
	contents   []string
}

func (s *stubSender) Send(_ context.Context, sessionID, _, content string) (*api.Reply, error) {
	s.sessionIDs = append(s.sessionIDs, sessionID)
	s.contents = append(s.contents, content)
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func TestSendAppendsBothTurns(t *testing.T) {
	confidence := 0.87
	sender := &stubSender{reply: &api.Reply{
		ConversationID:  "c1",
		Content:         "You can reset it from account settings.",
		ConfidenceScore: &confidence,
	}}
	st := store.NewStore(nil)
	controller := chat.NewController(st, sender, nil)

	reply, err := controller.Send(context.Background(), "How do I reset my password?")
	if err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if reply != "You can reset it from account settings." {
		t.Fatalf("reply %q", reply)
	}

	messages := st.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != modelchat.RoleUser || messages[0].Content != "How do I reset my password?" {
		t.Fatalf("user turn %+v", messages[0])
	}
	if messages[1].Role != modelchat.RoleAssistant {
		t.Fatalf("assistant turn %+v", messages[1])
	}
	if messages[1].ConfidenceScore == nil || *messages[1].ConfidenceScore != confidence {
		t.Fatalf("confidence %v", messages[1].ConfidenceScore)
	}

	if got := st.ConversationID(); got != "c1" {
		t.Fatalf("conversation id %q", got)
	}
	if st.Loading() {
		t.Fatal("loading flag left set")
	}
	if st.Err() != nil {
		t.Fatalf("error state %v", st.Err())
	}

	// The session was initialized lazily and used for the send.
	if len(sender.sessionIDs) != 1 || sender.sessionIDs[0] == "" {
		t.Fatalf("session ids %v", sender.sessionIDs)
	}
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	wantErr := errors.New("backend down")
	st := store.NewStore(nil)
	controller := chat.NewController(st, &stubSender{err: wantErr}, nil)

	if _, err := controller.Send(context.Background(), "hello?"); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}

	messages := st.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected the user turn to survive, got %d messages", len(messages))
	}
	if messages[0].Role != modelchat.RoleUser || messages[0].Content != "hello?" {
		t.Fatalf("surviving message %+v", messages[0])
	}
	if !errors.Is(st.Err(), wantErr) {
		t.Fatalf("store error %v", st.Err())
	}
	if st.Loading() {
		t.Fatal("loading flag left set after failure")
	}
}

func TestSendReusesSessionAcrossTurns(t *testing.T) {
	sender := &stubSender{reply: &api.Reply{Content: "ok"}}
	st := store.NewStore(nil)
	controller := chat.NewController(st, sender, nil)

	if _, err := controller.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if _, err := controller.Send(context.Background(), "second"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	if len(sender.sessionIDs) != 2 || sender.sessionIDs[0] != sender.sessionIDs[1] {
		t.Fatalf("session ids %v, want the same id twice", sender.sessionIDs)
	}
}

func TestHandlePushAppendsAssistantMessage(t *testing.T) {
	st := store.NewStore(nil)
	controller := chat.NewController(st, &stubSender{}, nil)

	controller.HandlePush("an agent will be with you shortly")
	controller.HandlePush("")

	messages := st.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != modelchat.RoleAssistant {
		t.Fatalf("pushed message %+v", messages[0])
	}
}

func TestStartNewConversationClearsState(t *testing.T) {
	sender := &stubSender{reply: &api.Reply{ConversationID: "c1", Content: "ok"}}
	st := store.NewStore(nil)
	controller := chat.NewController(st, sender, nil)

	if _, err := controller.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if err := controller.StartNewConversation(); err != nil {
		t.Fatalf("StartNewConversation err: %v", err)
	}

	if len(st.Messages()) != 0 || st.ConversationID() != "" {
		t.Fatal("conversation state survived reset")
	}

	// The next turn runs under a fresh session id.
	if _, err := controller.Send(context.Background(), "hi again"); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if sender.sessionIDs[0] == sender.sessionIDs[1] {
		t.Fatalf("session id %s reused after reset", sender.sessionIDs[0])
	}
}
