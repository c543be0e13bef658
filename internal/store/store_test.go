package store_test

import (
	"path/filepath"
	"testing"

	modelchat "github.com/tidecall/supportkit/internal/model/chat"
	"github.com/tidecall/supportkit/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	state := store.NewStateFile(filepath.Join(t.TempDir(), "state.db"))
	return store.NewStore(state)
}

func TestAddMessagePreservesOrderAndAssignsIDs(t *testing.T) {
	st := newTestStore(t)

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := st.AddMessage(modelchat.Message{Role: modelchat.RoleUser, Content: c}); err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
	}

	messages := st.Messages()
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}

	seen := map[string]bool{}
	for i, m := range messages {
		if m.Content != contents[i] {
			t.Fatalf("message %d out of order: got %q want %q", i, m.Content, contents[i])
		}
		if m.ID == "" {
			t.Fatalf("message %d has no id", i)
		}
		if seen[m.ID] {
			t.Fatalf("duplicate message id %s", m.ID)
		}
		seen[m.ID] = true
		if m.CreatedAt.IsZero() {
			t.Fatalf("message %d has no timestamp", i)
		}
	}
}

func TestAddMessageValidation(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.AddMessage(modelchat.Message{Role: modelchat.RoleUser}); err == nil {
		t.Fatal("expected error for missing content")
	}
	if _, err := st.AddMessage(modelchat.Message{Content: "hi"}); err == nil {
		t.Fatal("expected error for missing role")
	}
}

func TestInitSessionIdempotent(t *testing.T) {
	state := store.NewStateFile(filepath.Join(t.TempDir(), "state.db"))
	st := store.NewStore(state)

	first, err := st.InitSession()
	if err != nil {
		t.Fatalf("InitSession err: %v", err)
	}
	second, err := st.InitSession()
	if err != nil {
		t.Fatalf("InitSession err: %v", err)
	}
	if first != second {
		t.Fatalf("session id changed between calls: %s vs %s", first, second)
	}

	// A second store over the same state file sees the persisted id.
	other := store.NewStore(state)
	persisted, err := other.InitSession()
	if err != nil {
		t.Fatalf("InitSession err: %v", err)
	}
	if persisted != first {
		t.Fatalf("persisted session id mismatch: %s vs %s", persisted, first)
	}
}

func TestClearChatResetsEverythingTogether(t *testing.T) {
	st := newTestStore(t)

	before, err := st.InitSession()
	if err != nil {
		t.Fatalf("InitSession err: %v", err)
	}
	if _, err := st.AddMessage(modelchat.Message{Role: modelchat.RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}
	st.SetConversationID("c1")
	st.SetError(store.ErrContentRequired)

	if err := st.ClearChat(); err != nil {
		t.Fatalf("ClearChat err: %v", err)
	}

	if len(st.Messages()) != 0 {
		t.Fatal("messages not cleared")
	}
	if st.ConversationID() != "" {
		t.Fatal("conversation id not cleared")
	}
	if st.Err() != nil {
		t.Fatal("error state not cleared")
	}

	after, err := st.InitSession()
	if err != nil {
		t.Fatalf("InitSession err: %v", err)
	}
	if after == before {
		t.Fatalf("session id %s survived ClearChat", before)
	}
}

func TestSetConversationIDFirstWriteWins(t *testing.T) {
	st := newTestStore(t)

	st.SetConversationID("c1")
	st.SetConversationID("c2")

	if got := st.ConversationID(); got != "c1" {
		t.Fatalf("conversation id reassigned: got %s want c1", got)
	}

	// Re-setting the same value is harmless.
	st.SetConversationID("c1")
	if got := st.ConversationID(); got != "c1" {
		t.Fatalf("conversation id changed: got %s", got)
	}
}

func TestSubscribeNotifiedOnChanges(t *testing.T) {
	st := newTestStore(t)

	notified := 0
	st.Subscribe(func() { notified++ })

	if _, err := st.AddMessage(modelchat.Message{Role: modelchat.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}
	st.SetLoading(true)
	st.SetError(nil)

	if notified != 3 {
		t.Fatalf("expected 3 notifications, got %d", notified)
	}
}
