package store

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/tidecall/supportkit/internal/model/chat"
)

var (
	ErrContentRequired = errors.New("message content is required")
	ErrRoleRequired    = errors.New("message role is required")
)

// Store is the single source of truth for the active conversation: identity,
// ordered message log and the loading/error flags views gate on. It is an
// explicit state container, constructed once per application instance and
// handed to whichever controller needs it.
type Store struct {
	mu             sync.RWMutex
	state          *StateFile
	sessionID      string
	conversationID string
	messages       []chat.Message
	loading        bool
	lastErr        error
	subscribers    []func()
}

// NewStore builds a store. state may be nil, in which case the session id is
// never persisted (the widget path).
func NewStore(state *StateFile) *Store {
	return &Store{state: state}
}

// InitSession returns the persisted session id when one exists, otherwise it
// generates a fresh opaque token and persists it. Repeated calls within a
// process lifetime return the same id.
func (s *Store) InitSession() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != "" {
		return s.sessionID, nil
	}

	if s.state != nil {
		persisted, err := s.state.Get(KeySessionID)
		if err != nil {
			return "", err
		}
		if persisted != "" {
			s.sessionID = persisted
			return persisted, nil
		}
	}

	id := uuid.NewString()
	if s.state != nil {
		if err := s.state.Put(KeySessionID, id); err != nil {
			return "", err
		}
	}
	s.sessionID = id
	return id, nil
}

// AddMessage appends a message to the log, filling the id and timestamp when
// absent. Only content and role are validated.
func (s *Store) AddMessage(msg chat.Message) (chat.Message, error) {
	if msg.Content == "" {
		return chat.Message{}, ErrContentRequired
	}
	if msg.Role == "" {
		return chat.Message{}, ErrRoleRequired
	}

	msg = msg.WithDefaults()

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.notify()
	return msg, nil
}

// SetConversationID records the backend-assigned conversation id. The first
// write wins: a later call with a different value is a caller bug and is
// ignored with a log line rather than reassigning.
func (s *Store) SetConversationID(id string) {
	s.mu.Lock()
	if s.conversationID != "" && s.conversationID != id {
		log.Printf("[store] ignoring conversation id change %s -> %s", s.conversationID, id)
		s.mu.Unlock()
		return
	}
	s.conversationID = id
	s.mu.Unlock()

	s.notify()
}

// ConversationID returns the assigned conversation id, or "".
func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// ClearChat removes the persisted session id and resets the message log,
// conversation id and error together. The next InitSession yields a new id.
func (s *Store) ClearChat() error {
	s.mu.Lock()
	if s.state != nil {
		if err := s.state.Delete(KeySessionID); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.sessionID = ""
	s.conversationID = ""
	s.messages = nil
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetLoading flips the busy flag views gate on.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()

	s.notify()
}

// Loading reports the busy flag.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetError records a visible error state. Pass nil to dismiss it; errors are
// never cleared automatically.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	s.notify()
}

// Err returns the current error state, nil when dismissed.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Messages returns a copy of the ordered message log.
func (s *Store) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Session snapshots the conversational context.
func (s *Store) Session() chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return chat.Session{
		SessionID:      s.sessionID,
		ConversationID: s.conversationID,
		Messages:       copied,
	}
}

// Subscribe registers a change callback, the re-render hook for views. The
// callback runs outside the store lock.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
