package core

import (
	"aiwallet/aiwallet/agents/intent"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Kind string

const (
	KindText        Kind = "text"
	KindError       Kind = "error"
	KindSecurity    Kind = "security"
	KindTransaction Kind = "transaction"
)

var ErrSessionNotFound = errors.New("session not found")

// ChatMessage is one entry of a conversation. Messages are never mutated after
// they are appended.
type ChatMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Kind      Kind       `json:"kind"`
	UI        *intent.UI `json:"ui,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

func newMessage(role Role, kind Kind, content string, ui *intent.UI) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Kind:      kind,
		UI:        ui,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Conversation is one chat session. Turns are serialized by mu; background
// events go through Emit, which takes the same lock.
type Conversation struct {
	ID     string
	UserID int

	mu          sync.Mutex
	messages    []ChatMessage
	draft       *intent.TransferDraft
	lastFailed  string
	lastError   string
	// set while the create confirmation menu is on screen
	awaitingCreate bool
	emitted     map[string]bool
	subscribers map[chan ChatMessage]struct{}
}

func NewConversation(id string, userID int) *Conversation {
	return &Conversation{
		ID:          id,
		UserID:      userID,
		draft:       intent.NewTransferDraft(),
		emitted:     make(map[string]bool),
		subscribers: make(map[chan ChatMessage]struct{}),
	}
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.messages...)
}

// Draft returns a copy of the transfer draft.
func (c *Conversation) Draft() intent.TransferDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.draft
}

// Restore loads stored history into a conversation that has none yet.
func (c *Conversation) Restore(msgs []ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		c.messages = append(c.messages, msgs...)
	}
}

// append must be called with mu held.
func (c *Conversation) append(msgs ...ChatMessage) {
	c.messages = append(c.messages, msgs...)
}

// Emit appends an asynchronous event message at most once per id and
// forwards it to subscribers. It reports whether the message was added.
func (c *Conversation) Emit(id string, msg ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emitted[id] {
		return false
	}
	c.emitted[id] = true
	c.messages = append(c.messages, msg)
	for ch := range c.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	return true
}

// Subscribe delivers emitted events until cancel is called.
func (c *Conversation) Subscribe() (<-chan ChatMessage, func()) {
	ch := make(chan ChatMessage, 8)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		delete(c.subscribers, ch)
		c.mu.Unlock()
	}
}

// ConversationStore keeps live conversations in memory keyed by session id.
type ConversationStore struct {
	mu    sync.Mutex
	convs map[string]*Conversation
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{convs: make(map[string]*Conversation)}
}

// GetOrCreate returns the user's conversation for sessionID, creating it when
// unknown. An empty sessionID starts a new session. A session owned by another
// user is reported as not found.
func (s *ConversationStore) GetOrCreate(userID int, sessionID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if c, ok := s.convs[sessionID]; ok {
		if c.UserID != userID {
			return nil, ErrSessionNotFound
		}
		return c, nil
	}
	c := NewConversation(sessionID, userID)
	s.convs[sessionID] = c
	return c, nil
}

func (s *ConversationStore) Delete(userID int, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[sessionID]; ok && c.UserID == userID {
		delete(s.convs, sessionID)
	}
}
