package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderLocal  Sender = "local"
	SenderRemote Sender = "remote"
	SenderSystem Sender = "system"
)

type ChatMessage struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

// NewChatMessage builds a message with a fresh id and the given timestamp,
// defaulting to now.
func NewChatMessage(text string, sender Sender, ts time.Time) ChatMessage {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: ts,
	}
}

// ChatThread is the append-only message list for one session. Cleared when
// the session ends.
type ChatThread struct {
	messages []ChatMessage
	mu       sync.RWMutex
}

func NewChatThread() *ChatThread {
	return &ChatThread{}
}

func (t *ChatThread) Append(msg ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// AppendSystem appends a system-sender message with the current time.
func (t *ChatThread) AppendSystem(text string) {
	t.Append(NewChatMessage(text, SenderSystem, time.Time{}))
}

func (t *ChatThread) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}

func (t *ChatThread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a snapshot of the thread in append order.
func (t *ChatThread) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}
