package notify

import (
	"context"
	"sync"
)

// Message is one recorded send, for test assertions.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// MemoryNotifier records messages instead of sending them.
type MemoryNotifier struct {
	messages []Message
	failWith error
	mu       sync.Mutex
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// FailWith makes every subsequent Send return err.
func (n *MemoryNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failWith = err
}

func (n *MemoryNotifier) Send(ctx context.Context, to, cc []string, subject, htmlBody string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.messages = append(n.messages, Message{To: to, Cc: cc, Subject: subject, Body: htmlBody})
	return nil
}

// Messages returns all recorded sends.
func (n *MemoryNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}
