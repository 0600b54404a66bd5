package memory

import (
	"context"
	"sync"

	"prime-quiz-bot/internal/domain"
)

// Delivery is one message or document handed to the Outbox.
type Delivery struct {
	To       string
	Message  *domain.Message
	Document *domain.Document
}

// Outbox is a Notifier that keeps every delivery in memory (useful for tests/demos).
// Recipients listed in Fail are refused with FailErr.
type Outbox struct {
	mu         sync.Mutex
	deliveries []Delivery
	Fail       map[string]bool
	FailErr    error
}

func NewOutbox() *Outbox {
	return &Outbox{Fail: make(map[string]bool)}
}

func (o *Outbox) SendText(_ context.Context, to string, msg domain.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail[to] {
		return o.FailErr
	}
	o.deliveries = append(o.deliveries, Delivery{To: to, Message: &msg})
	return nil
}

func (o *Outbox) SendDocument(_ context.Context, to string, doc domain.Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail[to] {
		return o.FailErr
	}
	o.deliveries = append(o.deliveries, Delivery{To: to, Document: &doc})
	return nil
}

// For returns the deliveries addressed to one recipient, oldest first.
func (o *Outbox) For(to string) []Delivery {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Delivery
	for _, d := range o.deliveries {
		if d.To == to {
			out = append(out, d)
		}
	}
	return out
}

// LastText returns the text of the newest message sent to a recipient.
func (o *Outbox) LastText(to string) string {
	deliveries := o.For(to)
	for i := len(deliveries) - 1; i >= 0; i-- {
		if deliveries[i].Message != nil {
			return deliveries[i].Message.Text
		}
	}
	return ""
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = nil
}
