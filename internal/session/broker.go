package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Event string

const (
	SignedIn       Event = "signed_in"
	SignedOut      Event = "signed_out"
	TokenRefreshed Event = "token_refreshed"
	UserUpdated    Event = "user_updated"
)

type Session struct {
	UserID          uuid.UUID `json:"user_id"`
	Email           string    `json:"email"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// Change is one snapshot published by the identity provider. Session is nil after sign-out.
type Change struct {
	Seq     uint64
	Event   Event
	UserID  uuid.UUID
	Session *Session
	At      time.Time
}

type Handler func(ctx context.Context, ch Change)

type Broker struct {
	mu       sync.RWMutex
	seq      uint64
	nextID   uint64
	handlers map[uint64]Handler
}

func NewBroker() *Broker {
	return &Broker{handlers: make(map[uint64]Handler)}
}

// OnSessionChange registers h for every later change. Calling the returned func stops delivery.
func (b *Broker) OnSessionChange(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish stamps ch with the next sequence number and delivers it synchronously.
func (b *Broker) Publish(ctx context.Context, ch Change) {
	b.mu.Lock()
	b.seq++
	ch.Seq = b.seq
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(ctx, ch)
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
