package session

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/google/uuid"
)

const profileReloadTimeout = 3 * time.Second

type ProfileLoader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type State struct {
	Session   *Session        `json:"session"`
	Profile   *models.Profile `json:"profile"`
	LastEvent Event           `json:"last_event"`
	UpdatedAt time.Time       `json:"updated_at"`
	seq       uint64
}

// Tracker owns the latest session snapshot per user and keeps the derived profile fresh.
type Tracker struct {
	mu       sync.RWMutex
	states   map[uuid.UUID]*State
	profSubs map[uuid.UUID]func()
	loader   ProfileLoader
	cache    *querycache.Cache
	unsub    func()
	closed   bool
}

func NewTracker(b *Broker, cache *querycache.Cache, loader ProfileLoader) *Tracker {
	t := &Tracker{
		states:   make(map[uuid.UUID]*State),
		profSubs: make(map[uuid.UUID]func()),
		loader:   loader,
		cache:    cache,
	}
	t.unsub = b.OnSessionChange(t.handle)
	return t
}

func (t *Tracker) handle(ctx context.Context, ch Change) {
	if ch.Event == SignedOut {
		t.forget(ch.UserID, ch.Seq)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	st, ok := t.states[ch.UserID]
	if ok && st.seq > ch.Seq {
		t.mu.Unlock()
		return
	}
	if !ok {
		st = &State{}
		t.states[ch.UserID] = st
	}
	if ch.Session != nil {
		st.Session = ch.Session
	}
	st.LastEvent = ch.Event
	st.UpdatedAt = ch.At
	st.seq = ch.Seq
	if _, subscribed := t.profSubs[ch.UserID]; !subscribed && t.cache != nil {
		userID := ch.UserID
		t.profSubs[userID] = t.cache.Subscribe(querycache.ProfileTag(userID), func(string) {
			rctx, cancel := context.WithTimeout(context.Background(), profileReloadTimeout)
			defer cancel()
			t.reloadProfile(rctx, userID)
		})
	}
	t.mu.Unlock()

	t.reloadProfile(ctx, ch.UserID)
}

func (t *Tracker) reloadProfile(ctx context.Context, userID uuid.UUID) {
	p, err := t.loader.GetProfile(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Warn("session_profile_reload_failed", "user_id", userID, "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[userID]; ok {
		st.Profile = p
	}
}

func (t *Tracker) forget(userID uuid.UUID, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[userID]; ok && st.seq > seq {
		return
	}
	delete(t.states, userID)
	if unsub, ok := t.profSubs[userID]; ok {
		unsub()
		delete(t.profSubs, userID)
	}
}

// Current returns a copy of the user's latest state.
func (t *Tracker) Current(userID uuid.UUID) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[userID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Close detaches the tracker from the broker and the cache.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.unsub()
	for id, unsub := range t.profSubs {
		unsub()
		delete(t.profSubs, id)
	}
	t.states = make(map[uuid.UUID]*State)
}
