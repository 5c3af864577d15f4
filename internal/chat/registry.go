package chat

import (
	"strings"
	"sync"
	"time"
)

// FlushMeta carries the per-chat context captured at enqueue time that the
// flush pipeline needs. Each enqueue overwrites it, so a flush sees the
// values from the newest message of the burst.
type FlushMeta struct {
	BusinessAccountID string
	BuyerID           string
	ClientID          uint
	BuyerName         string
	AdURL             string
	ChatURL           string
	ThreadID          string
}

// FlushFunc receives the combined text of a drained batch. It runs on the
// timer goroutine, outside the chat lock.
type FlushFunc func(chatID, combined string, meta FlushMeta)

// Registry owns all per-chat mutable state: the pending message batches,
// their debounce timers, and the per-chat locks that serialize event
// processing. Distinct chats never contend with each other.
type Registry struct {
	window time.Duration
	flush  FlushFunc

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu      sync.Mutex
	batches map[string]*batch
	// gens count timer (re)starts per chat; a fired timer whose generation
	// is stale was cancelled and must not flush.
	gens map[string]uint64
}

// batch buffers one contiguous burst of buyer messages.
type batch struct {
	texts []string
	meta  FlushMeta
	timer *time.Timer
}

// NewRegistry creates a Registry. flush is invoked with the combined text
// each time a quiet window elapses uncancelled.
func NewRegistry(window time.Duration, flush FlushFunc) *Registry {
	return &Registry{
		window:  window,
		flush:   flush,
		locks:   make(map[string]*sync.Mutex),
		batches: make(map[string]*batch),
		gens:    make(map[string]uint64),
	}
}

// Do runs fn while holding the chat's lock. All event processing and batch
// mutation for one chat id goes through here, which gives the per-chat
// ordering guarantee while leaving distinct chats fully parallel.
func (r *Registry) Do(chatID string, fn func()) {
	mu := r.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()
	fn()
}

// chatLock returns the mutex for a chat id, creating it on first use.
func (r *Registry) chatLock(chatID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	mu, ok := r.locks[chatID]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[chatID] = mu
	}
	return mu
}

// Enqueue appends a message to the chat's pending batch, creating it if
// absent, and restarts the debounce timer. The previous timer, if any, is
// cancelled first: the last enqueue wins. Caller must hold the chat lock
// (via Do).
func (r *Registry) Enqueue(chatID, text string, meta FlushMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[chatID]
	if !ok {
		b = &batch{}
		r.batches[chatID] = b
	}
	b.texts = append(b.texts, text)
	b.meta = meta

	if b.timer != nil {
		b.timer.Stop()
	}
	r.gens[chatID]++
	gen := r.gens[chatID]
	b.timer = time.AfterFunc(r.window, func() {
		r.fire(chatID, gen)
	})
}

// CancelPending drops the chat's pending batch without flushing. Caller
// must hold the chat lock.
func (r *Registry) CancelPending(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[chatID]
	if !ok {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	r.gens[chatID]++
	delete(r.batches, chatID)
}

// PendingCount reports how many messages are buffered for the chat.
func (r *Registry) PendingCount(chatID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[chatID]; ok {
		return len(b.texts)
	}
	return 0
}

// fire is the timer callback. A timer that lost the race against its own
// cancellation observes a stale generation here and abandons the flush.
func (r *Registry) fire(chatID string, gen uint64) {
	mu := r.chatLock(chatID)
	mu.Lock()

	r.mu.Lock()
	b, ok := r.batches[chatID]
	if !ok || r.gens[chatID] != gen {
		r.mu.Unlock()
		mu.Unlock()
		return
	}
	texts := b.texts
	meta := b.meta
	delete(r.batches, chatID)
	r.mu.Unlock()
	mu.Unlock()

	r.flush(chatID, strings.Join(texts, " "), meta)
}
