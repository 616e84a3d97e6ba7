// Package prompt correlates opaque button tokens with the command
// invocations waiting on them. The transport layer knows nothing about
// commands: it hands every click to Resolve and the registry routes the
// continuation to whichever waiter owns the token, if any.
package prompt

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/metrics"
)

const sweepInterval = 30 * time.Second

type pending struct {
	waiter    chan gateway.Responder
	createdAt time.Time
	resolved  bool
}

// Registry is the pending-prompt table. Safe for concurrent use; every
// operation on a token is atomic with respect to concurrent resolves and
// discards of the same token.
type Registry struct {
	mu      sync.Mutex
	prompts map[uuid.UUID]*pending

	ttl    time.Duration
	logger zerolog.Logger
	stop   chan struct{}
	once   sync.Once
}

// NewRegistry builds the table and starts the janitor that evicts entries
// older than ttl. The ttl should comfortably exceed the confirm window so
// the janitor only ever collects orphans, never live prompts.
func NewRegistry(ttl time.Duration, logger zerolog.Logger) *Registry {
	r := &Registry{
		prompts: make(map[uuid.UUID]*pending),
		ttl:     ttl,
		logger:  logger.With().Str("component", "prompt_registry").Logger(),
		stop:    make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Create registers a new unresolved prompt and returns its token together
// with the channel that delivers the continuation when the prompt resolves.
func (r *Registry) Create() (uuid.UUID, <-chan gateway.Responder) {
	token := uuid.New()
	p := &pending{
		waiter:    make(chan gateway.Responder, 1),
		createdAt: time.Now(),
	}

	r.mu.Lock()
	r.prompts[token] = p
	r.mu.Unlock()

	return token, p.waiter
}

// Resolve delivers the continuation to the waiter registered under token.
// Unknown tokens are a silent no-op: the transport cannot tell a foreign
// button from an expired prompt, and neither is an error. At most one
// Resolve per token has any effect; the entry stays in the table so the
// owning command can invalidate sibling prompts before discarding it.
func (r *Registry) Resolve(token uuid.UUID, c gateway.Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[token]
	if !ok || p.resolved {
		return
	}
	p.resolved = true
	p.waiter <- c
}

// Contains reports whether the token is still tracked. Timeout logic uses
// this to tell "still pending" from "already handled".
func (r *Registry) Contains(token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.prompts[token]
	return ok
}

// Discard drops the entry unconditionally. Idempotent.
func (r *Registry) Discard(token uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prompts, token)
}

// Len returns the number of tracked prompts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

// Close stops the janitor. Pending entries are left to their owners.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if n := r.sweep(time.Now()); n > 0 {
				metrics.PromptsExpired.Add(float64(n))
				r.logger.Warn().Int("evicted", n).Msg("evicted orphaned prompts")
			}
		}
	}
}

// sweep evicts entries older than the ttl and returns how many it removed.
// Commands discard their own prompts on every terminal path, so anything
// the janitor finds was leaked by a failed invocation.
func (r *Registry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for token, p := range r.prompts {
		if now.Sub(p.createdAt) > r.ttl {
			delete(r.prompts, token)
			evicted++
		}
	}
	return evicted
}
