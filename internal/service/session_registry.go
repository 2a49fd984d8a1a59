package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

// activeDiscountKey is the durable-storage key of a session's applied discount.
const activeDiscountKey = "activeDiscount"

// SessionKey returns the durable-storage key for a session's active discount.
func SessionKey(sessionID string) string {
	return "session:" + sessionID + ":" + activeDiscountKey
}

// Defaults for SessionLimits fields left at zero.
const (
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultMaxSessions    = 10000
)

// SessionLimits bounds the stores a SessionRegistry keeps in memory.
type SessionLimits struct {
	// IdleTTL evicts a store not used for this long.
	IdleTTL time.Duration
	// MaxSessions caps the number of stores; the least recently used is
	// evicted to make room.
	MaxSessions int
}

// SessionRegistry owns one DiscountStore per shopper session. Stores are
// created and rehydrated from durable storage on first use, and evicted
// once idle or when the registry is full. An evicted session is rebuilt
// from durable storage on its next request.
type SessionRegistry struct {
	catalog Catalog
	storage DurableStorage
	opts    []StoreOption
	idleTTL time.Duration
	max     int
	now     func() time.Time

	mu        sync.Mutex
	stores    map[string]*sessionEntry
	lastSweep time.Time
}

type sessionEntry struct {
	store    *DiscountStore
	lastUsed time.Time
}

// NewSessionRegistry creates a registry whose stores share catalog, storage and opts.
func NewSessionRegistry(catalog Catalog, storage DurableStorage, limits SessionLimits, opts ...StoreOption) *SessionRegistry {
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultSessionIdleTTL
	}
	if limits.MaxSessions <= 0 {
		limits.MaxSessions = DefaultMaxSessions
	}
	return &SessionRegistry{
		catalog: catalog,
		storage: storage,
		opts:    opts,
		idleTTL: limits.IdleTTL,
		max:     limits.MaxSessions,
		now:     time.Now,
		stores:  make(map[string]*sessionEntry),
	}
}

// NewSession returns a fresh session id.
func (r *SessionRegistry) NewSession() string {
	return uuid.NewString()
}

// Store returns the session's store, loading it from durable storage if it
// is not in memory yet. Returns ErrInvalidSession for malformed ids.
func (r *SessionRegistry) Store(ctx context.Context, sessionID string) (*DiscountStore, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	sessionID = id.String()

	if store, ok := r.touch(sessionID); ok {
		return store, nil
	}

	store := NewDiscountStore(r.catalog, r.storage, SessionKey(sessionID), r.opts...)
	if err := store.Load(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to rehydrate discount, starting empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if existing, ok := r.stores[sessionID]; ok {
		existing.lastUsed = now
		return existing.store, nil
	}
	r.evictLocked(now)
	store.Subscribe(func(state model.StoreState) {
		code := ""
		if state.Discount != nil {
			code = state.Discount.Code
		}
		log.Debug().
			Str("session_id", sessionID).
			Str("discount_code", code).
			Bool("banner_visible", state.BannerVisible).
			Msg("discount store changed")
	})
	r.stores[sessionID] = &sessionEntry{store: store, lastUsed: now}
	return store, nil
}

func (r *SessionRegistry) touch(sessionID string) (*DiscountStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastUsed = r.now()
	return entry.store, true
}

// evictLocked makes room for one more store. Idle stores are swept at most
// once per idle TTL unless the registry is full.
func (r *SessionRegistry) evictLocked(now time.Time) {
	full := len(r.stores) >= r.max
	if !full && now.Sub(r.lastSweep) < r.idleTTL {
		return
	}
	r.lastSweep = now
	for id, entry := range r.stores {
		if now.Sub(entry.lastUsed) >= r.idleTTL {
			delete(r.stores, id)
		}
	}

	for len(r.stores) >= r.max {
		var oldestID string
		var oldest time.Time
		for id, entry := range r.stores {
			if oldestID == "" || entry.lastUsed.Before(oldest) {
				oldestID, oldest = id, entry.lastUsed
			}
		}
		delete(r.stores, oldestID)
		log.Debug().Str("session_id", oldestID).Msg("session registry full, evicted least recently used session")
	}
}
