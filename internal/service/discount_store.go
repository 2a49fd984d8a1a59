package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/pricing"
)

// DefaultBannerDismissDelay is how long the banner stays visible after a
// discount is removed, so the UI can finish its dismissal animation.
const DefaultBannerDismissDelay = 700 * time.Millisecond

// Catalog looks discounts up by normalized code.
// Returns nil, nil when the code does not exist.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (*model.Discount, error)
}

// DurableStorage persists the active discount across restarts.
// Get returns nil, nil when the key is absent.
type DurableStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StoreOption configures a DiscountStore.
type StoreOption func(*DiscountStore)

// WithClock overrides the time source used by the validity predicate.
func WithClock(now func() time.Time) StoreOption {
	return func(s *DiscountStore) { s.now = now }
}

// WithBannerDismissDelay overrides DefaultBannerDismissDelay.
func WithBannerDismissDelay(d time.Duration) StoreOption {
	return func(s *DiscountStore) { s.bannerDelay = d }
}

// WithFetchTimeout bounds each catalog lookup.
func WithFetchTimeout(d time.Duration) StoreOption {
	return func(s *DiscountStore) { s.fetchTimeout = d }
}

// DiscountStore owns the single applied discount of one shopper. Applying a
// discount always replaces the previous one; a discount is either fully
// valid and active or absent.
type DiscountStore struct {
	catalog      Catalog
	storage      DurableStorage
	key          string
	now          func() time.Time
	bannerDelay  time.Duration
	fetchTimeout time.Duration

	// ioMu orders durable-storage writes; mu guards in-memory state and is
	// never held across I/O.
	ioMu sync.Mutex

	mu            sync.Mutex
	active        *model.Discount
	bannerVisible bool
	bannerTimer   *time.Timer
	seq           uint64 // last issued mutation sequence
	committed     uint64 // sequence of the last committed mutation
	subscribers   map[int]func(model.StoreState)
	nextSubID     int
}

// NewDiscountStore creates an empty store persisting under key.
// Call Load to rehydrate a previously applied discount.
func NewDiscountStore(catalog Catalog, storage DurableStorage, key string, opts ...StoreOption) *DiscountStore {
	s := &DiscountStore{
		catalog:     catalog,
		storage:     storage,
		key:         key,
		now:         time.Now,
		bannerDelay: DefaultBannerDismissDelay,
		subscribers: make(map[int]func(model.StoreState)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load rehydrates the store from durable storage. A cached record that no
// longer decodes or no longer passes the validity predicate is discarded
// without error. Only storage read failures are returned; the store stays
// empty in that case.
func (s *DiscountStore) Load(ctx context.Context) error {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load discount %s: %w", s.key, err)
	}
	if raw == nil {
		return nil
	}

	var d model.Discount
	if err := json.Unmarshal(raw, &d); err != nil || !d.IsValidAt(s.now()) {
		log.Debug().Err(err).Str("key", s.key).Str("discount_code", d.Code).Msg("discarding stale cached discount")
		s.discardStale(ctx)
		return nil
	}

	s.mu.Lock()
	if s.committed != 0 {
		// An apply or remove already won; the cached record is older.
		s.mu.Unlock()
		return nil
	}
	s.active = &d
	s.bannerVisible = !d.Hidden
	state, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, state)
	return nil
}

// Apply normalizes rawCode, fetches it from the catalog, checks validity and,
// on success, makes it the active discount and persists it. Any error leaves
// the store unchanged:
//   - ErrDiscountNotFound for unknown codes
//   - ErrCatalogUnavailable when the lookup fails
//   - ErrDiscountInvalid when the record fails the validity predicate
//   - ErrApplySuperseded when a newer apply or remove committed first
func (s *DiscountStore) Apply(ctx context.Context, rawCode string) error {
	code := model.NormalizeCode(rawCode)
	if code == "" {
		return ErrDiscountNotFound
	}

	seq := s.nextSeq()

	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	d, err := s.catalog.GetByCode(fetchCtx, code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if d == nil {
		return ErrDiscountNotFound
	}
	if !d.IsValidAt(s.now()) {
		return ErrDiscountInvalid
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode discount %s: %w", code, err)
	}

	state, subs, err := s.commitApply(ctx, seq, d, payload)
	if err != nil {
		return err
	}
	notify(subs, state)
	return nil
}

// commitApply persists payload and then makes d active, unless a newer
// mutation committed first.
func (s *DiscountStore) commitApply(ctx context.Context, seq uint64, d *model.Discount, payload []byte) (model.StoreState, []func(model.StoreState), error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.superseded(seq) {
		return model.StoreState{}, nil, ErrApplySuperseded
	}
	if err := s.storage.Set(ctx, s.key, payload); err != nil {
		return model.StoreState{}, nil, fmt.Errorf("persist discount %s: %w", d.Code, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed > seq {
		// A remove committed during the write; its delete runs after ours.
		return model.StoreState{}, nil, ErrApplySuperseded
	}
	s.active = d.Clone()
	s.bannerVisible = !d.Hidden
	s.committed = seq
	if s.bannerTimer != nil {
		s.bannerTimer.Stop()
		s.bannerTimer = nil
	}
	state, subs := s.snapshotLocked()
	return state, subs, nil
}

// Remove clears the active discount and its persisted record immediately.
// The banner flag is cleared after the dismiss delay unless another discount
// is applied first. A storage error is returned for logging only; the
// in-memory state is cleared regardless.
func (s *DiscountStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.committed = seq
	s.active = nil

	if s.bannerTimer != nil {
		s.bannerTimer.Stop()
		s.bannerTimer = nil
	}
	if s.bannerDelay <= 0 {
		s.bannerVisible = false
	} else if s.bannerVisible {
		s.bannerTimer = time.AfterFunc(s.bannerDelay, func() { s.dismissBanner(seq) })
	}
	state, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, state)

	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.superseded(seq) {
		// A newer apply already overwrote the record.
		return nil
	}
	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete discount %s: %w", s.key, err)
	}
	return nil
}

// discardStale deletes an unusable cached record unless an apply or remove
// has already taken over the key.
func (s *DiscountStore) discardStale(ctx context.Context) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	if s.superseded(0) {
		return
	}
	if err := s.storage.Delete(ctx, s.key); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("failed to delete stale cached discount")
	}
}

func (s *DiscountStore) dismissBanner(seq uint64) {
	s.mu.Lock()
	if s.committed != seq {
		s.mu.Unlock()
		return
	}
	s.bannerVisible = false
	s.bannerTimer = nil
	state, subs := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, state)
}

// Active returns a copy of the active discount, or nil.
func (s *DiscountStore) Active() *model.Discount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// BannerVisible reports whether the promotional banner should be shown.
func (s *DiscountStore) BannerVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bannerVisible
}

// State returns a snapshot of the store.
func (s *DiscountStore) State() model.StoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Quote prices a cart snapshot with the active discount.
func (s *DiscountStore) Quote(lines []model.CartLine) model.PricingResult {
	return pricing.ComputeTotal(lines, s.Active())
}

// DiscountedPrice previews a single unit under the active discount.
func (s *DiscountStore) DiscountedPrice(price decimal.Decimal, productID, category string) decimal.Decimal {
	return pricing.DiscountedPrice(price, productID, category, s.Active())
}

// Subscribe registers fn to receive every state change. The returned func unsubscribes.
func (s *DiscountStore) Subscribe(fn func(model.StoreState)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *DiscountStore) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *DiscountStore) superseded(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed > seq
}

func (s *DiscountStore) stateLocked() model.StoreState {
	return model.StoreState{
		Discount:      s.active.Clone(),
		BannerVisible: s.bannerVisible,
		Label:         pricing.Label(s.active),
	}
}

func (s *DiscountStore) snapshotLocked() (model.StoreState, []func(model.StoreState)) {
	subs := make([]func(model.StoreState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return s.stateLocked(), subs
}

func notify(subs []func(model.StoreState), state model.StoreState) {
	for _, fn := range subs {
		fn(state)
	}
}
