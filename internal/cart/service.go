// Package cart implements the session cart state manager: an owned
// CartState mutated through validated operations, with derived totals
// recomputed on every change, a debounced snapshot write to a Store and a
// coalesced change broadcast to subscribers.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromercado/cartstate/internal/domain"
	"github.com/agromercado/cartstate/internal/notify"
	"github.com/agromercado/cartstate/internal/port"
	"github.com/agromercado/cartstate/internal/pricing"
)

const (
	// DefaultSlot is the storage key the snapshot is written under.
	DefaultSlot = "agromercado:cart"

	// DefaultPersistDelay coalesces rapid mutations into one snapshot write.
	DefaultPersistDelay = 500 * time.Millisecond

	defaultSaveTimeout = 5 * time.Second
)

type Service struct {
	mu    sync.Mutex
	state domain.CartState
	cfg   domain.CartConfig

	store  port.Store
	slot   string
	client string

	bcast  *notify.Broadcaster
	logger *slog.Logger

	persistDelay time.Duration
	persistTimer *time.Timer
	saveTimeout  time.Duration
	notifyWindow time.Duration

	closed bool
}

var _ port.Cart = (*Service)(nil)

type Option func(*Service)

// WithConfig replaces the default cart config.
func WithConfig(cfg domain.CartConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSlot changes the storage key; one slot holds one cart.
func WithSlot(slot string) Option {
	return func(s *Service) { s.slot = slot }
}

// WithClient sets the client identifier recorded in snapshot metadata.
func WithClient(client string) Option {
	return func(s *Service) { s.client = client }
}

func WithPersistDelay(d time.Duration) Option {
	return func(s *Service) { s.persistDelay = d }
}

func WithNotifyWindow(d time.Duration) Option {
	return func(s *Service) { s.notifyWindow = d }
}

// New builds a cart manager and rehydrates it from the store, starting empty
// when the slot is missing or malformed. A nil store keeps the cart
// session-only.
func New(ctx context.Context, store port.Store, opts ...Option) *Service {
	s := &Service{
		cfg:          domain.DefaultConfig(),
		store:        store,
		slot:         DefaultSlot,
		logger:       slog.Default(),
		persistDelay: DefaultPersistDelay,
		saveTimeout:  defaultSaveTimeout,
		notifyWindow: notify.DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.bcast = notify.New(s.notifyWindow, s.logger)
	s.state = emptyState(s.cfg)
	s.rehydrate(ctx)

	return s
}

func (s *Service) rehydrate(ctx context.Context) {
	if s.store == nil {
		return
	}

	data, err := s.store.Load(ctx, s.slot)
	if errors.Is(err, port.ErrSnapshotNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("load cart snapshot", "slot", s.slot, "err", err)
		return
	}

	if err := s.importLocked(data); err != nil {
		s.logger.Warn("discarding malformed cart snapshot", "slot", s.slot, "err", err)
	}
}

// AddItem resolves the product, validates stock and limits, then inserts a
// new line or accumulates the existing one (replaces with opts.Replace).
func (s *Service) AddItem(ctx context.Context, product domain.Product, opts domain.AddOptions) (res domain.MutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverMutation("AddItem", &res)

	info, err := domain.ResolveProduct(product)
	if err != nil {
		s.logger.Error("resolve product", "err", err)
		return domain.Rejected(domain.ErrInternal, "could not read the product", s.snapshotLocked())
	}

	qty := opts.Quantity
	if qty <= 0 {
		qty = 1
	}

	existing, idx := s.state.FindProduct(info.ID)

	// With Replace the requested quantity stands alone, so replacing with a
	// lower quantity always passes the per-line check.
	newQty := qty
	if idx >= 0 && !opts.Replace {
		newQty = existing.Quantity + qty
	}

	if info.Stock != nil && qty > *info.Stock {
		return domain.Rejected(domain.ErrInsufficientStock,
			fmt.Sprintf("only %d of %q available", *info.Stock, info.Name), s.snapshotLocked())
	}
	if newQty > s.cfg.MaxQuantityPerItem {
		return domain.Rejected(domain.ErrMaxQuantityExceeded,
			fmt.Sprintf("at most %d units of one product", s.cfg.MaxQuantityPerItem), s.snapshotLocked())
	}

	prevQty := 0
	if idx >= 0 {
		prevQty = existing.Quantity
	}
	if s.state.ItemCount-prevQty+newQty > s.cfg.MaxTotalItems {
		return domain.Rejected(domain.ErrMaxTotalItemsExceeded,
			fmt.Sprintf("the cart holds at most %d units", s.cfg.MaxTotalItems), s.snapshotLocked())
	}

	unit := info.Price.Amount
	if opts.UnitPrice != nil {
		unit = *opts.UnitPrice
	}
	cur := info.Price.Currency
	if opts.Currency != nil {
		cur = *opts.Currency
	}
	if cur.IsZero() {
		cur = s.cfg.DefaultCurrency
	}

	now := time.Now()
	price := domain.Money{Amount: unit, Currency: cur}

	items := cloneItems(s.state.Items)
	var item domain.LineItem
	if idx >= 0 {
		item = items[idx]
		item.Quantity = newQty
		item.UnitPrice = price
		item.TotalPrice = price.Mul(newQty)
		item.Currency = cur
		item.UpdatedAt = now
		items[idx] = item
	} else {
		item = domain.LineItem{
			ID:         uuid.NewString(),
			Product:    info,
			Quantity:   newQty,
			UnitPrice:  price,
			TotalPrice: price.Mul(newQty),
			Currency:   cur,
			AddedAt:    now,
			UpdatedAt:  now,
		}
		items = append(items, item)
	}

	snapshot := s.replaceStateLocked(items, s.state.CreatedAt)
	affected := item.Clone()
	s.afterMutationLocked(domain.ChangeEvent{
		Action: domain.ActionAdd,
		Item:   &affected,
		State:  snapshot,
		At:     now,
	})

	return domain.OK(fmt.Sprintf("%q added to the cart", info.Name), &affected, snapshot)
}

// RemoveItem drops the line with the given id.
func (s *Service) RemoveItem(ctx context.Context, itemID string) (res domain.MutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverMutation("RemoveItem", &res)

	return s.removeItemLocked(itemID)
}

func (s *Service) removeItemLocked(itemID string) domain.MutationResult {
	item, idx := s.state.FindItem(itemID)
	if idx < 0 {
		return domain.Rejected(domain.ErrItemNotFound, "that item is no longer in the cart", s.snapshotLocked())
	}

	items := make([]domain.LineItem, 0, len(s.state.Items)-1)
	for i, it := range s.state.Items {
		if i != idx {
			items = append(items, it.Clone())
		}
	}

	snapshot := s.replaceStateLocked(items, s.state.CreatedAt)
	removed := item.Clone()
	s.afterMutationLocked(domain.ChangeEvent{
		Action: domain.ActionRemove,
		Item:   &removed,
		State:  snapshot,
		At:     time.Now(),
	})

	return domain.OK(fmt.Sprintf("%q removed from the cart", item.Product.Name), &removed, snapshot)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or below removes
// the line.
func (s *Service) UpdateQuantity(ctx context.Context, itemID string, quantity int) (res domain.MutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverMutation("UpdateQuantity", &res)

	if quantity <= 0 {
		return s.removeItemLocked(itemID)
	}

	item, idx := s.state.FindItem(itemID)
	if idx < 0 {
		return domain.Rejected(domain.ErrItemNotFound, "that item is no longer in the cart", s.snapshotLocked())
	}

	if quantity > s.cfg.MaxQuantityPerItem {
		return domain.Rejected(domain.ErrMaxQuantityExceeded,
			fmt.Sprintf("at most %d units of one product", s.cfg.MaxQuantityPerItem), s.snapshotLocked())
	}

	prev := item.Quantity
	now := time.Now()

	items := cloneItems(s.state.Items)
	updated := items[idx]
	updated.Quantity = quantity
	updated.TotalPrice = updated.UnitPrice.Mul(quantity)
	updated.UpdatedAt = now
	items[idx] = updated

	snapshot := s.replaceStateLocked(items, s.state.CreatedAt)
	affected := updated.Clone()
	s.afterMutationLocked(domain.ChangeEvent{
		Action:           domain.ActionUpdate,
		Item:             &affected,
		PreviousQuantity: prev,
		State:            snapshot,
		At:               now,
	})

	return domain.OK(fmt.Sprintf("quantity of %q updated", updated.Product.Name), &affected, snapshot)
}

// Clear replaces the cart with a fresh empty state.
func (s *Service) Clear(ctx context.Context) (res domain.MutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverMutation("Clear", &res)

	s.state = emptyState(s.cfg)
	snapshot := s.state.Clone()
	s.afterMutationLocked(domain.ChangeEvent{
		Action: domain.ActionClear,
		State:  snapshot,
		At:     time.Now(),
	})

	return domain.OK("cart cleared", nil, snapshot)
}

// UpdateConfig merges the patch and reprices the current items under the new
// config without touching the items themselves.
func (s *Service) UpdateConfig(ctx context.Context, patch domain.ConfigPatch) (res domain.MutationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.recoverMutation("UpdateConfig", &res)

	s.cfg = patch.Apply(s.cfg)

	snapshot := s.replaceStateLocked(cloneItems(s.state.Items), s.state.CreatedAt)
	s.afterMutationLocked(domain.ChangeEvent{
		Action: domain.ActionUpdate,
		State:  snapshot,
		At:     time.Now(),
	})

	return domain.OK("cart settings updated", nil, snapshot)
}

// Export serializes the current items, config and metadata.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exportLocked()
}

func (s *Service) exportLocked() ([]byte, error) {
	snap := Snapshot{
		Items:  s.state.Clone().Items,
		Config: s.cfg,
		Metadata: Metadata{
			Version:     SchemaVersion,
			LastUpdated: time.Now(),
			Client:      s.client,
		},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}
	return data, nil
}

// Import replaces the cart from a serialized snapshot, recomputing every
// derived field. A schema version mismatch is tolerated with a warning.
func (s *Service) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.importLocked(data); err != nil {
		return err
	}

	s.afterMutationLocked(domain.ChangeEvent{
		Action: domain.ActionUpdate,
		State:  s.state.Clone(),
		At:     time.Now(),
	})
	return nil
}

func (s *Service) importLocked(data []byte) error {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	if snap.Metadata.Version != SchemaVersion {
		s.logger.Warn("cart snapshot version mismatch",
			"got", snap.Metadata.Version, "want", SchemaVersion, "slot", s.slot)
	}

	cfg := snap.Config
	if cfg.DefaultCurrency.IsZero() || cfg.MaxQuantityPerItem <= 0 || cfg.MaxTotalItems <= 0 {
		cfg = s.cfg
	}
	s.cfg = cfg

	items := sanitizeItems(snap.Items, cfg.DefaultCurrency)
	s.replaceStateLocked(items, time.Now())
	return nil
}

// State returns an independent snapshot of the cart.
func (s *Service) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Service) Config() domain.CartConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg
}

// Subscribe delivers coalesced change events until ctx is cancelled.
func (s *Service) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	return s.bcast.Subscribe(ctx)
}

// Close flushes a pending snapshot write and stops the broadcaster. The
// manager must not be used afterwards.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	flush := s.persistTimer != nil && s.persistTimer.Stop()
	s.mu.Unlock()

	if flush {
		s.persistNow()
	}
	return s.bcast.Close()
}

// replaceStateLocked rebuilds the state wholesale from the given items and
// returns an independent snapshot of it.
func (s *Service) replaceStateLocked(items []domain.LineItem, createdAt time.Time) domain.CartState {
	totals := pricing.Summarize(items, s.cfg)

	s.state = domain.CartState{
		Items:     items,
		ItemCount: totals.ItemCount,
		Subtotal:  totals.Subtotal,
		Tax:       totals.Tax,
		Shipping:  totals.Shipping,
		Total:     totals.Total,
		Currency:  s.cfg.DefaultCurrency,
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}

	return s.state.Clone()
}

func (s *Service) afterMutationLocked(ev domain.ChangeEvent) {
	s.bcast.Publish(ev)
	s.schedulePersistLocked()
}

func (s *Service) schedulePersistLocked() {
	if s.store == nil || s.closed {
		return
	}

	if s.persistTimer == nil {
		s.persistTimer = time.AfterFunc(s.persistDelay, s.persistNow)
	} else {
		s.persistTimer.Reset(s.persistDelay)
	}
}

// persistNow writes the snapshot in the background; failures degrade the
// cart to session-only behavior and are only logged.
func (s *Service) persistNow() {
	s.mu.Lock()
	data, err := s.exportLocked()
	slot := s.slot
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("export cart snapshot", "slot", slot, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	if err := s.store.Save(ctx, slot, data); err != nil {
		s.logger.Warn("save cart snapshot", "slot", slot, "err", err)
	}
}

func (s *Service) snapshotLocked() domain.CartState {
	return s.state.Clone()
}

// recoverMutation converts a panic inside a mutation into an internal_error
// result so the caller never crashes.
func (s *Service) recoverMutation(op string, res *domain.MutationResult) {
	if r := recover(); r != nil {
		s.logger.Error("cart mutation panicked", "op", op, "panic", r)
		*res = domain.Rejected(domain.ErrInternal, "something went wrong, the cart is unchanged", s.snapshotLocked())
	}
}

func emptyState(cfg domain.CartConfig) domain.CartState {
	now := time.Now()
	return domain.CartState{
		ItemCount: 0,
		Subtotal:  decimal.Zero,
		Tax:       decimal.Zero,
		Shipping:  decimal.Zero,
		Total:     decimal.Zero,
		Currency:  cfg.DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
