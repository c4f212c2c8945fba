// Package cart holds a shopper's cart: line items keyed by product and
// variant, derived totals, and persistence of the cart between requests.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/models"
)

const storeName = "cart"

// Key identifies a line item. An empty Size or Color means none was chosen.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

type LineItem struct {
	Key
	Product  models.Product
	Quantity int
}

func (li LineItem) UnitPrice() decimal.Decimal {
	return li.Product.EffectivePrice()
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// View is a consistent read of the cart with its derived totals.
type View struct {
	Items      []LineItem
	Subtotal   decimal.Decimal
	TotalItems int
}

type ProductFinder interface {
	ProductByID(ctx context.Context, id string) (models.Product, error)
}

type Phase int

const (
	Uninitialized Phase = iota
	Ready
)

// Store is one shopper's cart. Reads before hydration see an empty cart;
// every mutator hydrates first. The in-memory state stays authoritative
// when saving fails.
type Store struct {
	mu sync.Mutex
	// checkout serialises checkouts of this cart without blocking other
	// mutations while an order is being stored.
	checkout sync.Mutex
	phase   Phase
	items   map[Key]*LineItem
	order   []Key
	persist Persister
	finder  ProductFinder
	metrics *metrics.Metrics
}

func NewStore(p Persister, finder ProductFinder, m *metrics.Metrics) *Store {
	return &Store{
		items:   make(map[Key]*LineItem),
		persist: p,
		finder:  finder,
		metrics: m,
	}
}

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Invalidate makes the next read or mutation load the cart from storage
// again, picking up writes made by other processes.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = Uninitialized
}

// Hydrate loads the persisted cart once. Missing, corrupt or unreadable data
// hydrates to an empty cart, and items whose product is gone from the
// catalog are dropped. It fails only when the catalog itself cannot answer.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrateLocked(ctx)
}

func (s *Store) hydrateLocked(ctx context.Context) error {
	if s.phase == Ready {
		return nil
	}
	l := logging.FromContext(ctx).With("store", storeName)

	snap, err := s.persist.Load(ctx)
	if err != nil {
		l.Warn("cart_hydrate_failed", "reason", "unreadable persisted cart", "error", err)
		s.metrics.IncHydration(storeName, "discarded")
		s.reset()
		s.phase = Ready
		return nil
	}

	items := make(map[Key]*LineItem, len(snap.Items))
	var order []Key
	dropped := 0
	for _, it := range snap.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			dropped++
			continue
		}
		k := Key{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
		if li, ok := items[k]; ok {
			li.Quantity += it.Quantity
			continue
		}
		p, err := s.finder.ProductByID(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			dropped++
			continue
		}
		if err != nil {
			s.metrics.IncHydration(storeName, "error")
			return fmt.Errorf("resolve cart product %s: %w", it.ProductID, err)
		}
		items[k] = &LineItem{Key: k, Product: p, Quantity: it.Quantity}
		order = append(order, k)
	}

	s.items, s.order, s.phase = items, order, Ready
	if dropped > 0 {
		l.Info("cart_items_dropped", "count", dropped)
		s.saveLocked(ctx)
	}
	outcome := "loaded"
	if len(order) == 0 {
		outcome = "empty"
	}
	s.metrics.IncHydration(storeName, outcome)
	return nil
}

func (s *Store) reset() {
	s.items = make(map[Key]*LineItem)
	s.order = nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Items: make([]SnapshotItem, 0, len(s.order))}
	for _, k := range s.order {
		li := s.items[k]
		snap.Items = append(snap.Items, SnapshotItem{
			ProductID: k.ProductID,
			Size:      k.Size,
			Color:     k.Color,
			Quantity:  li.Quantity,
		})
	}
	return snap
}

func (s *Store) saveLocked(ctx context.Context) {
	if err := s.persist.Save(ctx, s.snapshotLocked()); err != nil {
		logging.FromContext(ctx).Warn("cart_persist_failed", "store", storeName, "error", err)
		s.metrics.IncPersistFailure(storeName)
	}
}

// mutate runs fn on a hydrated cart and saves when fn reports a change.
func (s *Store) mutate(ctx context.Context, op string, fn func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hydrateLocked(ctx); err != nil {
		logging.FromContext(ctx).Error("cart_mutation_skipped", "op", op, "reason", "cart not hydrated", "error", err)
		return false
	}
	if !fn() {
		return false
	}
	s.metrics.IncMutation(storeName, op)
	s.saveLocked(ctx)
	return true
}

// AddItem merges quantity into the line for (product, size, color) or
// appends a new line. A quantity below 1 is ignored. Stock is not checked.
func (s *Store) AddItem(ctx context.Context, p models.Product, size, color string, quantity int) bool {
	if quantity < 1 || p.ID == "" {
		return false
	}
	k := Key{ProductID: p.ID, Size: size, Color: color}
	return s.mutate(ctx, "add", func() bool {
		if li, ok := s.items[k]; ok {
			li.Quantity += quantity
			li.Product = p
			return true
		}
		s.items[k] = &LineItem{Key: k, Product: p, Quantity: quantity}
		s.order = append(s.order, k)
		return true
	})
}

// UpdateItemQuantity sets the quantity of an existing line. Quantities below
// 1 and unknown keys are ignored; removal goes through RemoveItem.
func (s *Store) UpdateItemQuantity(ctx context.Context, k Key, quantity int) bool {
	if quantity < 1 {
		return false
	}
	return s.mutate(ctx, "update", func() bool {
		li, ok := s.items[k]
		if !ok || li.Quantity == quantity {
			return false
		}
		li.Quantity = quantity
		return true
	})
}

func (s *Store) RemoveItem(ctx context.Context, k Key) bool {
	return s.mutate(ctx, "remove", func() bool {
		if _, ok := s.items[k]; !ok {
			return false
		}
		delete(s.items, k)
		s.order = slices.DeleteFunc(s.order, func(o Key) bool { return o == k })
		return true
	})
}

// Clear empties the cart and persists the empty cart even if it already was.
func (s *Store) Clear(ctx context.Context) bool {
	var had bool
	s.mutate(ctx, "clear", func() bool {
		had = len(s.order) > 0
		s.reset()
		return true
	})
	return had
}

// Subtract takes the given lines out of the cart: each matching line loses
// the listed quantity and is removed when nothing is left. Lines added or
// grown since the items were read keep the difference.
func (s *Store) Subtract(ctx context.Context, items []LineItem) bool {
	return s.mutate(ctx, "checkout", func() bool {
		changed := false
		for _, it := range items {
			li, ok := s.items[it.Key]
			if !ok || it.Quantity < 1 {
				continue
			}
			changed = true
			if li.Quantity > it.Quantity {
				li.Quantity -= it.Quantity
				continue
			}
			delete(s.items, it.Key)
			s.order = slices.DeleteFunc(s.order, func(o Key) bool { return o == it.Key })
		}
		return changed
	})
}

// View returns the items in insertion order with totals computed from them.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{Items: []LineItem{}, Subtotal: decimal.Zero}
	if s.phase != Ready {
		return v
	}
	for _, k := range s.order {
		li := *s.items[k]
		v.Items = append(v.Items, li)
		v.Subtotal = v.Subtotal.Add(li.LineTotal())
		v.TotalItems += li.Quantity
	}
	return v
}

func (s *Store) Items() []LineItem {
	return s.View().Items
}

func (s *Store) Subtotal() decimal.Decimal {
	return s.View().Subtotal
}

func (s *Store) TotalItems() int {
	return s.View().TotalItems
}
