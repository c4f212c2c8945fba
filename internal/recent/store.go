// Package recent keeps the bounded, most-recent-first list of products a
// shopper has looked at.
package recent

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/storage"
)

// MaxItems bounds the history length.
const MaxItems = 8

const (
	storeName       = "recent"
	snapshotVersion = 1
)

type Snapshot struct {
	Products []models.Product `json:"products"`
}

type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

func StorageKey(sessionID string) string {
	return "recently_viewed:" + sessionID
}

type KVPersister struct {
	KV  storage.KV
	Key string
}

func (p *KVPersister) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := storage.LoadJSON(ctx, p.KV, p.Key, snapshotVersion, &snap)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (p *KVPersister) Save(ctx context.Context, snap Snapshot) error {
	return storage.SaveJSON(ctx, p.KV, p.Key, snapshotVersion, snap)
}

// Store holds full product snapshots so the list renders without a catalog
// lookup. Reads before hydration see an empty list.
type Store struct {
	mu       sync.Mutex
	ready    bool
	products []models.Product
	persist  Persister
	metrics  *metrics.Metrics
}

func NewStore(p Persister, m *metrics.Metrics) *Store {
	return &Store{persist: p, metrics: m}
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Invalidate makes the next access load the list from storage again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}

// Hydrate loads the persisted list once. Unreadable data hydrates to an
// empty list; entries without an id are skipped and the list is re-bounded.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)
}

func (s *Store) hydrateLocked(ctx context.Context) {
	if s.ready {
		return
	}
	s.ready = true

	snap, err := s.persist.Load(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("recent_hydrate_failed", "store", storeName, "reason", "unreadable persisted list", "error", err)
		s.metrics.IncHydration(storeName, "discarded")
		s.products = nil
		return
	}

	out := make([]models.Product, 0, min(len(snap.Products), MaxItems))
	for _, p := range snap.Products {
		if p.ID == "" || slices.ContainsFunc(out, func(o models.Product) bool { return o.ID == p.ID }) {
			continue
		}
		out = append(out, p)
		if len(out) == MaxItems {
			break
		}
	}
	s.products = out

	outcome := "loaded"
	if len(out) == 0 {
		outcome = "empty"
	}
	s.metrics.IncHydration(storeName, outcome)
}

func (s *Store) saveLocked(ctx context.Context) {
	snap := Snapshot{Products: slices.Clone(s.products)}
	if snap.Products == nil {
		snap.Products = []models.Product{}
	}
	if err := s.persist.Save(ctx, snap); err != nil {
		logging.FromContext(ctx).Warn("recent_persist_failed", "store", storeName, "error", err)
		s.metrics.IncPersistFailure(storeName)
	}
}

// AddProduct moves p to the front of the history, dropping any earlier view
// of the same product and the oldest entry past MaxItems. A nil product or
// one without an id is ignored.
func (s *Store) AddProduct(ctx context.Context, p *models.Product) bool {
	if p == nil || p.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)

	rest := slices.DeleteFunc(s.products, func(o models.Product) bool { return o.ID == p.ID })
	next := make([]models.Product, 0, MaxItems)
	next = append(next, *p)
	next = append(next, rest[:min(len(rest), MaxItems-1)]...)
	s.products = next

	s.metrics.IncMutation(storeName, "add")
	s.saveLocked(ctx)
	return true
}

func (s *Store) Clear(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(ctx)

	had := len(s.products) > 0
	s.products = nil
	s.metrics.IncMutation(storeName, "clear")
	s.saveLocked(ctx)
	return had
}

func (s *Store) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return []models.Product{}
	}
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}
