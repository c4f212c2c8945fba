package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/validation"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("product not found")
)

type snapshot struct {
	products    []models.Product
	byID        map[string]int
	bySlug      map[string]int
	collections []models.Collection
	fetchedAt   time.Time
}

// Service serves a validated, cached view of a catalog Source.
type Service struct {
	Source  Source
	TTL     time.Duration
	Metrics *metrics.Metrics
	Now     func() time.Time

	mu    sync.RWMutex
	cache *snapshot
}

func NewService(src Source, ttl time.Duration, m *metrics.Metrics) *Service {
	return &Service{Source: src, TTL: ttl, Metrics: m}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) fresh(snap *snapshot) bool {
	return snap != nil && (s.TTL <= 0 || s.now().Sub(snap.fetchedAt) < s.TTL)
}

func (s *Service) snapshot(ctx context.Context) (*snapshot, error) {
	s.mu.RLock()
	snap := s.cache
	s.mu.RUnlock()
	if s.fresh(snap) {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh(s.cache) {
		return s.cache, nil
	}

	products, err := s.Source.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	collections, err := s.Source.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}

	snap = build(ctx, products, collections)
	snap.fetchedAt = s.now()
	s.cache = snap
	return snap, nil
}

func build(ctx context.Context, products []models.Product, collections []models.Collection) *snapshot {
	l := logging.FromContext(ctx).With("component", "catalog")
	snap := &snapshot{
		products:    make([]models.Product, 0, len(products)),
		byID:        make(map[string]int, len(products)),
		bySlug:      make(map[string]int, len(products)),
		collections: collections,
	}
	for _, p := range products {
		if err := ValidateProduct(p); err != nil {
			l.Warn("catalog_product_dropped", "product_id", p.ID, "reason", "invalid product", "error", err)
			continue
		}
		if _, dup := snap.byID[p.ID]; dup {
			l.Warn("catalog_product_dropped", "product_id", p.ID, "reason", "duplicate id")
			continue
		}
		if _, dup := snap.bySlug[p.Slug]; dup {
			l.Warn("catalog_product_dropped", "product_id", p.ID, "reason", "duplicate slug")
			continue
		}
		snap.byID[p.ID] = len(snap.products)
		snap.bySlug[p.Slug] = len(snap.products)
		snap.products = append(snap.products, p)
	}
	l.Info("catalog_loaded", "products", len(snap.products), "collections", len(collections))
	return snap
}

// ValidateProduct checks the field rules of a product and that a sale price
// is strictly below the regular price.
func ValidateProduct(p models.Product) error {
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.SalePrice != nil && !p.SalePrice.LessThan(p.Price) {
		return fmt.Errorf("%w: sale_price must be below price", ErrValidation)
	}
	return nil
}

// Invalidate drops the cached catalog so the next read goes to the Source.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.products), nil
}

// List runs the filter and sort pipeline over the current catalog.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Product, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.Metrics.IncCatalogQuery(string(f.Sort))
	return Apply(snap.products, f), nil
}

func (s *Service) ProductByID(ctx context.Context, id string) (models.Product, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Product{}, err
	}
	i, ok := snap.byID[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return snap.products[i], nil
}

func (s *Service) ProductBySlug(ctx context.Context, slug string) (models.Product, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Product{}, err
	}
	i, ok := snap.bySlug[slug]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: slug %q", ErrNotFound, slug)
	}
	return snap.products[i], nil
}

func (s *Service) Collections(ctx context.Context) ([]models.Collection, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.collections), nil
}

func (s *Service) Facets(ctx context.Context) (Facets, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Facets{}, err
	}
	return BuildFacets(snap.products, slices.Clone(snap.collections)), nil
}
