package recent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/events"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/session"
	"github.com/Skotchmaster/hat_shop/internal/storage"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("product not found")
)

type ProductFinder interface {
	ProductByID(ctx context.Context, id string) (models.Product, error)
	ProductBySlug(ctx context.Context, slug string) (models.Product, error)
}

// Ref names a viewed product by id or, when the id is empty, by slug.
type Ref struct {
	ProductID string
	Slug      string
}

type Service struct {
	Catalog   ProductFinder
	Publisher events.Publisher

	// Reload re-reads the list from storage on every call.
	Reload bool

	stores *session.Registry[*Store]
}

func NewService(finder ProductFinder, kv storage.KV, pub events.Publisher, m *metrics.Metrics, idle time.Duration) *Service {
	reg := session.NewRegistry(idle, func(id string) *Store {
		return NewStore(&KVPersister{KV: kv, Key: StorageKey(id)}, m)
	})
	reg.OnSize = func(n int) { m.SetActiveSessions(storeName, n) }
	return &Service{Catalog: finder, Publisher: pub, stores: reg}
}

func (s *Service) store(ctx context.Context, sessionID string) *Store {
	st := s.stores.Get(sessionID)
	if s.Reload {
		st.Invalidate()
	}
	st.Hydrate(ctx)
	return st
}

func (s *Service) List(ctx context.Context, sessionID string) []models.Product {
	return s.store(ctx, sessionID).Products()
}

// Record resolves ref through the catalog and puts the product at the front
// of the session's history.
func (s *Service) Record(ctx context.Context, sessionID string, ref Ref) ([]models.Product, error) {
	var (
		p   models.Product
		err error
	)
	switch {
	case ref.ProductID != "":
		p, err = s.Catalog.ProductByID(ctx, ref.ProductID)
	case ref.Slug != "":
		p, err = s.Catalog.ProductBySlug(ctx, ref.Slug)
	default:
		return nil, fmt.Errorf("%w: product_id or slug is required", ErrValidation)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}

	st := s.store(ctx, sessionID)
	if st.AddProduct(ctx, &p) {
		events.Emit(ctx, s.Publisher, events.TopicViews, events.Event{
			Type:      events.ProductViewed,
			SessionID: sessionID,
			Data:      map[string]any{"product_id": p.ID, "slug": p.Slug},
		})
	}
	return st.Products(), nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) []models.Product {
	st := s.store(ctx, sessionID)
	st.Clear(ctx)
	return st.Products()
}
