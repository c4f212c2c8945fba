package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/events"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/session"
	"github.com/Skotchmaster/hat_shop/internal/storage"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("product not found")
)

type AddRequest struct {
	ProductID string
	Size      string
	Color     string
	// Quantity defaults to 1 when nil.
	Quantity *int
}

// Service routes cart operations to the store of the calling session.
type Service struct {
	Catalog   ProductFinder
	Publisher events.Publisher

	// Reload re-reads the cart from storage on every call. Set it when the
	// storage is shared with other instances.
	Reload bool

	stores *session.Registry[*Store]
}

func NewService(finder ProductFinder, kv storage.KV, pub events.Publisher, m *metrics.Metrics, idle time.Duration) *Service {
	reg := session.NewRegistry(idle, func(id string) *Store {
		return NewStore(&KVPersister{KV: kv, Key: StorageKey(id)}, finder, m)
	})
	reg.OnSize = func(n int) { m.SetActiveSessions(storeName, n) }
	return &Service{Catalog: finder, Publisher: pub, stores: reg}
}

func (s *Service) store(ctx context.Context, sessionID string) (*Store, error) {
	st := s.stores.Get(sessionID)
	if s.Reload {
		st.Invalidate()
	}
	if err := st.Hydrate(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return st.View(), nil
}

func (s *Service) Add(ctx context.Context, sessionID string, req AddRequest) (View, error) {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	p, err := s.Catalog.ProductByID(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, req.ProductID)
	}
	if err != nil {
		return View{}, err
	}
	if req.Size != "" && len(p.Sizes) > 0 && !p.HasSize(req.Size) {
		return View{}, fmt.Errorf("%w: size %q is not offered for %s", ErrValidation, req.Size, p.ID)
	}
	if req.Color != "" && len(p.Colors) > 0 && !p.HasColor(req.Color) {
		return View{}, fmt.Errorf("%w: color %q is not offered for %s", ErrValidation, req.Color, p.ID)
	}

	if st.AddItem(ctx, p, req.Size, req.Color, qty) {
		s.emit(ctx, sessionID, events.CartItemAdded, Key{ProductID: p.ID, Size: req.Size, Color: req.Color}, qty)
	}
	return st.View(), nil
}

func (s *Service) Update(ctx context.Context, sessionID string, k Key, quantity int) (View, error) {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if st.UpdateItemQuantity(ctx, k, quantity) {
		s.emit(ctx, sessionID, events.CartItemUpdated, k, quantity)
	}
	return st.View(), nil
}

func (s *Service) Remove(ctx context.Context, sessionID string, k Key) (View, error) {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if st.RemoveItem(ctx, k) {
		s.emit(ctx, sessionID, events.CartItemRemoved, k, 0)
	}
	return st.View(), nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) (View, error) {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if st.Clear(ctx) {
		events.Emit(ctx, s.Publisher, events.TopicCart, events.Event{Type: events.CartCleared, SessionID: sessionID})
	}
	return st.View(), nil
}

// Checkout hands the session's cart to place and, once place succeeds,
// takes exactly the lines it was given out of the cart. Checkouts of one
// session run one at a time; other cart changes are not blocked and survive.
func (s *Service) Checkout(ctx context.Context, sessionID string, place func(View) error) error {
	st, err := s.store(ctx, sessionID)
	if err != nil {
		return err
	}

	st.checkout.Lock()
	defer st.checkout.Unlock()

	view := st.View()
	if err := place(view); err != nil {
		return err
	}
	if st.Subtract(ctx, view.Items) {
		events.Emit(ctx, s.Publisher, events.TopicCart, events.Event{
			Type:      events.CartCleared,
			SessionID: sessionID,
			Data:      map[string]any{"reason": "checkout", "remaining_items": st.TotalItems()},
		})
	}
	return nil
}

func (s *Service) emit(ctx context.Context, sessionID, typ string, k Key, quantity int) {
	data := map[string]any{"product_id": k.ProductID}
	if k.Size != "" {
		data["size"] = k.Size
	}
	if k.Color != "" {
		data["color"] = k.Color
	}
	if quantity > 0 {
		data["quantity"] = quantity
	}
	events.Emit(ctx, s.Publisher, events.TopicCart, events.Event{Type: typ, SessionID: sessionID, Data: data})
}
