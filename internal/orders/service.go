// Package orders turns a session's cart into a persisted order.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/hat_shop/internal/cart"
	"github.com/Skotchmaster/hat_shop/internal/events"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/validation"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("order not found")
	ErrEmptyCart  = errors.New("cart is empty")
)

type Request struct {
	Email      string `json:"email"       validate:"required,email,max=254"`
	FullName   string `json:"full_name"   validate:"required,max=200"`
	Address    string `json:"address"     validate:"required,max=300"`
	City       string `json:"city"        validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country"     validate:"required,iso3166_1_alpha2"`
}

type Cart interface {
	Checkout(ctx context.Context, sessionID string, place func(cart.View) error) error
}

type Service struct {
	Repo      *GormRepo
	Cart      Cart
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

// Checkout snapshots the session's cart into a new order at current prices,
// stores it, and takes the ordered lines out of the cart. The cart is left
// untouched when the order cannot be stored.
func (s *Service) Checkout(ctx context.Context, sessionID string, req Request) (*models.Order, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var created *models.Order
	err := s.Cart.Checkout(ctx, sessionID, func(view cart.View) error {
		if len(view.Items) == 0 {
			return ErrEmptyCart
		}
		var err error
		created, err = s.Repo.CreateOrder(ctx, newOrder(sessionID, req, view))
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncOrders()

	events.Emit(ctx, s.Publisher, events.TopicOrders, events.Event{
		Type:      events.OrderCreated,
		SessionID: sessionID,
		Data: map[string]any{
			"order_id":    created.ID.String(),
			"subtotal":    created.Subtotal.StringFixed(2),
			"total_items": created.TotalItems,
		},
	})
	return created, nil
}

func newOrder(sessionID string, req Request, view cart.View) *models.Order {
	order := &models.Order{
		SessionID:  sessionID,
		Status:     models.OrderStatusNew,
		Email:      req.Email,
		FullName:   req.FullName,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Subtotal:   decimal.Zero,
		Items:      make([]models.OrderItem, 0, len(view.Items)),
	}
	for _, li := range view.Items {
		item := models.OrderItem{
			ProductID:   li.ProductID,
			ProductName: li.Product.Name,
			Size:        li.Size,
			Color:       li.Color,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice(),
			LineTotal:   li.LineTotal(),
		}
		order.Subtotal = order.Subtotal.Add(item.LineTotal)
		order.TotalItems += item.Quantity
		order.Items = append(order.Items, item)
	}
	return order
}

func (s *Service) GetOrder(ctx context.Context, sessionID string, id uuid.UUID) (*models.Order, error) {
	return s.Repo.GetOrder(ctx, sessionID, id)
}

func (s *Service) ListOrders(ctx context.Context, sessionID string, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, sessionID, limit, offset)
}
