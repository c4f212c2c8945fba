package transport

import (
	"github.com/Skotchmaster/hat_shop/internal/cart"
	"github.com/Skotchmaster/hat_shop/internal/models"
)

type ProductResponse struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Collection      string   `json:"collection"`
	Price           string   `json:"price"`
	SalePrice       *string  `json:"sale_price,omitempty"`
	EffectivePrice  string   `json:"effective_price"`
	OnSale          bool     `json:"on_sale"`
	DiscountPercent int      `json:"discount_percent,omitempty"`
	Sizes           []string `json:"sizes"`
	Colors          []string `json:"colors"`
	Images          []string `json:"images"`
	IsNew           bool     `json:"is_new"`
	IsFeatured      bool     `json:"is_featured"`
	InStock         bool     `json:"in_stock"`
	Rating          float64  `json:"rating"`
	ReviewCount     int      `json:"review_count"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func Product(p models.Product) ProductResponse {
	r := ProductResponse{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Collection:      p.Collection,
		Price:           p.Price.StringFixed(2),
		EffectivePrice:  p.EffectivePrice().StringFixed(2),
		OnSale:          p.OnSale(),
		DiscountPercent: p.DiscountPercent(),
		Sizes:           nonNil(p.Sizes),
		Colors:          nonNil(p.Colors),
		Images:          nonNil(p.Images),
		IsNew:           p.IsNew,
		IsFeatured:      p.IsFeatured,
		InStock:         p.InStock,
		Rating:          p.Rating,
		ReviewCount:     p.ReviewCount,
	}
	if p.SalePrice != nil {
		s := p.SalePrice.StringFixed(2)
		r.SalePrice = &s
	}
	return r
}

func Products(ps []models.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, Product(p))
	}
	return out
}

type LineItemResponse struct {
	ProductID string          `json:"product_id"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice string          `json:"unit_price"`
	LineTotal string          `json:"line_total"`
	Product   ProductResponse `json:"product"`
}

type CartResponse struct {
	Items      []LineItemResponse `json:"items"`
	Subtotal   string             `json:"subtotal"`
	TotalItems int                `json:"total_items"`
}

func Cart(v cart.View) CartResponse {
	r := CartResponse{
		Items:      make([]LineItemResponse, 0, len(v.Items)),
		Subtotal:   v.Subtotal.StringFixed(2),
		TotalItems: v.TotalItems,
	}
	for _, li := range v.Items {
		r.Items = append(r.Items, LineItemResponse{
			ProductID: li.ProductID,
			Size:      li.Size,
			Color:     li.Color,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice().StringFixed(2),
			LineTotal: li.LineTotal().StringFixed(2),
			Product:   Product(li.Product),
		})
	}
	return r
}

type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  *int   `json:"quantity"`
}

type UpdateItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type RemoveItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type RecordViewRequest struct {
	ProductID string `json:"product_id" validate:"required_without=Slug"`
	Slug      string `json:"slug"`
}

type RecentResponse struct {
	Products []ProductResponse `json:"products"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
