package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          string           `gorm:"primaryKey"                      json:"id"           validate:"required"`
	Slug        string           `gorm:"uniqueIndex;not null"            json:"slug"         validate:"required"`
	Name        string           `gorm:"not null"                        json:"name"         validate:"required"`
	Description string           `                                       json:"description"`
	Category    string           `gorm:"index"                           json:"category"`
	Collection  string           `gorm:"index"                           json:"collection"`
	Price       decimal.Decimal  `gorm:"type:numeric(12,2);not null"     json:"price"        validate:"gt=0"`
	SalePrice   *decimal.Decimal `gorm:"type:numeric(12,2)"              json:"sale_price,omitempty" validate:"omitempty,gt=0"`
	Discount    *int             `                                       json:"discount,omitempty"   validate:"omitempty,gte=0,lte=100"`
	Sizes       []string         `gorm:"serializer:json"                 json:"sizes"`
	Colors      []string         `gorm:"serializer:json"                 json:"colors"`
	Images      []string         `gorm:"serializer:json;not null"        json:"images"       validate:"min=1,dive,required"`
	IsNew       bool             `                                       json:"is_new"`
	IsFeatured  bool             `                                       json:"is_featured"`
	InStock     bool             `gorm:"not null"                        json:"in_stock"`
	Rating      float64          `gorm:"not null"                        json:"rating"       validate:"gte=0,lte=5"`
	ReviewCount int              `gorm:"not null"                        json:"review_count" validate:"gte=0"`
	Position    int              `gorm:"index"                           json:"-"`
}

// EffectivePrice is the sale price when one is set, the regular price otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// OnSale is derived from the presence of a sale price and is never stored on its own.
func (p Product) OnSale() bool {
	return p.SalePrice != nil
}

func (p Product) DiscountPercent() int {
	if p.Discount != nil {
		return *p.Discount
	}
	if p.SalePrice == nil || !p.Price.IsPositive() {
		return 0
	}
	off := p.Price.Sub(*p.SalePrice).Div(p.Price).Mul(decimal.NewFromInt(100))
	return int(off.Round(0).IntPart())
}

func (p Product) HasSize(size string) bool {
	return contains(p.Sizes, size)
}

func (p Product) HasColor(color string) bool {
	return contains(p.Colors, color)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type Collection struct {
	Slug        string `gorm:"primaryKey"  json:"slug"`
	Name        string `gorm:"not null"    json:"name"`
	Description string `                   json:"description"`
	Position    int    `gorm:"index"       json:"-"`
}

const OrderStatusNew = "new"

type Order struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"           json:"id"`
	SessionID  string          `gorm:"index;not null"                 json:"-"`
	Status     string          `gorm:"not null"                       json:"status"`
	Email      string          `gorm:"not null"                       json:"email"`
	FullName   string          `gorm:"not null"                       json:"full_name"`
	Address    string          `gorm:"not null"                       json:"address"`
	City       string          `gorm:"not null"                       json:"city"`
	PostalCode string          `gorm:"not null"                       json:"postal_code"`
	Country    string          `gorm:"not null"                       json:"country"`
	Subtotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"subtotal"`
	TotalItems int             `gorm:"not null"                       json:"total_items"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `                                      json:"created_at"`
}

type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"     json:"-"`
	ProductID   string          `gorm:"not null"                     json:"product_id"`
	ProductName string          `gorm:"not null"                     json:"product_name"`
	Size        string          `                                    json:"size,omitempty"`
	Color       string          `                                    json:"color,omitempty"`
	Quantity    int             `gorm:"not null;check:quantity>0"    json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"line_total"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}
