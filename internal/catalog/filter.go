package catalog

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/hat_shop/internal/models"
)

type SortOption string

const (
	SortFeatured     SortOption = "featured"
	SortNewest       SortOption = "newest"
	SortPriceLowHigh SortOption = "price-low-high"
	SortPriceHighLow SortOption = "price-high-low"
	SortTopRated     SortOption = "top-rated"
	SortBestSelling  SortOption = "best-selling"
)

var SortOptions = []SortOption{
	SortFeatured, SortNewest, SortPriceLowHigh, SortPriceHighLow, SortTopRated, SortBestSelling,
}

func (s SortOption) Valid() bool {
	return slices.Contains(SortOptions, s)
}

// PriceRange bounds are inclusive.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (r PriceRange) Contains(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(r.Min) && p.LessThanOrEqual(r.Max)
}

// Filter is the shopper's facet selection. Empty sets and a nil PriceRange
// do not restrict; boolean flags restrict only when true.
type Filter struct {
	Collections []string
	PriceRange  *PriceRange
	Sizes       []string
	Colors      []string
	OnSale      bool
	InStock     bool
	NewArrivals bool
	Sort        SortOption
}

type predicate func(models.Product) bool

func (f Filter) predicates() []predicate {
	var ps []predicate
	if len(f.Collections) > 0 {
		ps = append(ps, func(p models.Product) bool {
			return slices.Contains(f.Collections, p.Collection) || slices.Contains(f.Collections, p.Category)
		})
	}
	if f.PriceRange != nil {
		r := *f.PriceRange
		ps = append(ps, func(p models.Product) bool { return r.Contains(p.EffectivePrice()) })
	}
	if len(f.Sizes) > 0 {
		ps = append(ps, func(p models.Product) bool { return intersects(p.Sizes, f.Sizes) })
	}
	if len(f.Colors) > 0 {
		ps = append(ps, func(p models.Product) bool { return intersects(p.Colors, f.Colors) })
	}
	if f.OnSale {
		ps = append(ps, models.Product.OnSale)
	}
	if f.InStock {
		ps = append(ps, func(p models.Product) bool { return p.InStock })
	}
	if f.NewArrivals {
		ps = append(ps, func(p models.Product) bool { return p.IsNew })
	}
	return ps
}

// Apply returns the products matching every stage of f, ordered by f.Sort.
// The input slice is never modified.
func Apply(products []models.Product, f Filter) []models.Product {
	ps := f.predicates()
	out := make([]models.Product, 0, len(products))
next:
	for _, p := range products {
		for _, keep := range ps {
			if !keep(p) {
				continue next
			}
		}
		out = append(out, p)
	}
	SortProducts(out, f.Sort)
	return out
}

// SortProducts stable-sorts products in place so ties keep catalog order.
// Unknown options leave the order untouched.
func SortProducts(products []models.Product, opt SortOption) {
	var less func(a, b models.Product) int
	switch opt {
	case SortFeatured:
		less = func(a, b models.Product) int { return trueFirst(a.IsFeatured, b.IsFeatured) }
	case SortNewest:
		less = func(a, b models.Product) int { return trueFirst(a.IsNew, b.IsNew) }
	case SortPriceLowHigh:
		less = func(a, b models.Product) int { return a.EffectivePrice().Cmp(b.EffectivePrice()) }
	case SortPriceHighLow:
		less = func(a, b models.Product) int { return b.EffectivePrice().Cmp(a.EffectivePrice()) }
	case SortTopRated:
		less = func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortBestSelling:
		less = func(a, b models.Product) int { return cmp.Compare(b.ReviewCount, a.ReviewCount) }
	default:
		return
	}
	slices.SortStableFunc(products, less)
}

func trueFirst(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func intersects(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}
