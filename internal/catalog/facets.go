package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/hat_shop/internal/models"
)

// Facets lists the values a shopper can filter the catalog by.
type Facets struct {
	Collections []models.Collection `json:"collections"`
	Sizes       []string            `json:"sizes"`
	Colors      []string            `json:"colors"`
	PriceRange  PriceRange          `json:"price_range"`
	Sorts       []SortOption        `json:"sorts"`
}

// BuildFacets collects distinct sizes and colors in first-seen catalog order
// and the effective price bounds across all products.
func BuildFacets(products []models.Product, collections []models.Collection) Facets {
	f := Facets{
		Collections: collections,
		Sizes:       []string{},
		Colors:      []string{},
		Sorts:       SortOptions,
	}
	seenSize := map[string]struct{}{}
	seenColor := map[string]struct{}{}
	for i, p := range products {
		for _, s := range p.Sizes {
			if _, ok := seenSize[s]; !ok {
				seenSize[s] = struct{}{}
				f.Sizes = append(f.Sizes, s)
			}
		}
		for _, c := range p.Colors {
			if _, ok := seenColor[c]; !ok {
				seenColor[c] = struct{}{}
				f.Colors = append(f.Colors, c)
			}
		}
		price := p.EffectivePrice()
		if i == 0 {
			f.PriceRange = PriceRange{Min: price, Max: price}
			continue
		}
		f.PriceRange.Min = decimal.Min(f.PriceRange.Min, price)
		f.PriceRange.Max = decimal.Max(f.PriceRange.Max, price)
	}
	return f
}
