package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/hat_shop/internal/models"
)

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func salePrice(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func fixture() []models.Product {
	return []models.Product{
		{ID: "p1", Slug: "p1", Name: "Wool Fedora", Collection: "fedoras", Category: "men", Price: price("30"), Sizes: []string{"S", "M"}, Colors: []string{"Black"}, InStock: true, Rating: 4.1, ReviewCount: 10, Images: []string{"a.jpg"}},
		{ID: "p2", Slug: "p2", Name: "Straw Fedora", Collection: "fedoras", Category: "women", Price: price("60"), SalePrice: salePrice("45"), Sizes: []string{"M", "L"}, Colors: []string{"Natural"}, InStock: true, IsFeatured: true, Rating: 4.8, ReviewCount: 50, Images: []string{"a.jpg"}},
		{ID: "p3", Slug: "p3", Name: "Trucker Cap", Collection: "caps", Category: "unisex", Price: price("25"), SalePrice: salePrice("20"), Sizes: []string{"One Size"}, Colors: []string{"Black", "Red"}, IsNew: true, Rating: 4.1, ReviewCount: 80, Images: []string{"a.jpg"}},
		{ID: "p4", Slug: "p4", Name: "Beanie", Collection: "beanies", Category: "sale", Price: price("50"), Colors: []string{"Grey"}, InStock: true, IsNew: true, IsFeatured: true, Rating: 3.9, ReviewCount: 50, Images: []string{"a.jpg"}},
		{ID: "p5", Slug: "p5", Name: "Sun Hat", Collection: "sun-hats", Category: "women", Price: price("70"), SalePrice: salePrice("20"), Sizes: []string{"M"}, Colors: []string{"Natural"}, InStock: true, Rating: 4.8, ReviewCount: 5, Images: []string{"a.jpg"}},
	}
}

func TestApply_ExampleScenario(t *testing.T) {
	t.Parallel()

	products := []models.Product{
		{ID: "P1", Price: price("30"), Sizes: []string{"S", "M"}},
		{ID: "P2", Price: price("60"), SalePrice: salePrice("45"), Sizes: []string{"M", "L"}},
	}
	got := Apply(products, Filter{PriceRange: &PriceRange{Min: price("0"), Max: price("50")}})
	assert.Equal(t, []string{"P1", "P2"}, ids(got), "P2 is included by its sale price")
}

func TestApply_Stages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps catalog order", Filter{}, []string{"p1", "p2", "p3", "p4", "p5"}},
		{"collection matches collection tag", Filter{Collections: []string{"caps"}}, []string{"p3"}},
		{"collection matches category tag", Filter{Collections: []string{"women"}}, []string{"p2", "p5"}},
		{"collections are OR-ed", Filter{Collections: []string{"caps", "beanies"}}, []string{"p3", "p4"}},
		{"price is inclusive on both ends", Filter{PriceRange: &PriceRange{Min: price("20"), Max: price("30")}}, []string{"p1", "p3", "p5"}},
		{"sizes match any", Filter{Sizes: []string{"L", "One Size"}}, []string{"p2", "p3"}},
		{"product without sizes never matches a size filter", Filter{Sizes: []string{"S", "M", "L"}}, []string{"p1", "p2", "p5"}},
		{"colors match any", Filter{Colors: []string{"Red", "Grey"}}, []string{"p3", "p4"}},
		{"on sale", Filter{OnSale: true}, []string{"p2", "p3", "p5"}},
		{"in stock", Filter{InStock: true}, []string{"p1", "p2", "p4", "p5"}},
		{"new arrivals", Filter{NewArrivals: true}, []string{"p3", "p4"}},
		{"no match is empty", Filter{Collections: []string{"gloves"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(Apply(fixture(), tt.filter)))
		})
	}
}

func TestApply_Conjunction(t *testing.T) {
	t.Parallel()

	f := Filter{
		PriceRange: &PriceRange{Min: price("20"), Max: price("50")},
		Sizes:      []string{"M"},
		OnSale:     true,
	}
	products := fixture()
	got := Apply(products, f)

	matches := func(p models.Product) bool {
		return f.PriceRange.Contains(p.EffectivePrice()) && p.HasSize("M") && p.OnSale()
	}
	for _, p := range got {
		assert.True(t, matches(p), "result %s violates a stage", p.ID)
	}
	var want []string
	for _, p := range products {
		if matches(p) {
			want = append(want, p.ID)
		}
	}
	assert.Equal(t, want, ids(got))
	assert.Equal(t, []string{"p2", "p5"}, ids(got))
}

func TestApply_Sort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sort SortOption
		want []string
	}{
		{SortFeatured, []string{"p2", "p4", "p1", "p3", "p5"}},
		{SortNewest, []string{"p3", "p4", "p1", "p2", "p5"}},
		{SortPriceLowHigh, []string{"p3", "p5", "p1", "p2", "p4"}},
		{SortPriceHighLow, []string{"p4", "p2", "p1", "p3", "p5"}},
		{SortTopRated, []string{"p2", "p5", "p1", "p3", "p4"}},
		{SortBestSelling, []string{"p3", "p2", "p4", "p1", "p5"}},
		{SortOption("alphabetical"), []string{"p1", "p2", "p3", "p4", "p5"}},
		{SortOption(""), []string{"p1", "p2", "p3", "p4", "p5"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(Apply(fixture(), Filter{Sort: tt.sort})))
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	products := fixture()
	before := ids(products)
	_ = Apply(products, Filter{Sort: SortPriceHighLow, InStock: true})
	assert.Equal(t, before, ids(products))
}

func TestSortOption_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range SortOptions {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SortOption("cheapest").Valid())
}

func TestBuildFacets(t *testing.T) {
	t.Parallel()

	cols := []models.Collection{{Slug: "caps", Name: "Caps"}}
	f := BuildFacets(fixture(), cols)

	assert.Equal(t, cols, f.Collections)
	assert.Equal(t, []string{"S", "M", "L", "One Size"}, f.Sizes)
	assert.Equal(t, []string{"Black", "Natural", "Red", "Grey"}, f.Colors)
	require.True(t, f.PriceRange.Min.Equal(price("20")))
	require.True(t, f.PriceRange.Max.Equal(price("50")))
	assert.Equal(t, SortOptions, f.Sorts)

	empty := BuildFacets(nil, nil)
	assert.Empty(t, empty.Sizes)
	assert.True(t, empty.PriceRange.Min.IsZero())
}
