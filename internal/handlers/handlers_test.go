package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/hat_shop/internal/cart"
	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/events"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/orders"
	"github.com/Skotchmaster/hat_shop/internal/recent"
	"github.com/Skotchmaster/hat_shop/internal/search"
	"github.com/Skotchmaster/hat_shop/internal/session"
	"github.com/Skotchmaster/hat_shop/internal/storage"
	"github.com/Skotchmaster/hat_shop/internal/transport"
	pkgdb "github.com/Skotchmaster/hat_shop/pkg/db"
)

type testEnv struct {
	e       *echo.Echo
	catalog *CatalogHandler
	cart    *CartHandler
	recent  *RecentHandler
	orders  *OrderHandler
	events  *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	src, err := catalog.LoadSeed()
	require.NoError(t, err)
	cat := catalog.NewService(src, time.Minute, nil)

	kv := storage.NewMemory(0)
	rec := &events.Recorder{}
	carts := cart.NewService(cat, kv, rec, nil, time.Hour)

	db, err := pkgdb.OpenMemory(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))

	return &testEnv{
		e:       echo.New(),
		catalog: &CatalogHandler{Svc: cat, Search: &search.Local{Catalog: cat}},
		cart:    &CartHandler{Svc: carts},
		recent:  &RecentHandler{Svc: recent.NewService(cat, kv, rec, nil, time.Hour)},
		orders:  &OrderHandler{Svc: &orders.Service{Repo: &orders.GormRepo{DB: db}, Cart: carts, Publisher: rec}},
		events:  rec,
	}
}

// call builds a context for target, attaching sid when it is not empty.
func (env *testEnv) call(method, target, sid string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if sid != "" {
		session.SetID(c, sid)
	}
	return c, rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %v", err)
	return he.Code
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func productIDs(ps []transport.ProductResponse) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestListProducts_Filters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"collection and sale", "?collection=caps&on_sale=true", []string{"hat-004"}},
		{"comma separated collections", "?collection=fedoras,sun-hats&in_stock=true", []string{"hat-001", "hat-002", "hat-008"}},
		{"repeated sizes", "?size=XL&size=One+Size&collection=caps", []string{"hat-003", "hat-004", "hat-005"}},
		{"price range on effective price", "?min_price=40&max_price=50&sort=price-low-high", []string{"hat-004", "hat-011", "hat-012"}},
		{"unknown sort keeps order", "?collection=beanies&sort=cheapest", []string{"hat-006", "hat-007"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := env.call(http.MethodGet, "/api/v1/catalog/products"+tt.query, "", nil)
			require.NoError(t, env.catalog.ListProducts(c))
			require.Equal(t, http.StatusOK, rec.Code)

			page := decode[transport.Page[transport.ProductResponse]](t, rec)
			assert.Equal(t, tt.want, productIDs(page.Data))
		})
	}
}

func TestListProducts_Pagination(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	c, rec := env.call(http.MethodGet, "/api/v1/catalog/products?page=3&size=5", "", nil)
	require.NoError(t, env.catalog.ListProducts(c))

	page := decode[transport.Page[transport.ProductResponse]](t, rec)
	assert.Equal(t, []string{"hat-011", "hat-012"}, productIDs(page.Data))
	assert.Equal(t, transport.PageMeta{Page: 3, Size: 5, Total: 12, TotalPages: 3, HasPrev: true, HasNext: false}, page.Meta)
}

func TestPagination_HugePageIsEmpty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		target string
		call   func(echo.Context) error
		total  int64
	}{
		{"products", "/api/v1/catalog/products?page=2305843009213693953", env.catalog.ListProducts, 12},
		{"products max int", "/api/v1/catalog/products?page=9223372036854775807&size=100", env.catalog.ListProducts, 12},
		{"search", "/api/v1/catalog/search?q=bucket&page=2305843009213693953", env.catalog.SearchProducts, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := env.call(http.MethodGet, tt.target, "", nil)
			require.NoError(t, tt.call(c))
			require.Equal(t, http.StatusOK, rec.Code)

			page := decode[transport.Page[transport.ProductResponse]](t, rec)
			assert.Empty(t, page.Data)
			assert.Equal(t, tt.total, page.Meta.Total)
			assert.False(t, page.Meta.HasNext)
			assert.True(t, page.Meta.HasPrev)
		})
	}
}

func TestListProducts_RejectsBadFilter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, q := range []string{"?min_price=abc", "?max_price=-1", "?min_price=50&max_price=20", "?on_sale=maybe"} {
		c, _ := env.call(http.MethodGet, "/api/v1/catalog/products"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, httpCode(t, env.catalog.ListProducts(c)), q)
	}
}

func TestGetProduct(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	c, rec := env.call(http.MethodGet, "/", "", nil)
	c.SetParamNames("slug")
	c.SetParamValues("panama-straw-fedora")
	require.NoError(t, env.catalog.GetProduct(c))

	p := decode[transport.ProductResponse](t, rec)
	assert.Equal(t, "hat-002", p.ID)
	assert.Equal(t, "96.00", p.EffectivePrice)
	assert.True(t, p.OnSale)
	assert.Equal(t, 20, p.DiscountPercent)

	c, _ = env.call(http.MethodGet, "/", "", nil)
	c.SetParamNames("slug")
	c.SetParamValues("no-such-hat")
	assert.Equal(t, http.StatusNotFound, httpCode(t, env.catalog.GetProduct(c)))
}

func TestSearchProducts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	c, rec := env.call(http.MethodGet, "/api/v1/catalog/search?q=bucket", "", nil)
	require.NoError(t, env.catalog.SearchProducts(c))
	page := decode[transport.Page[transport.ProductResponse]](t, rec)
	assert.Equal(t, []string{"hat-010", "hat-011"}, productIDs(page.Data))
	assert.Equal(t, int64(2), page.Meta.Total)

	c, _ = env.call(http.MethodGet, "/api/v1/catalog/search?q=+", "", nil)
	assert.Equal(t, http.StatusBadRequest, httpCode(t, env.catalog.SearchProducts(c)))
}

func TestFacetsAndCollections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	c, rec := env.call(http.MethodGet, "/", "", nil)
	require.NoError(t, env.catalog.Collections(c))
	cols := decode[[]models.Collection](t, rec)
	assert.Len(t, cols, 5)

	c, rec = env.call(http.MethodGet, "/", "", nil)
	require.NoError(t, env.catalog.Facets(c))
	assert.Contains(t, rec.Body.String(), `"sorts"`)
}

func TestCartHandler_Flow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	const sid = "session-a"

	c, rec := env.call(http.MethodPost, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-001", "size": "M", "color": "Black", "quantity": 2})
	require.NoError(t, env.cart.AddItem(c))

	c, rec = env.call(http.MethodPost, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-001", "size": "M", "color": "Black"})
	require.NoError(t, env.cart.AddItem(c))
	got := decode[transport.CartResponse](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, "267.00", got.Subtotal)
	assert.Equal(t, 3, got.TotalItems)

	c, rec = env.call(http.MethodPatch, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-001", "size": "M", "color": "Black", "quantity": 0})
	require.NoError(t, env.cart.UpdateItem(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[transport.CartResponse](t, rec).TotalItems)

	c, rec = env.call(http.MethodPatch, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-001", "size": "M", "color": "Black", "quantity": 1})
	require.NoError(t, env.cart.UpdateItem(c))
	assert.Equal(t, "89.00", decode[transport.CartResponse](t, rec).Subtotal)

	c, rec = env.call(http.MethodDelete, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-001", "size": "M", "color": "Black"})
	require.NoError(t, env.cart.RemoveItem(c))
	assert.Empty(t, decode[transport.CartResponse](t, rec).Items)

	c, rec = env.call(http.MethodDelete, "/api/v1/cart", sid, nil)
	require.NoError(t, env.cart.ClearCart(c))
	assert.Equal(t, "0.00", decode[transport.CartResponse](t, rec).Subtotal)

	assert.Equal(t, []string{events.CartItemAdded, events.CartItemAdded, events.CartItemUpdated, events.CartItemRemoved}, env.events.Types())
}

func TestCartHandler_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name string
		sid  string
		body map[string]any
		want int
	}{
		{"no session", "", map[string]any{"product_id": "hat-001"}, http.StatusUnauthorized},
		{"missing product id", "s", map[string]any{"size": "M"}, http.StatusBadRequest},
		{"unknown product", "s", map[string]any{"product_id": "hat-999"}, http.StatusNotFound},
		{"size not offered", "s", map[string]any{"product_id": "hat-001", "size": "XXL"}, http.StatusBadRequest},
		{"color not offered", "s", map[string]any{"product_id": "hat-002", "color": "Red"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := env.call(http.MethodPost, "/api/v1/cart/items", tt.sid, tt.body)
			assert.Equal(t, tt.want, httpCode(t, env.cart.AddItem(c)))
		})
	}
}

func TestCartHandler_ZeroQuantityIsNoop(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	c, rec := env.call(http.MethodPost, "/api/v1/cart/items", "s", map[string]any{"product_id": "hat-006", "quantity": 0})
	require.NoError(t, env.cart.AddItem(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[transport.CartResponse](t, rec).Items)
	assert.Empty(t, env.events.Types())
}

func TestRecentHandler(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	const sid = "viewer"

	for _, body := range []map[string]any{
		{"product_id": "hat-001"},
		{"slug": "mesh-trucker-cap"},
		{"product_id": "hat-001"},
	} {
		c, _ := env.call(http.MethodPost, "/api/v1/recently-viewed", sid, body)
		require.NoError(t, env.recent.Record(c))
	}

	c, rec := env.call(http.MethodGet, "/api/v1/recently-viewed", sid, nil)
	require.NoError(t, env.recent.List(c))
	assert.Equal(t, []string{"hat-001", "hat-005"}, productIDs(decode[transport.RecentResponse](t, rec).Products))

	c, _ = env.call(http.MethodPost, "/api/v1/recently-viewed", sid, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, env.recent.Record(c)))

	c, _ = env.call(http.MethodPost, "/api/v1/recently-viewed", sid, map[string]any{"slug": "missing"})
	assert.Equal(t, http.StatusNotFound, httpCode(t, env.recent.Record(c)))

	c, rec = env.call(http.MethodDelete, "/api/v1/recently-viewed", sid, nil)
	require.NoError(t, env.recent.Clear(c))
	assert.Empty(t, decode[transport.RecentResponse](t, rec).Products)
}

func TestOrderHandler_Checkout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	const sid = "buyer"

	form := map[string]any{
		"email":       "ada@example.com",
		"full_name":   "Ada Lovelace",
		"address":     "12 St James's Square",
		"city":        "London",
		"postal_code": "SW1Y 4JH",
		"country":     "GB",
	}

	c, _ := env.call(http.MethodPost, "/api/v1/cart/checkout", sid, form)
	assert.Equal(t, http.StatusConflict, httpCode(t, env.orders.Checkout(c)))

	c, _ = env.call(http.MethodPost, "/api/v1/cart/items", sid, map[string]any{"product_id": "hat-010", "size": "L", "quantity": 2})
	require.NoError(t, env.cart.AddItem(c))

	c, _ = env.call(http.MethodPost, "/api/v1/cart/checkout", sid, map[string]any{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, httpCode(t, env.orders.Checkout(c)))

	c, rec := env.call(http.MethodPost, "/api/v1/cart/checkout", sid, form)
	require.NoError(t, env.orders.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("58.80")), order.Subtotal.String())
	require.Len(t, order.Items, 1)

	c, rec = env.call(http.MethodGet, "/api/v1/cart", sid, nil)
	require.NoError(t, env.cart.GetCart(c))
	assert.Empty(t, decode[transport.CartResponse](t, rec).Items)

	c, rec = env.call(http.MethodGet, "/", sid, nil)
	c.SetParamNames("id")
	c.SetParamValues(order.ID.String())
	require.NoError(t, env.orders.GetOrder(c))
	assert.Equal(t, order.ID, decode[models.Order](t, rec).ID)

	c, _ = env.call(http.MethodGet, "/", "someone-else", nil)
	c.SetParamNames("id")
	c.SetParamValues(order.ID.String())
	assert.Equal(t, http.StatusNotFound, httpCode(t, env.orders.GetOrder(c)))

	c, rec = env.call(http.MethodGet, "/api/v1/orders", sid, nil)
	require.NoError(t, env.orders.ListOrders(c))
	page := decode[transport.Page[models.Order]](t, rec)
	assert.Equal(t, int64(1), page.Meta.Total)
	require.Len(t, page.Data, 1)
}
