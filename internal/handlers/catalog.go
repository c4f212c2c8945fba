package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/search"
	"github.com/Skotchmaster/hat_shop/internal/transport"
	"github.com/Skotchmaster/hat_shop/internal/util"
)

type CatalogHandler struct {
	Svc    *catalog.Service
	Search search.Searcher
}

// unbounded stands in for a missing max_price.
var unbounded = decimal.New(1, 12)

// listValues accepts both repeated parameters and comma separated lists.
func listValues(c echo.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryParams()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func flag(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func priceParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, errors.New("must not be negative")
	}
	return &d, nil
}

func parseFilter(c echo.Context) (catalog.Filter, error) {
	f := catalog.Filter{
		Collections: listValues(c, "collection"),
		Sizes:       listValues(c, "size"),
		Colors:      listValues(c, "color"),
		Sort:        catalog.SortOption(c.QueryParam("sort")),
	}

	var err error
	if f.OnSale, err = flag(c, "on_sale"); err != nil {
		return f, errors.New("on_sale must be a boolean")
	}
	if f.InStock, err = flag(c, "in_stock"); err != nil {
		return f, errors.New("in_stock must be a boolean")
	}
	if f.NewArrivals, err = flag(c, "new_arrivals"); err != nil {
		return f, errors.New("new_arrivals must be a boolean")
	}

	lo, err := priceParam(c, "min_price")
	if err != nil {
		return f, errors.New("min_price must be a non-negative number")
	}
	hi, err := priceParam(c, "max_price")
	if err != nil {
		return f, errors.New("max_price must be a non-negative number")
	}
	if lo != nil || hi != nil {
		r := catalog.PriceRange{Min: decimal.Zero, Max: unbounded}
		if lo != nil {
			r.Min = *lo
		}
		if hi != nil {
			r.Max = *hi
		}
		if r.Min.GreaterThan(r.Max) {
			return f, errors.New("min_price must not exceed max_price")
		}
		f.PriceRange = &r
	}
	return f, nil
}

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_products")

	f, err := parseFilter(c)
	if err != nil {
		l.Warn("list_products_failed", "status", 400, "reason", "invalid filter", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	items, err := h.Svc.List(ctx, f)
	if err != nil {
		l.Error("list_products_failed", "status", 500, "reason", "cannot load catalog", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load catalog")
	}

	from, to := util.Window(len(items), offset, limit)
	total := int64(len(items))

	l.Info("list_products_success", "total", total)
	return c.JSON(http.StatusOK, transport.Page[transport.ProductResponse]{
		Data: transport.Products(items[from:to]),
		Meta: transport.PageMeta{
			Page:       max(page, 1),
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			HasPrev:    page > 1,
			HasNext:    util.HasNext(offset, limit, total),
		},
	})
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	p, err := h.Svc.ProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "reason", "product not found", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_failed", "status", 500, "reason", "cannot load catalog", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load catalog")
	}
	return c.JSON(http.StatusOK, transport.Product(p))
}

func (h *CatalogHandler) Collections(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.collections")

	cols, err := h.Svc.Collections(ctx)
	if err != nil {
		l.Error("collections_failed", "status", 500, "reason", "cannot load catalog", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load catalog")
	}
	return c.JSON(http.StatusOK, cols)
}

func (h *CatalogHandler) Facets(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.facets")

	f, err := h.Svc.Facets(ctx)
	if err != nil {
		l.Error("facets_failed", "status", 500, "reason", "cannot load catalog", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load catalog")
	}
	return c.JSON(http.StatusOK, f)
}

func (h *CatalogHandler) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		l.Warn("search_failed", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	res, err := h.Search.Search(ctx, q, from, limit)
	if err != nil {
		l.Error("search_failed", "status", 500, "reason", "search backend error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	l.Info("search_success", "total", res.Total)
	return c.JSON(http.StatusOK, transport.Page[transport.ProductResponse]{
		Data: transport.Products(res.Products),
		Meta: transport.PageMeta{
			Page:       max(page, 1),
			Size:       limit,
			Total:      res.Total,
			TotalPages: util.TotalPages(res.Total, limit),
			HasPrev:    page > 1,
			HasNext:    util.HasNext(from, limit, res.Total),
		},
	})
}
