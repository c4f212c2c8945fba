package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/hat_shop/internal/handlers"
	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/hat_shop/internal/session"
)

type Deps struct {
	Sessions *session.Manager
	CSRF     csrf.Config
	Gatherer prometheus.Gatherer
	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	CatalogHandler *handlers.CatalogHandler
	CartHandler    *handlers.CartHandler
	RecentHandler  *handlers.RecentHandler
	OrderHandler   *handlers.OrderHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := d.Ready(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Warn("readiness_failed", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1", d.Sessions.Middleware, csrf.Middleware(d.CSRF))

	catalog := v1.Group("/catalog")

	catalog.GET("/products", d.CatalogHandler.ListProducts)
	catalog.GET("/products/:slug", d.CatalogHandler.GetProduct)
	catalog.GET("/collections", d.CatalogHandler.Collections)
	catalog.GET("/facets", d.CatalogHandler.Facets)
	catalog.GET("/search", d.CatalogHandler.SearchProducts)

	cart := v1.Group("/cart")

	cart.GET("", d.CartHandler.GetCart)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items", d.CartHandler.UpdateItem)
	cart.DELETE("/items", d.CartHandler.RemoveItem)
	cart.POST("/checkout", d.OrderHandler.Checkout)

	recent := v1.Group("/recently-viewed")

	recent.GET("", d.RecentHandler.List)
	recent.POST("", d.RecentHandler.Record)
	recent.DELETE("", d.RecentHandler.Clear)

	orders := v1.Group("/orders")

	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
}
