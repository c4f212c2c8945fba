package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/Skotchmaster/hat_shop/internal/cart"
	"github.com/Skotchmaster/hat_shop/internal/catalog"
	"github.com/Skotchmaster/hat_shop/internal/config"
	"github.com/Skotchmaster/hat_shop/internal/events"
	"github.com/Skotchmaster/hat_shop/internal/handlers"
	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/metrics"
	"github.com/Skotchmaster/hat_shop/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/hat_shop/internal/middleware/logging"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/orders"
	"github.com/Skotchmaster/hat_shop/internal/recent"
	"github.com/Skotchmaster/hat_shop/internal/search"
	"github.com/Skotchmaster/hat_shop/internal/session"
	"github.com/Skotchmaster/hat_shop/internal/storage"
	httpserver "github.com/Skotchmaster/hat_shop/internal/transport/http"
	pkgdb "github.com/Skotchmaster/hat_shop/pkg/db"
)

const purgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := pkgdb.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "db_init_error", err)
	}
	if err := db.WithContext(initCtx).AutoMigrate(
		&storage.Entry{},
		&models.Collection{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		fatal(logger, "db_migrate_error", err)
	}

	src, err := catalogSource(initCtx, cfg, db)
	if err != nil {
		fatal(logger, "catalog_init_error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cat := catalog.NewService(src, cfg.CatalogCacheTTL, m)

	kv, closeKV, err := keyValueStore(initCtx, cfg, db)
	if err != nil {
		fatal(logger, "storage_init_error", err)
	}

	pub := publisher(initCtx, cfg, logger)

	searcher := searchBackend(initCtx, cfg, cat, logger)

	carts := cart.NewService(cat, kv, pub, m, cfg.SessionIdle)
	views := recent.NewService(cat, kv, pub, m, cfg.SessionIdle)
	// db and redis storage may be shared by several instances.
	shared := cfg.StorageDriver != config.StorageMemory
	carts.Reload, views.Reload = shared, shared
	orderSvc := &orders.Service{
		Repo:      &orders.GormRepo{DB: db},
		Cart:      carts,
		Publisher: pub,
		Metrics:   m,
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.SecureCookies

	httpserver.Register(e, &httpserver.Deps{
		Sessions: session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL, cfg.SecureCookies),
		CSRF:     csrfCfg,
		Gatherer: reg,
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		CatalogHandler: &handlers.CatalogHandler{Svc: cat, Search: searcher},
		CartHandler:    &handlers.CartHandler{Svc: carts},
		RecentHandler:  &handlers.RecentHandler{Svc: views},
		OrderHandler:   &handlers.OrderHandler{Svc: orderSvc},
	})

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	if cfg.StorageDriver == config.StorageDB {
		go purgeLoop(runCtx, &storage.GormRepo{DB: db})
	}

	go func() {
		logger.Info("server_starting", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server_error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("server_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	stopRun()

	if err := pub.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if err := closeKV(); err != nil {
		logger.Error("storage_close_error", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("server_stopped")
}

func fatal(l *slog.Logger, event string, err error) {
	l.Error(event, "error", err)
	os.Exit(1)
}

func catalogSource(ctx context.Context, cfg *config.Config, db *gorm.DB) (catalog.Source, error) {
	seed, err := catalog.LoadSeed()
	if err != nil {
		return nil, err
	}
	if cfg.CatalogSource == config.CatalogStatic {
		return seed, nil
	}

	seeded, err := catalog.SeedIfEmpty(ctx, db, seed)
	if err != nil {
		return nil, err
	}
	if seeded {
		logging.FromContext(ctx).Info("catalog_seeded")
	}
	return &catalog.GormSource{DB: db}, nil
}

func keyValueStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (storage.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageDriver {
	case config.StorageRedis:
		r, err := storage.NewRedis(ctx, cfg.Redis, cfg.StateTTL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case config.StorageMemory:
		return storage.NewMemory(cfg.StorageQuota), noop, nil
	default:
		return &storage.GormRepo{DB: db, TTL: cfg.StateTTL}, noop, nil
	}
}

func publisher(ctx context.Context, cfg *config.Config, l *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		l.Info("kafka_disabled")
		return events.Nop{}
	}

	topics := []string{events.TopicCart, events.TopicOrders, events.TopicViews}
	if err := events.EnsureTopics(ctx, cfg.KafkaBrokers[0], topics...); err != nil {
		l.Warn("kafka_topics_error", "error", err)
	}

	p, err := events.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		l.Warn("kafka_producer_error", "error", err)
		return events.Nop{}
	}
	return p
}

func searchBackend(ctx context.Context, cfg *config.Config, cat *catalog.Service, l *slog.Logger) search.Searcher {
	local := &search.Local{Catalog: cat}
	if !cfg.ES.Enabled() {
		return local
	}

	client, err := search.NewClient(ctx, cfg.ES, nil)
	if err != nil {
		l.Warn("es_unavailable", "error", err)
		return local
	}

	es := &search.Elastic{Client: client, Index: cfg.ES.Index}
	products, err := cat.Products(ctx)
	if err != nil {
		l.Warn("es_index_error", "error", err)
		return local
	}
	if err := es.IndexProducts(ctx, products); err != nil {
		l.Warn("es_index_error", "error", err)
		return local
	}
	l.Info("es_indexed", "products", len(products))
	return es
}

func purgeLoop(ctx context.Context, repo *storage.GormRepo) {
	l := logging.FromContext(ctx)
	t := time.NewTicker(purgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.Purge(ctx)
			if err != nil {
				l.Error("storage_purge_error", "error", err)
				continue
			}
			if n > 0 {
				l.Info("storage_purged", "rows", n)
			}
		}
	}
}
