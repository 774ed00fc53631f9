package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shop-cart/internal/adapter/handler"
	"github.com/rl1809/shop-cart/internal/adapter/storage"
	"github.com/rl1809/shop-cart/internal/core/service"
	"github.com/rl1809/shop-cart/internal/port"
	"github.com/rl1809/shop-cart/pkg/config"
	"github.com/rl1809/shop-cart/pkg/logger"
	"github.com/rl1809/shop-cart/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "shop-cart", Level: logger.ParseLevel("")}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "shop-cart",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)

	// Initialize MySQL
	var mysqlAdapter *storage.MySQLAdapter
	if cfg.MySQL.Enabled() {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			fatal("failed to connect mysql", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			fatal("failed to ping mysql", err)
		}
		mysqlAdapter = storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			fatal("failed to migrate mysql", err)
		}
		logg.Info(ctx, "connected to mysql")
	}

	// Load catalog feeds
	var catalogRepo port.CatalogRepository = storage.NewJSONCatalog(cfg.Catalog.Dir)
	if cfg.Catalog.Source == config.CatalogSourceMySQL {
		catalogRepo = mysqlAdapter
	}
	catalog, err := service.LoadCatalog(ctx, catalogRepo)
	if err != nil {
		fatal("failed to load catalog", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"source":   cfg.Catalog.Source,
		"products": len(catalog.Products()),
	}), "catalog loaded")

	// Initialize Redis
	var redisAdapter *storage.RedisAdapter
	if cfg.Session.Store == config.StoreRedis || mysqlAdapter != nil {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			fatal("failed to connect redis", err)
		}
		redisAdapter = storage.NewRedisAdapter(rdb, cfg.Session.TTL)
		logg.Info(ctx, "connected to redis")
	}

	var store port.KeyValueStore = storage.NewMemoryStore()
	if cfg.Session.Store == config.StoreRedis {
		store = redisAdapter
	}

	engine := service.NewEngine(catalog)
	sessions := service.NewSessionManager(engine, store, logg, cartMetrics,
		service.WithCapacity(cfg.Session.MaxLive, cfg.Session.Idle))

	// Checkout needs both the live stock counters and order storage.
	var orderService *service.OrderService
	var wg sync.WaitGroup
	if mysqlAdapter != nil {
		if cfg.Orders.SeedStock {
			if err := redisAdapter.SeedStock(ctx, catalog.InventoryRecords()); err != nil {
				fatal("failed to seed stock", err)
			}
			logg.Info(ctx, "seeded stock counters")
		}

		orderService = service.NewOrderService(redisAdapter, cfg.Orders.QueueSize, logg, cartMetrics)
		for i := 0; i < cfg.Orders.WorkerCount; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				service.ProcessOrders(id, orderService.GetOrderQueue(), mysqlAdapter, redisAdapter, logg)
			}(i)
		}
		logg.Info(logg.WithField(ctx, "workers", cfg.Orders.WorkerCount), "started order workers")
	} else {
		logg.Warn(ctx, "checkout disabled without mysql", nil)
	}

	// Initialize gRPC health server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		fatal("failed to listen", err)
	}

	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.GRPCAddr), "gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logg.Error(ctx, "gRPC server error", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(sessions, orderService, reg, logg)
	httpServer := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.App.HTTPAddr), "HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logg.Error(ctx, "HTTP server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down...")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "HTTP shutdown", err)
	}
	logg.Info(ctx, "HTTP server stopped")

	grpcServer.GracefulStop()
	logg.Info(ctx, "gRPC server stopped")

	// Close order queue and wait for workers
	if orderService != nil {
		orderService.Close()
		wg.Wait()
		logg.Info(ctx, "workers stopped")
	}
}
