package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-cart/internal/adapter/storage"
	"github.com/rl1809/shop-cart/internal/core/domain"
	"github.com/rl1809/shop-cart/internal/core/service"
	"github.com/rl1809/shop-cart/pkg/logger"
)

const (
	productID = domain.ID("stress-item")
	variantID = domain.ID("stress-item-l")
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	initialStock := flag.Int("stock", 40, "live stock for the product")
	totalRequests := flag.Int("requests", 50, "concurrent shoppers")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "stress-test", Level: logger.ParseLevel(""), Format: "console"})

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logg.Error(ctx, "failed to connect redis", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "stock:"+string(productID))

	redisAdapter := storage.NewRedisAdapter(rdb, time.Hour)
	inventory := []domain.Inventory{
		{ProductID: productID, Quantity: *initialStock},
		{ProductID: variantID, Quantity: *initialStock},
	}
	// Variant lines draw from the product counter, so only that one is seeded.
	if err := redisAdapter.SeedStock(ctx, inventory[:1]); err != nil {
		logg.Error(ctx, "failed to set stock", err)
		os.Exit(1)
	}

	catalog, err := service.NewCatalog([]domain.Product{{
		ID:        productID,
		Name:      "Stress Item",
		Price:     decimal.NewFromInt(10),
		Available: true,
		Variants:  []domain.Variant{{ID: variantID, Name: "Large", Price: decimal.NewFromInt(12)}},
	}}, inventory, nil)
	if err != nil {
		logg.Error(ctx, "failed to build catalog", err)
		os.Exit(1)
	}

	sessions := service.NewSessionManager(service.NewEngine(catalog), storage.NewMemoryStore(), nil, nil)
	orderService := service.NewOrderService(redisAdapter, *totalRequests, nil, nil)
	defer orderService.Close()

	// Drain the order queue in background
	go func() {
		for range orderService.GetOrderQueue() {
		}
	}()

	// Counters
	var successCount, soldOutCount, failCount atomic.Int32

	// Every shopper buys one base item and one large variant in a single checkout.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			err := sessions.With(ctx, fmt.Sprintf("shopper-%d", n), func(s *service.Session) error {
				if _, err := s.AddToCart(ctx, productID); err != nil {
					return err
				}
				if _, err := s.SelectVariant(productID, variantID); err != nil {
					return err
				}
				if _, err := s.AddToCart(ctx, productID); err != nil {
					return err
				}
				_, err := s.Checkout(ctx, orderService, uuid.NewString())
				return err
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Shoppers:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Each checkout takes two units: one base item and one variant.
	expected := int32(min(*initialStock/2, *totalRequests))
	if success == expected && soldOut == int32(*totalRequests)-expected {
		fmt.Printf("PASS: Exactly %d checkouts succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			expected, int32(*totalRequests)-expected, success, soldOut)
	}

	// Verify final stock in Redis
	finalStock, _ := rdb.Get(ctx, "stock:"+string(productID)).Int()
	want := *initialStock - 2*int(expected)
	fmt.Printf("Final Redis Stock: %d\n", finalStock)
	if finalStock == want {
		fmt.Printf("PASS: Stock at %d\n", want)
	} else {
		fmt.Printf("FAIL: Expected stock %d, got %d\n", want, finalStock)
	}
}
