package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	stock          map[domain.ID]int
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo(stock map[domain.ID]int) *mockCacheRepo {
	return &mockCacheRepo{
		stock:          stock,
		idempotencySet: make(map[string]bool),
	}
}

func (m *mockCacheRepo) ReserveStock(ctx context.Context, lines []domain.OrderLine) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range lines {
		if m.stock[l.ProductID] < l.Quantity {
			return false, nil
		}
	}
	for _, l := range lines {
		m.stock[l.ProductID] -= l.Quantity
	}
	return true, nil
}

func (m *mockCacheRepo) ReleaseStock(ctx context.Context, lines []domain.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.stock[l.ProductID] += l.Quantity
	}
	return nil
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) stockOf(id domain.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[id]
}

type mockDatabaseRepo struct {
	mu     sync.Mutex
	orders []domain.Order
	fail   bool
}

func (m *mockDatabaseRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockDatabaseRepo) GetInventory(ctx context.Context, productID domain.ID) (*domain.Inventory, error) {
	return nil, nil
}

func oneLine(id domain.ID, qty int) domain.Ledger {
	return domain.Ledger{{ID: id, ProductID: id, Price: price("10.00"), Quantity: qty}}
}

func drain(svc *OrderService) {
	go func() {
		for range svc.GetOrderQueue() {
		}
	}()
}

func TestCheckout_Success(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 10})
	svc := NewOrderService(cache, 100, nil, nil)
	defer svc.Close()
	drain(svc)

	order, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 2), 20)
	require.NoError(t, err)

	assert.Equal(t, 8, cache.stockOf("item-1"))
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "16.00", order.Total.StringFixed(2))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 0})
	svc := NewOrderService(cache, 100, nil, nil)
	defer svc.Close()
	drain(svc)

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 1), 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCheckout_AllOrNothing(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"a": 5, "b": 1})
	svc := NewOrderService(cache, 100, nil, nil)
	defer svc.Close()
	drain(svc)

	ledger := domain.Ledger{
		{ID: "a", ProductID: "a", Price: price("1"), Quantity: 2},
		{ID: "b", ProductID: "b", Price: price("1"), Quantity: 2},
	}
	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", ledger, 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, cache.stockOf("a"))
	assert.Equal(t, 1, cache.stockOf("b"))
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := NewOrderService(newMockCacheRepo(nil), 1, nil, nil)
	defer svc.Close()

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", nil, 0)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_DuplicateRequest(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 10})
	svc := NewOrderService(cache, 100, nil, nil)
	defer svc.Close()
	drain(svc)

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 1), 0)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 1), 0)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// Stock should only be decremented once
	assert.Equal(t, 9, cache.stockOf("item-1"))
}

func TestCheckout_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	cache := newMockCacheRepo(map[domain.ID]int{"item": initialStock})
	svc := NewOrderService(cache, 100, nil, nil)
	defer svc.Close()
	drain(svc)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), fmt.Sprintf("req-%d", id), "sess", oneLine("item", 1), 0)
			if err == nil {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	assert.Equal(t, 0, cache.stockOf("item"))
}

func TestCheckout_OrderQueued(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 10})
	svc := NewOrderService(cache, 100, nil, nil)

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 2), 0)
	require.NoError(t, err)

	order := <-svc.GetOrderQueue()

	assert.Equal(t, "sess-1", order.SessionID)
	assert.Equal(t, "req-1", order.RequestID)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, domain.ID("item-1"), order.Lines[0].ProductID)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	svc.Close()
}

func TestProcessOrders_RollsBackOnFailure(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 5})
	db := &mockDatabaseRepo{fail: true}
	svc := NewOrderService(cache, 10, nil, nil)

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 2), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.stockOf("item-1"))

	svc.Close()
	ProcessOrders(0, svc.GetOrderQueue(), db, cache, nil)

	assert.Equal(t, 5, cache.stockOf("item-1"))
	assert.Empty(t, db.orders)
}

func TestProcessOrders_Saves(t *testing.T) {
	cache := newMockCacheRepo(map[domain.ID]int{"item-1": 5})
	db := &mockDatabaseRepo{}
	svc := NewOrderService(cache, 10, nil, nil)

	_, err := svc.Checkout(context.Background(), "req-1", "sess-1", oneLine("item-1", 2), 0)
	require.NoError(t, err)

	svc.Close()
	ProcessOrders(0, svc.GetOrderQueue(), db, cache, nil)

	assert.Len(t, db.orders, 1)
	assert.Equal(t, 3, cache.stockOf("item-1"))
}

func TestSession_CheckoutClearsCart(t *testing.T) {
	store := newMockStore()
	s := newTestSession(t, store)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, "1")
	require.NoError(t, err)

	cache := newMockCacheRepo(map[domain.ID]int{"1": 5})
	orders := NewOrderService(cache, 10, nil, nil)
	defer orders.Close()

	order, err := s.Checkout(ctx, orders, "req-1")
	require.NoError(t, err)
	assert.Len(t, order.Lines, 1)
	assert.Empty(t, s.Ledger())
	assert.Equal(t, "[]", store.data["sess-1:cart_items"])

	_, err = s.Checkout(ctx, orders, "req-2")
	assert.ErrorIs(t, err, ErrEmptyCart)
}
