package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testCatalog mirrors a small storefront: a plain product, one with
// variants, one hidden, and one without an inventory record.
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	products := []domain.Product{
		{ID: "1", Name: "Mug", Price: price("10.00"), Available: true},
		{ID: "2", Name: "Shirt", Price: price("20.00"), Available: true, Variants: []domain.Variant{
			{ID: "2-s", Name: "Small", Price: price("18.00")},
			{ID: "2-l", Name: "Large", Price: price("25.00")},
			{ID: "2-x", Name: "Promo"},
		}},
		{ID: "3", Name: "Poster", Price: price("5.50"), Available: false},
		{ID: "4", Name: "Sticker", Price: price("1.25"), Available: true},
	}
	inventory := []domain.Inventory{
		{ProductID: "1", Quantity: 5, LimitPerOrder: 3},
		{ProductID: "2", Quantity: 10, LimitPerOrder: 4},
		{ProductID: "2-l", Quantity: 2, LimitPerOrder: 2},
		{ProductID: "3", Quantity: 7},
	}
	coupons := []domain.Coupon{
		{Code: "SAVE20", Discount: 20},
		{Code: "HALF", Discount: 50},
	}
	c, err := NewCatalog(products, inventory, coupons)
	require.NoError(t, err)
	return c
}

type mockStore struct {
	mu      sync.Mutex
	data    map[string]string
	writes  int
	failSet bool
	failGet bool
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errors.New("store unavailable")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("store unavailable")
	}
	m.writes++
	m.data[key] = value
	return nil
}
