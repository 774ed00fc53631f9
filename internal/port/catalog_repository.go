package port

import (
	"context"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

// CatalogRepository is the read-only data feed loaded once at startup.
type CatalogRepository interface {
	// ListProducts returns products in feed order
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// ListInventory returns one record per product id
	ListInventory(ctx context.Context) ([]domain.Inventory, error)

	// ListCoupons returns every known coupon
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
}
