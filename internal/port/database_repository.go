package port

import (
	"context"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

type DatabaseRepository interface {
	// CreateOrder persists a new order and decrements inventory in one transaction
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetInventory retrieves the inventory record of a product, nil if absent
	GetInventory(ctx context.Context, productID domain.ID) (*domain.Inventory, error)
}
