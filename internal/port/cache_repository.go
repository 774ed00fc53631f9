package port

import (
	"context"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

type CacheRepository interface {
	// ReserveStock atomically decreases live stock for every line, or for none
	// of them. Returns false if any product is short.
	ReserveStock(ctx context.Context, lines []domain.OrderLine) (bool, error)

	// ReleaseStock restores stock (for rollback on failure)
	ReleaseStock(ctx context.Context, lines []domain.OrderLine) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
