package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-cart/internal/core/domain"
	"github.com/rl1809/shop-cart/internal/port"
	"github.com/rl1809/shop-cart/pkg/logger"
	"github.com/rl1809/shop-cart/pkg/metrics"
)

var (
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
)

type OrderService struct {
	cache      port.CacheRepository
	orderQueue chan domain.Order
	log        *logger.Logger
	metrics    *metrics.CartMetrics
}

func NewOrderService(cache port.CacheRepository, queueSize int, log *logger.Logger, m *metrics.CartMetrics) *OrderService {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderService{
		cache:      cache,
		orderQueue: make(chan domain.Order, queueSize),
		log:        log,
		metrics:    m,
	}
}

// Checkout reserves live stock for every line and queues the order for
// persistence. The same requestID is accepted once.
func (s *OrderService) Checkout(ctx context.Context, requestID, sessionID string, ledger domain.Ledger, discountPercent int) (domain.Order, error) {
	if len(ledger) == 0 {
		s.metrics.IncCheckout("empty")
		return domain.Order{}, ErrEmptyCart
	}

	idempotencyKey := fmt.Sprintf("checkout:%s:%s", sessionID, requestID)
	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		s.metrics.IncCheckout("error")
		return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		s.metrics.IncCheckout("duplicate")
		return domain.Order{}, ErrDuplicateRequest
	}

	lines := make([]domain.OrderLine, 0, len(ledger))
	for _, l := range ledger {
		lines = append(lines, domain.OrderLine{
			LineID:    l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
		})
	}

	ok, err = s.cache.ReserveStock(ctx, lines)
	if err != nil {
		s.metrics.IncCheckout("error")
		return domain.Order{}, fmt.Errorf("stock reservation failed: %w", err)
	}
	if !ok {
		s.metrics.IncCheckout("sold_out")
		return domain.Order{}, ErrInsufficientStock
	}

	totals := Total(ledger, discountPercent)
	now := time.Now()
	order := domain.Order{
		ID:              uuid.NewString(),
		RequestID:       requestID,
		SessionID:       sessionID,
		Lines:           lines,
		Subtotal:        totals.Subtotal,
		DiscountPercent: discountPercent,
		Total:           totals.Total.Round(2),
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.orderQueue <- order
	s.metrics.IncCheckout("accepted")
	s.log.Info(s.log.WithField(ctx, "order_id", order.ID), "order queued")

	return order, nil
}

func (s *OrderService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *OrderService) Close() {
	close(s.orderQueue)
}

// ProcessOrders drains queue until it is closed, persisting each order and
// restoring reserved stock when persistence fails.
func ProcessOrders(id int, queue <-chan domain.Order, db port.DatabaseRepository, cache port.CacheRepository, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ctx = log.WithFields(ctx, map[string]any{"worker": id, "order_id": order.ID})

		if err := db.CreateOrder(ctx, order); err != nil {
			log.Error(ctx, "failed to save order", err)
			if rollbackErr := cache.ReleaseStock(ctx, order.Lines); rollbackErr != nil {
				log.Error(ctx, "CRITICAL rollback failed", rollbackErr)
			} else {
				log.Info(ctx, "rolled back stock")
			}
		} else {
			log.Info(ctx, "saved order")
		}
		cancel()
	}
}
