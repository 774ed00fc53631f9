package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

const (
	stockKeyPrefix    = "stock:"
	sessionKeyPrefix  = "session:"
	idempotencyKeyTTL = 24 * time.Hour
)

// reserveStockScript decrements every key by its quantity, or none of them.
var reserveStockScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local current = redis.call('GET', key)
	if not current then
		return 0
	end
	if tonumber(current) < tonumber(ARGV[i]) then
		return 0
	end
end
for i, key in ipairs(KEYS) do
	redis.call('DECRBY', key, ARGV[i])
end
return 1
`)

type RedisAdapter struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisAdapter returns an adapter whose session keys expire after
// sessionTTL of inactivity. Zero keeps them forever.
func NewRedisAdapter(client *redis.Client, sessionTTL time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, sessionTTL: sessionTTL}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, sessionKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, sessionKeyPrefix+key, value, r.sessionTTL).Err()
}

// stockArgs merges lines per product so each stock key appears once.
func stockArgs(lines []domain.OrderLine) ([]string, []int) {
	index := make(map[string]int, len(lines))
	keys := make([]string, 0, len(lines))
	qty := make([]int, 0, len(lines))
	for _, l := range lines {
		id := l.ProductID
		if id == "" {
			id = l.LineID
		}
		key := stockKeyPrefix + string(id)
		if i, ok := index[key]; ok {
			qty[i] += l.Quantity
			continue
		}
		index[key] = len(keys)
		keys = append(keys, key)
		qty = append(qty, l.Quantity)
	}
	return keys, qty
}

func (r *RedisAdapter) ReserveStock(ctx context.Context, lines []domain.OrderLine) (bool, error) {
	keys, qty := stockArgs(lines)
	if len(keys) == 0 {
		return true, nil
	}
	args := make([]any, len(qty))
	for i, q := range qty {
		args[i] = q
	}
	result, err := reserveStockScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

func (r *RedisAdapter) ReleaseStock(ctx context.Context, lines []domain.OrderLine) error {
	keys, qty := stockArgs(lines)
	if len(keys) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for i, key := range keys {
		pipe.IncrBy(ctx, key, int64(qty[i]))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID domain.ID, quantity int) error {
	key := stockKeyPrefix + string(productID)
	return r.client.Set(ctx, key, quantity, 0).Err()
}

// SeedStock copies the inventory snapshot into live stock counters.
func (r *RedisAdapter) SeedStock(ctx context.Context, records []domain.Inventory) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, inv := range records {
		pipe.Set(ctx, stockKeyPrefix+string(inv.ProductID), inv.Quantity, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
