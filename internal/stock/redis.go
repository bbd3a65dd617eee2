package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/models"
)

// reservationRetention bounds how long a held reservation is remembered.
const reservationRetention = 30 * 24 * time.Hour

// KEYS[1] is the reservation hash, KEYS[2..] the stock counters.
// ARGV[1] is the retention in seconds, ARGV[i] the quantity for KEYS[i].
// Replies {status, index, available}: 0 already held, 1 applied,
// 2 unknown product, 3 insufficient.
var reserveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {0, 0, 0}
end
for i = 2, #KEYS do
  local have = redis.call('GET', KEYS[i])
  if not have then
    return {2, i - 1, 0}
  end
  have = tonumber(have)
  if have < tonumber(ARGV[i]) then
    return {3, i - 1, have}
  end
end
for i = 2, #KEYS do
  redis.call('DECRBY', KEYS[i], ARGV[i])
  redis.call('HSET', KEYS[1], KEYS[i], ARGV[i])
end
redis.call('EXPIRE', KEYS[1], ARGV[1])
return {1, 0, 0}
`)

// KEYS[1] is the reservation hash, KEYS[2..] the stock counters it holds,
// as read by the caller. Replies 1 released, -1 when the hash no longer
// matches KEYS.
var releaseScript = redis.NewScript(`
if redis.call('HLEN', KEYS[1]) ~= #KEYS - 1 then
  return -1
end
for i = 2, #KEYS do
  local qty = redis.call('HGET', KEYS[1], KEYS[i])
  if not qty then
    return -1
  end
  redis.call('INCRBY', KEYS[i], qty)
end
redis.call('DEL', KEYS[1])
return 1
`)

// maxReleaseAttempts bounds the read/release loop of Release.
const maxReleaseAttempts = 3

// RedisLedger keeps one integer counter per product under {stock}:<id>.
// Reserve and Release run as Lua scripts, so concurrent checkouts never
// drive a counter below zero. Every key carries the {stock} hash tag and
// every script declares the keys it touches, so the ledger also runs on
// Redis Cluster.
type RedisLedger struct {
	client redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Reserve(ctx context.Context, reservationID string, lines []models.StockLine) (bool, error) {
	merged, err := normalize(lines)
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(merged)+1)
	args := make([]any, 0, len(merged)+1)
	keys = append(keys, reservationKey(reservationID))
	args = append(args, int64(reservationRetention/time.Second))
	for _, line := range merged {
		keys = append(keys, stockKey(line.ProductID))
		args = append(args, line.Quantity)
	}

	reply, err := reserveScript.Run(ctx, l.client, keys, args...).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}
	if len(reply) != 3 {
		return false, fmt.Errorf("reserve stock: unexpected reply %v", reply)
	}

	switch reply[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	case 2:
		return false, &UnknownProductError{ProductID: merged[reply[1]-1].ProductID}
	case 3:
		line := merged[reply[1]-1]
		return false, &ShortageError{ProductID: line.ProductID, Requested: int64(line.Quantity), Available: reply[2]}
	default:
		return false, fmt.Errorf("reserve stock: unexpected status %d", reply[0])
	}
}

func (l *RedisLedger) Release(ctx context.Context, reservationID string) (bool, error) {
	key := reservationKey(reservationID)
	for attempt := 0; attempt < maxReleaseAttempts; attempt++ {
		held, err := l.client.HKeys(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("release stock: %w", err)
		}
		if len(held) == 0 {
			return false, nil
		}

		n, err := releaseScript.Run(ctx, l.client, append([]string{key}, held...)).Int64()
		if err != nil {
			return false, fmt.Errorf("release stock: %w", err)
		}
		if n >= 0 {
			return n == 1, nil
		}
	}
	return false, fmt.Errorf("release stock: reservation %s kept changing", reservationID)
}

func (l *RedisLedger) Level(ctx context.Context, productID string) (models.StockLevel, error) {
	n, err := l.client.Get(ctx, stockKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return models.StockLevel{}, &UnknownProductError{ProductID: productID}
	}
	if err != nil {
		return models.StockLevel{}, fmt.Errorf("read stock: %w", err)
	}
	return models.StockLevel{ProductID: productID, Quantity: n}, nil
}

func (l *RedisLedger) Set(ctx context.Context, productID string, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if err := l.client.Set(ctx, stockKey(productID), strconv.FormatInt(quantity, 10), 0).Err(); err != nil {
		return fmt.Errorf("write stock: %w", err)
	}
	return nil
}

// All ledger keys share the {stock} hash tag and so one cluster slot.
const keyPrefix = "{stock}:"

func stockKey(productID string) string {
	return keyPrefix + productID
}

func reservationKey(id string) string {
	return keyPrefix + "reservation:" + id
}
