// Package cache provides the Redis-backed payoff quote cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/domain/sale"

	"github.com/redis/go-redis/v9"
)

const quoteTTL = 15 * time.Minute

type RedisQuoteCache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ sale.QuoteCache = (*RedisQuoteCache)(nil)

func NewRedisQuoteCache(client *redis.Client, logger *slog.Logger) *RedisQuoteCache {
	return &RedisQuoteCache{
		client: client,
		logger: logger.With("component", "RedisQuoteCache"),
	}
}

// quoteKey includes the total paid amount so a quote is only ever served for
// the ledger state it was computed against.
func quoteKey(saleID int64, totalPaid sale.Money) string {
	return fmt.Sprintf("payoff:%d:%.2f", saleID, totalPaid)
}

func quotePattern(saleID int64) string {
	return fmt.Sprintf("payoff:%d:*", saleID)
}

func (c *RedisQuoteCache) GetQuote(ctx context.Context, saleID int64, totalPaid sale.Money) (*finance.PayoffQuote, error) {
	val, err := c.client.Get(ctx, quoteKey(saleID, totalPaid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payoff quote from cache: %w", err)
	}

	var quote finance.PayoffQuote
	if err := json.Unmarshal([]byte(val), &quote); err != nil {
		c.logger.WarnContext(ctx, "Discarding unreadable cached quote", "saleID", saleID, "error", err)
		return nil, nil
	}
	return &quote, nil
}

func (c *RedisQuoteCache) SetQuote(ctx context.Context, saleID int64, totalPaid sale.Money, quote finance.PayoffQuote) error {
	body, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal payoff quote: %w", err)
	}
	if err := c.client.Set(ctx, quoteKey(saleID, totalPaid), body, quoteTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache payoff quote: %w", err)
	}
	return nil
}

func (c *RedisQuoteCache) InvalidateQuotes(ctx context.Context, saleID int64) error {
	iter := c.client.Scan(ctx, 0, quotePattern(saleID), 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan payoff quote keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete payoff quote keys: %w", err)
	}
	c.logger.DebugContext(ctx, "Invalidated payoff quotes", "saleID", saleID, "keys", len(keys))
	return nil
}
