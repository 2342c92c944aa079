package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/simbroker/internal/domain"
)

// PriceCache keeps the latest simulated bar per symbol and fans new bars out
// over pub/sub for websocket streaming. The price store of record stays in
// postgres; this is a read-through layer in front of it.
type PriceCache struct {
	client *redis.Client
}

func NewPriceCache(client *redis.Client) *PriceCache {
	return &PriceCache{client: client}
}

func (c *PriceCache) Publish(ctx context.Context, bar domain.PriceBar) error {
	data, err := json.Marshal(bar)
	if err != nil {
		return err
	}
	pipe := c.client.Pipeline()
	pipe.Publish(ctx, "bars."+bar.Ticker, data)
	pipe.Set(ctx, "last_bar:"+bar.Ticker, data, 60*time.Second)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *PriceCache) LatestBar(ctx context.Context, symbol string) (*domain.PriceBar, error) {
	val, err := c.client.Get(ctx, "last_bar:"+symbol).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get last bar: %w", err)
	}
	var bar domain.PriceBar
	if err := json.Unmarshal([]byte(val), &bar); err != nil {
		return nil, err
	}
	return &bar, nil
}

func (c *PriceCache) Subscribe(ctx context.Context, symbol string) *redis.PubSub {
	return c.client.Subscribe(ctx, "bars."+symbol)
}
