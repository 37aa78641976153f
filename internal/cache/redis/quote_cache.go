package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// QuoteCache implements domain.QuotePublisher using Redis hashes. Each
// market's latest snapshot lives at "quote:{marketID}" and expires after the
// configured TTL, so a stalled bot leaves no stale quotes behind.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(marketID string) string {
	return "quote:" + marketID
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Publish stores the snapshot for a market and refreshes its TTL.
func (qc *QuoteCache) Publish(ctx context.Context, marketID string, snap domain.QuoteSnapshot) error {
	key := quoteKey(marketID)
	fields := map[string]interface{}{
		"up":            formatFloat(snap.UpPrice),
		"down":          formatFloat(snap.DownPrice),
		"up_ask":        formatFloat(snap.UpBestAsk),
		"down_ask":      formatFloat(snap.DownBestAsk),
		"up_ask_size":   formatFloat(snap.UpAskSize),
		"down_ask_size": formatFloat(snap.DownAskSize),
		"ts":            strconv.FormatInt(snap.At.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if qc.ttl > 0 {
		pipe.Expire(ctx, key, qc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish quote %s: %w", marketID, err)
	}
	return nil
}

// Get retrieves the latest snapshot for a market. It returns
// domain.ErrNotFound when the key is absent or expired.
func (qc *QuoteCache) Get(ctx context.Context, marketID string) (domain.QuoteSnapshot, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(marketID)).Result()
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("redis: get quote %s: %w", marketID, err)
	}
	if len(vals) == 0 {
		return domain.QuoteSnapshot{}, domain.ErrNotFound
	}

	parse := func(field string) float64 {
		f, _ := strconv.ParseFloat(vals[field], 64)
		return f
	}
	snap := domain.QuoteSnapshot{
		UpPrice:     parse("up"),
		DownPrice:   parse("down"),
		UpBestAsk:   parse("up_ask"),
		DownBestAsk: parse("down_ask"),
		UpAskSize:   parse("up_ask_size"),
		DownAskSize: parse("down_ask_size"),
	}
	if tsNano, err := strconv.ParseInt(vals["ts"], 10, 64); err == nil {
		snap.At = time.Unix(0, tsNano)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.QuotePublisher = (*QuoteCache)(nil)
