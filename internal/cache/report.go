// Package cache keeps computed report summaries in Redis, one entry per user.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

const (
	reportPrefix     = "stockpilot:report:"
	generationPrefix = "stockpilot:report-gen:"
)

// ReportCache stores report summaries with a fixed TTL. Every Invalidate
// bumps a per-user generation; Set only stores a summary computed at the
// current generation. A nil client turns every call into a miss.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReportCache creates a ReportCache. A non-positive ttl falls back to 30s.
func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached summary for userID. ok is false on a miss.
func (c *ReportCache) Get(ctx context.Context, userID int64) (summary *model.ReportSummary, ok bool, err error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}

	bs, err := c.rdb.Get(ctx, reportKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("report cache get: %w", err)
	}

	summary = &model.ReportSummary{}
	if err := json.Unmarshal(bs, summary); err != nil {
		// Unreadable entries are dropped and treated as a miss.
		_ = c.rdb.Del(ctx, reportKey(userID)).Err()
		return nil, false, nil
	}
	return summary, true, nil
}

// Generation returns the user's current generation. Read it before loading
// the products a summary is built from and hand it to Set.
func (c *ReportCache) Generation(ctx context.Context, userID int64) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	gen, err := c.rdb.Get(ctx, generationKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("report cache generation: %w", err)
	}
	return gen, nil
}

// Set stores summary for userID unless an Invalidate happened after
// generation was read. A stale summary is dropped without error.
func (c *ReportCache) Set(ctx context.Context, userID, generation int64, summary *model.ReportSummary) error {
	if c == nil || c.rdb == nil || summary == nil {
		return nil
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	genKey := generationKey(userID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetEx(ctx, reportKey(userID), payload, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("report cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for userID and moves its generation on.
func (c *ReportCache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, reportKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("report cache invalidate: %w", err)
	}
	return nil
}

func reportKey(userID int64) string {
	return reportPrefix + strconv.FormatInt(userID, 10)
}

func generationKey(userID int64) string {
	return generationPrefix + strconv.FormatInt(userID, 10)
}
