// Package cache journals accepted game actions to Redis for the history
// service: each record lands on a per-game list and on a pub/sub channel.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pfcuttle/cuttle/internal/game"
)

const actionChannel = "game_actions"

func actionListKey(rec game.GameActionRecord) string {
	return fmt.Sprintf("game:%s:actions", rec.GameID)
}

// Journal implements game.Journal on a Redis client.
type Journal struct {
	rdb *redis.Client
}

// Connect opens and pings the Redis client.
func Connect(ctx context.Context, redisURL string) (*Journal, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Journal{rdb: rdb}, nil
}

func (j *Journal) Close() error {
	return j.rdb.Close()
}

// Record appends the action to the game's list and publishes it for live
// consumers. Both ops run in one pipeline.
func (j *Journal) Record(ctx context.Context, rec game.GameActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	pipe := j.rdb.Pipeline()
	pipe.RPush(ctx, actionListKey(rec), data)
	pipe.Publish(ctx, actionChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal action %d for game %s: %w", rec.ActionIndex, rec.GameID, err)
	}
	return nil
}
