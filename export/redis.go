package export

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mtraver/air-quality-analysis/summary"
)

// txPipeliner is the part of redis.Client that Redis uses.
type txPipeliner interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// Redis stores a summary table in a hash. Each cell becomes a field named
// "<statistic>.<column>", e.g. "mean.aqi". The hash is deleted and rewritten
// in one transaction so readers never see a mix of two summaries.
type Redis struct {
	client txPipeliner
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{
		client: client,
		key:    key,
	}
}

// DialRedis connects to the Redis server at addr and checks that it responds.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("export: redis: connect to %s: %v", addr, err)
	}

	return client, nil
}

// tableFields flattens t into hash fields. The first cell of each row names
// the statistic and the header names the columns.
func tableFields(t summary.Table) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		stat := fmt.Sprint(row[0])
		for i := 1; i < len(row) && i < len(t.Header); i++ {
			fields[stat+"."+t.Header[i]] = fmt.Sprint(row[i])
		}
	}
	return fields
}

func (r *Redis) Export(ctx context.Context, t summary.Table) error {
	fields := tableFields(t)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, r.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("export: redis: %w", err)
	}

	return nil
}
