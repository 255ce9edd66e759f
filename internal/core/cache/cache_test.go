package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 不可达的 redis：读写失败都回源
func unreachable() *Cache {
	return &Cache{RDB: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})}
}

type view struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGetOrLoadJSON_FallsThroughWithoutRedis(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	calls := 0
	v, err := GetOrLoadJSON[view](c, ctx, "k", time.Minute, func(context.Context) (*view, error) {
		calls++
		return &view{ID: "1", Name: "alice"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, &view{ID: "1", Name: "alice"}, v)
	assert.Equal(t, 1, calls)

	boom := errors.New("not found")
	_, err = GetOrLoadJSON[view](c, ctx, "k2", time.Minute, func(context.Context) (*view, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	assert.Error(t, c.Ping(ctx))
	assert.NoError(t, c.Delete(ctx))
}
