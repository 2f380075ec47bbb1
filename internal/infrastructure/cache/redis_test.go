package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildledger/unitfilter/internal/domain"
)

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "http://not-redis", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

// unreachableClient points at a port nothing listens on
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisCache_Unavailable(t *testing.T) {
	c := NewRedisCacheFromClient(unreachableClient(), "unitfilter:", nil)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.True(t, errors.Is(err, domain.ErrCacheUnavailable), "err = %v", err)
	assert.False(t, errors.Is(err, domain.ErrCacheMiss))

	err = c.Set(ctx, "k", domain.PropertyMeta{Key: "k"}, time.Minute)
	assert.True(t, errors.Is(err, domain.ErrCacheUnavailable), "err = %v", err)

	_, err = c.Exists(ctx, "k")
	assert.True(t, errors.Is(err, domain.ErrCacheUnavailable), "err = %v", err)
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	c := NewRedisCacheFromClient(unreachableClient(), "unitfilter:", nil)
	defer c.Close()
	assert.Equal(t, "unitfilter:property-meta:width", c.key("property-meta:width"))
}

func TestRedisCache_UnencodableValue(t *testing.T) {
	c := NewRedisCacheFromClient(unreachableClient(), "", nil)
	defer c.Close()

	err := c.Set(context.Background(), "ch", make(chan int), time.Minute)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrCacheUnavailable), "encoding fails before the network")
}
