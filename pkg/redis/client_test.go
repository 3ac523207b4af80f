package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func TestFoundHidesNil(t *testing.T) {
	v, ok, err := found("x", fmt.Errorf("get: %w", redis.Nil))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	_, ok, err = found("x", errors.New("boom"))
	assert.Error(t, err)
	assert.False(t, ok)

	v, ok, err = found("x", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestKeyIsNamespaced(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	c := Wrap(rdb, "docsearch:")
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "docsearch:search:abc", c.Key("search:abc"))
	assert.Equal(t, "clicks", Wrap(rdb, "").Key("clicks"))
}

func TestNewClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
