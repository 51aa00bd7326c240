package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyScriptsCompile(t *testing.T) {
	if concurrencyAcquireScript == nil || concurrencyReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireConcurrencyCap_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	_, err := AcquireConcurrencyCap(ctx, nil, "k", 1, time.Second)
	assert.Error(t, err)

	err = ReleaseConcurrencyCap(ctx, nil, "k")
	assert.Error(t, err)
}

func TestConcurrencyCap_Key(t *testing.T) {
	c := NewConcurrencyCap(nil, "audio-proxy:", 4, time.Minute)
	assert.Equal(t, "audio-proxy:10.0.0.7", c.Key("10.0.0.7"))
	assert.Equal(t, "audio-proxy:unknown", c.Key(""))
}

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.PingTimeout)
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	_, err := OpenRedis(context.Background(), RedisConfig{})
	assert.EqualError(t, err, "redis addr is required")
}
