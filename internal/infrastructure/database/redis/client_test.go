package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
)

func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newMiniClient(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "famscope:family:patent_family", client.Key("family", "patent_family"))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}
	client, err := NewClient(cfg, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewClient_NilConfig(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)
}

func TestClient_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"}, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "test:lock:x", client.Key("lock", "x"))
}

func TestClient_Close(t *testing.T) {
	client, _ := newMiniClient(t)
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second close is a no-op")
	assert.ErrorIs(t, client.Ping(context.Background()), ErrClientClosed)
}

//Personal.AI order the ending
