package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector"
	"github.com/autoschematic-sh/autoschematic/internal/keystore"
)

type countingConnector struct {
	connector.Null
	filterCalls int32
}

func (c *countingConnector) Filter(ctx context.Context, addr string) (connector.FilterResponse, error) {
	atomic.AddInt32(&c.filterCalls, 1)
	return connector.FilterResource, nil
}

func countingSpawner(count *int32) Spawner {
	return func(ctx context.Context, shortname string, spec config.Spec, prefix string, env map[string]string, ks keystore.KeyStore) (connector.Connector, error) {
		atomic.AddInt32(count, 1)
		return &countingConnector{}, nil
	}
}

func TestGetOrSpawnSpawnsOnce(t *testing.T) {
	var count int32
	c := New(countingSpawner(&count), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := c.GetOrSpawn(context.Background(), "aws", config.Spec{}, "aws", nil, false)
			require.NoError(t, err)
			require.NotNil(t, conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&count), "spawn must run exactly once regardless of concurrent callers")
}

func TestFilterCachedMemoizes(t *testing.T) {
	var count int32
	c := New(countingSpawner(&count), nil, nil)
	conn := &countingConnector{}

	resp, err := c.FilterCached(context.Background(), conn, "aws", "aws", "aws/vpc/main.ron")
	require.NoError(t, err)
	assert.Equal(t, connector.FilterResource, resp)

	resp, err = c.FilterCached(context.Background(), conn, "aws", "aws", "aws/vpc/main.ron")
	require.NoError(t, err)
	assert.Equal(t, connector.FilterResource, resp)
	assert.Equal(t, int32(1), atomic.LoadInt32(&conn.filterCalls), "second call must hit the cache, not the connector")
}

func TestInvalidateFilterForcesRecompute(t *testing.T) {
	var count int32
	c := New(countingSpawner(&count), nil, nil)
	conn := &countingConnector{}

	_, err := c.FilterCached(context.Background(), conn, "aws", "aws", "aws/vpc/main.ron")
	require.NoError(t, err)

	c.InvalidateFilter("aws", "aws", "aws/vpc/main.ron")

	_, err = c.FilterCached(context.Background(), conn, "aws", "aws", "aws/vpc/main.ron")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&conn.filterCalls))
}

func TestEvictForcesRespawn(t *testing.T) {
	var count int32
	c := New(countingSpawner(&count), nil, nil)

	_, err := c.GetOrSpawn(context.Background(), "aws", config.Spec{}, "aws", nil, false)
	require.NoError(t, err)
	c.Evict("aws", "aws")
	_, err = c.GetOrSpawn(context.Background(), "aws", config.Spec{}, "aws", nil, false)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}
