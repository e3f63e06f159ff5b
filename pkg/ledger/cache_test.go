package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingFetcher struct {
	calls int
	data  map[pda.PublicKey][]byte
}

func (c *countingFetcher) FetchAccount(_ context.Context, addr pda.PublicKey) ([]byte, error) {
	c.calls++
	d, ok := c.data[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return d, nil
}

func TestCachedFetcher_ReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	next := &countingFetcher{data: map[pda.PublicKey][]byte{testAddr: {1, 2, 3}}}
	c := NewCachedFetcher(next, rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.FetchAccount(ctx, testAddr)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Minute, rdb.ttls["sator:account:"+testAddr.String()])

	require.NoError(t, c.Invalidate(ctx, testAddr))
	_, err := c.FetchAccount(ctx, testAddr)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedFetcher_AbsenceNotCached(t *testing.T) {
	rdb := newFakeRedis()
	next := &countingFetcher{data: map[pda.PublicKey][]byte{}}
	c := NewCachedFetcher(next, rdb, 0)

	for i := 0; i < 2; i++ {
		_, err := c.FetchAccount(context.Background(), testAddr)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, rdb.data)
}

func TestCachedFetcher_DegradesOnCacheError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failGet = true
	next := &countingFetcher{data: map[pda.PublicKey][]byte{testAddr: {4}}}
	c := NewCachedFetcher(next, rdb, time.Second)

	got, err := c.FetchAccount(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, got)
}
