package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	var counter int64
	seen := make([]int32, 1000)
	err := For(context.Background(), len(seen), cfg, func(i int) error {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), counter)
	for i, s := range seen {
		assert.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	err := For(context.Background(), 5, Config{Enabled: false}, func(i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_Error(t *testing.T) {
	boom := errors.New("boom")
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}
	err := For(context.Background(), 30, cfg, func(i int) error {
		if i == 17 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := For(ctx, 10, Config{}, func(int) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestChunks_CoverRange(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}

	var mu sync.Mutex
	covered := make([]int, 10)
	workers := map[int]bool{}
	err := Chunks(context.Background(), 10, cfg, func(_ context.Context, w, start, end int) error {
		mu.Lock()
		defer mu.Unlock()
		workers[w] = true
		for i := start; i < end; i++ {
			covered[i]++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, workers)
	for i, c := range covered {
		assert.Equal(t, 1, c, "index %d", i)
	}
}

func TestConfig_Workers(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		n    int
		want int
	}{
		{"disabled", Config{Enabled: false, NumWorkers: 8}, 100, 1},
		{"one worker", Config{Enabled: true, NumWorkers: 1}, 100, 1},
		{"capped by workers", Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}, 100, 4},
		{"capped by chunk size", Config{Enabled: true, NumWorkers: 8, MinChunkSize: 16}, 40, 2},
		{"too small", Config{Enabled: true, NumWorkers: 8, MinChunkSize: 16}, 20, 1},
		{"single item", Config{Enabled: true, NumWorkers: 8}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Workers(tt.n))
		})
	}
}

func TestChunks_Empty(t *testing.T) {
	err := Chunks(context.Background(), 0, DefaultConfig(), func(context.Context, int, int, int) error {
		t.Fatal("called for empty range")
		return nil
	})
	assert.NoError(t, err)
}
