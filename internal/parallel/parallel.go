// Package parallel splits index ranges across worker goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of worker goroutines.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// Workers returns how many chunks Chunks will use for n items, at least 1.
func (c Config) Workers(n int) int {
	if !c.Enabled || c.NumWorkers <= 1 || n <= 1 {
		return 1
	}
	minChunk := max(c.MinChunkSize, 1)
	if n < 2*minChunk {
		return 1
	}
	return min(c.NumWorkers, n/minChunk)
}

// Chunks splits [0, n) into at most cfg.Workers(n) contiguous ranges and
// calls f(ctx, worker, start, end) for each, worker counting from 0. With a
// single chunk f runs on the calling goroutine.
//
// The first error cancels ctx for the other chunks and is returned.
func Chunks(ctx context.Context, n int, cfg Config, f func(ctx context.Context, worker, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers := cfg.Workers(n)
	if workers == 1 {
		return f(ctx, 0, 0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	size := n / workers
	extra := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		end := start + size
		if w < extra {
			end++
		}
		s := start
		g.Go(func() error {
			return f(gctx, w, s, end)
		})
		start = end
	}
	return g.Wait()
}

// For executes f(i) for i in [0, n), stopping at the first error or when ctx
// is cancelled. Falls back to sequential execution if parallelism is
// disabled or n is too small.
func For(ctx context.Context, n int, cfg Config, f func(i int) error) error {
	return Chunks(ctx, n, cfg, func(ctx context.Context, _, start, end int) error {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	})
}
