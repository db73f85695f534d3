package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// WorkerPool runs settlement tasks on a bounded ants pool
type WorkerPool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPool{
		pool:   pool,
		logger: logger,
	}, nil
}

var _ TaskRunner = (*WorkerPool)(nil)

// RunAll submits every task and waits for all of them. A task the pool
// refuses runs on the calling goroutine.
func (p *WorkerPool) RunAll(ctx context.Context, tasks []func(ctx context.Context)) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	for _, task := range tasks {
		task := task
		err := p.pool.Submit(func() {
			defer wg.Done()
			task(ctx)
		})
		if err != nil {
			p.logger.Warn("Worker pool rejected task, running inline", "error", err)
			task(ctx)
			wg.Done()
		}
	}

	wg.Wait()
}

// Shutdown gracefully shuts down the worker pool.
func (p *WorkerPool) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *WorkerPool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *WorkerPool) Capacity() int {
	return p.pool.Cap()
}

// InlineRunner runs tasks one after another on the calling goroutine
type InlineRunner struct{}

func (InlineRunner) RunAll(ctx context.Context, tasks []func(ctx context.Context)) {
	for _, task := range tasks {
		task(ctx)
	}
}
