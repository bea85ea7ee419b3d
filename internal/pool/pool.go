// internal/pool/pool.go
package pool

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phredavg/internal/backend"
	"phredavg/internal/chunk"
	"phredavg/internal/errors"
	"phredavg/internal/phred"
)

// Config controls the pool.
type Config struct {
	Workers int // number of worker goroutines (>=1)
}

// Pool is the local worker-pool backend.
type Pool struct {
	cfg  Config
	proc backend.Processor
	log  *zap.Logger

	tasks []chunk.Task
}

var _ backend.Backend = (*Pool)(nil)

func New(cfg Config, proc backend.Processor, log *zap.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{cfg: cfg, proc: proc, log: log}
}

// Submit records the tasks; they start running in Collect.
func (p *Pool) Submit(_ context.Context, tasks []chunk.Task) error {
	if p.tasks != nil {
		return errors.New("pool: tasks already submitted")
	}
	p.tasks = append([]chunk.Task{}, tasks...)
	return nil
}

// Collect runs every submitted task and blocks until all are done. The
// first processing error cancels the tasks not yet started.
func (p *Pool) Collect(ctx context.Context) ([]phred.Result, error) {
	return ForEachTask(ctx, p.cfg, p.proc, p.log, p.tasks)
}

func (p *Pool) Shutdown(context.Context) error { return nil }

// ForEachTask feeds tasks to cfg.Workers goroutines and returns one result
// per task in completion order.
func ForEachTask(ctx context.Context, cfg Config, proc backend.Processor, log *zap.Logger, tasks []chunk.Task) ([]phred.Result, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	jobs := make(chan chunk.Task, cfg.Workers*2)
	results := make(chan phred.Result, cfg.Workers*2)

	eg, ctx := errgroup.WithContext(ctx)

	// Workers
	for w := 0; w < cfg.Workers; w++ {
		eg.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case t, ok := <-jobs:
					if !ok {
						return nil
					}
					part, err := proc.Process(ctx, t)
					if err != nil {
						return err
					}
					log.Debug("chunk done",
						zap.Int("worker", w),
						zap.Stringer("task", t),
						zap.Int64("records", part.Records))
					select {
					case results <- phred.Result{Task: t, Partial: part}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		})
	}

	// Feed work
	eg.Go(func() error {
		defer close(jobs)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- t:
			}
		}
		return nil
	})

	// Collector
	out := make([]phred.Result, 0, len(tasks))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			out = append(out, r)
		}
	}()

	err := eg.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}
	return out, nil
}
