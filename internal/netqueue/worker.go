// internal/netqueue/worker.go
package netqueue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phredavg/internal/backend"
	"phredavg/internal/errors"
	"phredavg/internal/queue"
)

// WorkerConfig tunes a peon.
type WorkerConfig struct {
	Backoff time.Duration // sleep after an empty poll; 0 = 1s
}

// Worker ("peon") pulls jobs from a coordinator until it sees the pill.
type Worker struct {
	name string
	cfg  WorkerConfig
	c    *Client
	proc backend.Processor
	log  *zap.Logger
}

func NewWorker(name string, cfg WorkerConfig, c *Client, proc backend.Processor, log *zap.Logger) *Worker {
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{name: name, cfg: cfg, c: c, proc: proc, log: log.With(zap.String("worker", name))}
}

// Run polls the job queue, processing each job to completion, until the
// poison pill arrives. It returns the number of jobs processed. Network
// and processing errors end the worker; its leased job is redelivered by
// the coordinator once the lease expires.
func (w *Worker) Run(ctx context.Context) (int, error) {
	done := 0
	for {
		env, err := w.c.GetJob(ctx)
		if err != nil {
			return done, err
		}
		switch env.Kind {
		case KindPill:
			if err := w.c.PutPill(ctx); err != nil {
				return done, err
			}
			w.log.Info("received poison pill, exiting", zap.Int("jobs", done))
			return done, nil
		case KindJob:
			if env.Job == nil {
				return done, errors.NewNetworkError("job_queue/get", w.c.Addr(), errors.New("job envelope without job"))
			}
			if err := w.runJob(ctx, *env.Job); err != nil {
				return done, err
			}
			done++
		default:
			if err := w.sleep(ctx); err != nil {
				return done, err
			}
		}
	}
}

func (w *Worker) runJob(ctx context.Context, j Job) error {
	w.log.Debug("working on job", zap.String("job", j.ID), zap.Stringer("task", j.Task))
	part, err := w.proc.Process(ctx, j.Task)
	if err != nil {
		return errors.Wrapf(err, "job %s", j.ID)
	}
	for {
		err := w.c.PutResult(ctx, Result{Job: j, Partial: part})
		if !errors.Is(err, queue.ErrFull) {
			return err
		}
		if err := w.sleep(ctx); err != nil {
			return err
		}
	}
}

func (w *Worker) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.cfg.Backoff):
		return nil
	}
}

// RunWorkers runs n peons against one coordinator and waits for all of
// them. A failing peon does not stop the others.
func RunWorkers(ctx context.Context, n int, cfg WorkerConfig, c *Client, proc backend.Processor, log *zap.Logger) (int, error) {
	if n < 1 {
		n = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	var eg errgroup.Group
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			w := NewWorker(fmt.Sprintf("peon-%d", i), cfg, c, proc, log)
			done, err := w.Run(ctx)
			counts[i] = done
			if err != nil {
				log.Error("worker failed", zap.String("worker", w.name), zap.Error(err))
			}
			return err
		})
	}
	log.Info("started workers", zap.Int("workers", n), zap.String("coordinator", c.Addr()))
	err := eg.Wait()
	total := 0
	for _, d := range counts {
		total += d
	}
	return total, err
}
