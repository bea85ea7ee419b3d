package collective

import (
	"context"

	"go.uber.org/zap"

	"phredavg/internal/backend"
	"phredavg/internal/chunk"
	"phredavg/internal/phred"
)

// Backend runs tasks across a scatter/gather world of P participants.
// All the work happens in Collect.
type Backend struct {
	p     int
	proc  backend.Processor
	log   *zap.Logger
	tasks []chunk.Task
}

var _ backend.Backend = (*Backend)(nil)

func New(p int, proc backend.Processor, log *zap.Logger) *Backend {
	if p < 1 {
		p = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{p: p, proc: proc, log: log}
}

func (b *Backend) Submit(_ context.Context, tasks []chunk.Task) error {
	b.tasks = tasks
	return nil
}

// Collect scatters the task groups, lets every participant process its
// group in order, and gathers the results on the root.
func (b *Backend) Collect(ctx context.Context) ([]phred.Result, error) {
	world := NewWorld[[]chunk.Task, []phred.Result](b.p)
	var gathered [][]phred.Result
	err := world.Run(ctx, func(ctx context.Context, c *Comm[[]chunk.Task, []phred.Result]) error {
		var groups [][]chunk.Task
		if c.Rank() == Root {
			groups = Groups(b.tasks, c.Size())
			b.log.Debug("scattering task groups", zap.Int("participants", c.Size()), zap.Int("tasks", len(b.tasks)))
		}
		mine, err := c.Scatter(ctx, groups)
		if err != nil {
			return err
		}
		results := make([]phred.Result, 0, len(mine))
		for _, t := range mine {
			if err := ctx.Err(); err != nil {
				return err
			}
			part, err := b.proc.Process(ctx, t)
			if err != nil {
				return err
			}
			results = append(results, phred.Result{Task: t, Partial: part})
		}
		b.log.Debug("participant done", zap.Int("rank", c.Rank()), zap.Int("tasks", len(mine)))
		all, err := c.Gather(ctx, results)
		if err != nil {
			return err
		}
		if c.Rank() == Root {
			gathered = all
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return phred.Flatten(gathered), nil
}

func (b *Backend) Shutdown(context.Context) error { return nil }
