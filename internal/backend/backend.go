// Package backend defines how chunks reach processors and how their
// partials come back. The local pool, the networked queue and the
// collective all implement Backend; Run drives any of them.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"phredavg/internal/chunk"
	"phredavg/internal/errors"
	"phredavg/internal/phred"
)

// Processor is the minimal capability a backend needs to turn a task into
// a partial. *engine.Engine satisfies it; tests use fakes.
type Processor interface {
	Process(ctx context.Context, t chunk.Task) (*phred.Partial, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, t chunk.Task) (*phred.Partial, error)

func (f ProcessorFunc) Process(ctx context.Context, t chunk.Task) (*phred.Partial, error) {
	return f(ctx, t)
}

// Backend delivers tasks to processors and collects their partials.
// Submit is called once, then Collect once; Shutdown is always called,
// with the run's context, and must release resources even when that
// context is already cancelled.
type Backend interface {
	Submit(ctx context.Context, tasks []chunk.Task) error
	Collect(ctx context.Context) ([]phred.Result, error)
	Shutdown(ctx context.Context) error
}

// Run pushes tasks through b and merges the results per file. It fails
// unless every task produced exactly one result.
func Run(ctx context.Context, log *zap.Logger, b Backend, tasks []chunk.Task) (_ map[string]*phred.Final, retErr error) {
	defer func() {
		if err := b.Shutdown(ctx); err != nil && retErr == nil {
			retErr = err
		}
	}()
	if err := b.Submit(ctx, tasks); err != nil {
		return nil, err
	}
	results, err := b.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckComplete(tasks, results); err != nil {
		return nil, err
	}
	phred.SortResults(results)
	if log.Core().Enabled(zap.DebugLevel) {
		for _, r := range results {
			log.Debug("collected chunk",
				zap.Stringer("task", r.Task),
				zap.Int64("records", r.Partial.Records),
				zap.Int64("dropped", r.Partial.Dropped))
		}
	}
	var files []string
	seen := make(map[string]bool)
	for _, t := range tasks {
		if !seen[t.File] {
			seen[t.File] = true
			files = append(files, t.File)
		}
	}
	finals := phred.ByFile(files, results)
	for _, f := range files {
		log.Debug("merged file",
			zap.String("file", f),
			zap.Int("positions", finals[f].Len()),
			zap.Int64("records", finals[f].Records))
	}
	return finals, nil
}

type taskKey struct {
	file  string
	index int
}

// CheckComplete verifies results answer tasks one-to-one.
func CheckComplete(tasks []chunk.Task, results []phred.Result) error {
	want := make(map[taskKey]bool, len(tasks))
	for _, t := range tasks {
		want[taskKey{t.File, t.Index}] = false
	}
	for _, r := range results {
		k := taskKey{r.Task.File, r.Task.Index}
		done, ok := want[k]
		switch {
		case !ok:
			return errors.Errorf("result for unknown task %v", r.Task)
		case done:
			return errors.Errorf("duplicate result for task %v", r.Task)
		}
		if err := r.Partial.Validate(); err != nil {
			return errors.Wrapf(err, "task %v", r.Task)
		}
		want[k] = true
	}
	var missing []string
	for k, done := range want {
		if !done {
			missing = append(missing, fmt.Sprintf("%s#%d", k.file, k.index))
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("%d task(s) without result: %v", len(missing), missing)
	}
	return nil
}
