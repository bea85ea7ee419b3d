package collective

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"phredavg/internal/backend"
	"phredavg/internal/chunk"
	"phredavg/internal/engine"
	"phredavg/internal/errors"
	"phredavg/internal/phred"
	"phredavg/internal/testutil"
)

func TestGroups(t *testing.T) {
	sizes := func(gs [][]int) []int {
		var out []int
		for _, g := range gs {
			out = append(out, len(g))
		}
		return out
	}
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	require.Equal(t, []int{4, 3, 3}, sizes(Groups(items, 3)))
	require.Equal(t, []int{1, 1, 0, 0}, sizes(Groups(items[:2], 4)))
	require.Equal(t, []int{10}, sizes(Groups(items, 1)))
	require.Equal(t, []int{0, 0}, sizes(Groups([]int(nil), 2)))

	var flat []int
	for _, g := range Groups(items, 4) {
		flat = append(flat, g...)
	}
	require.Equal(t, items, flat)
}

func TestScatterGather(t *testing.T) {
	w := NewWorld[int, int](4)
	var got []int
	err := w.Run(context.Background(), func(ctx context.Context, c *Comm[int, int]) error {
		var parts []int
		if c.Rank() == Root {
			parts = []int{10, 11, 12, 13}
		}
		v, err := c.Scatter(ctx, parts)
		if err != nil {
			return err
		}
		all, err := c.Gather(ctx, v*2)
		if err != nil {
			return err
		}
		if c.Rank() == Root {
			got = all
		} else if all != nil {
			return errors.New("non-root received gather output")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{20, 22, 24, 26}, got)
}

func TestSlowRankHoldsEveryoneAtScatterAndGather(t *testing.T) {
	const slow = 1
	var atScatter, atGather atomic.Bool
	w := NewWorld[int, int](3)
	err := w.Run(context.Background(), func(ctx context.Context, c *Comm[int, int]) error {
		var parts []int
		if c.Rank() == Root {
			parts = []int{0, 1, 2}
		}
		if c.Rank() == slow {
			time.Sleep(100 * time.Millisecond)
			atScatter.Store(true)
		}
		v, err := c.Scatter(ctx, parts)
		if err != nil {
			return err
		}
		if !atScatter.Load() {
			return errors.Errorf("rank %d left scatter before rank %d entered it", c.Rank(), slow)
		}
		if c.Rank() == slow {
			time.Sleep(100 * time.Millisecond)
			atGather.Store(true)
		}
		if _, err := c.Gather(ctx, v); err != nil {
			return err
		}
		if !atGather.Load() {
			return errors.Errorf("rank %d left gather before rank %d entered it", c.Rank(), slow)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestParticipantFailureAbortsWorld(t *testing.T) {
	boom := errors.New("boom")
	w := NewWorld[int, int](3)
	err := w.Run(context.Background(), func(ctx context.Context, c *Comm[int, int]) error {
		var parts []int
		if c.Rank() == Root {
			parts = []int{0, 1, 2}
		}
		v, err := c.Scatter(ctx, parts)
		if err != nil {
			return err
		}
		if v == 2 {
			return boom
		}
		// ranks 0 and 1 block here until the world is cancelled
		_, err = c.Gather(ctx, v)
		if c.Rank() != Root {
			<-ctx.Done()
			return ctx.Err()
		}
		return err
	})
	var pf *errors.ParticipantFailure
	require.ErrorAs(t, err, &pf)
	require.Equal(t, 2, pf.Rank)
	require.ErrorIs(t, err, boom)
}

func TestRootFailureBeforeScatter(t *testing.T) {
	w := NewWorld[int, int](3)
	err := w.Run(context.Background(), func(ctx context.Context, c *Comm[int, int]) error {
		if c.Rank() == Root {
			return errors.New("no input")
		}
		_, err := c.Scatter(ctx, nil)
		return err
	})
	var pf *errors.ParticipantFailure
	require.ErrorAs(t, err, &pf)
	require.Equal(t, Root, pf.Rank)
}

func TestBackendMatchesSingleChunk(t *testing.T) {
	reads := testutil.RandomReads(3, 90, 20)
	fn := testutil.WriteFile(t, "coll.fq", testutil.Format(reads))
	log := zaptest.NewLogger(t)
	eng := engine.New(engine.Config{})

	for _, p := range []int{1, 3, 7} {
		tasks, err := chunk.Tasks([]string{fn}, 5)
		require.NoError(t, err)
		got, err := backend.Run(context.Background(), log, New(p, eng, log), tasks)
		require.NoError(t, err, "p=%d", p)
		require.Equal(t, testutil.Means(reads), got[fn].Mean, "p=%d", p)
		require.Equal(t, int64(len(reads)), got[fn].Records)
	}
}

func TestBackendNoPartialResultOnFailure(t *testing.T) {
	fake := backend.ProcessorFunc(func(_ context.Context, t chunk.Task) (*phred.Partial, error) {
		if t.Index == 4 {
			return nil, errors.New("bad chunk")
		}
		return phred.NewPartial(), nil
	})
	var tasks []chunk.Task
	for i := 0; i < 6; i++ {
		tasks = append(tasks, chunk.Task{File: "f", Index: i})
	}
	got, err := backend.Run(context.Background(), zaptest.NewLogger(t), New(3, fake, nil), tasks)
	require.Nil(t, got)
	var pf *errors.ParticipantFailure
	require.ErrorAs(t, err, &pf)
	// Groups of 2: task 4 belongs to rank 2.
	require.Equal(t, 2, pf.Rank)
}
