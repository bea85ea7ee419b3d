package app

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phredavg/internal/backend"
	"phredavg/internal/chunk"
	"phredavg/internal/cli"
	"phredavg/internal/cmdutil"
	"phredavg/internal/collective"
	"phredavg/internal/engine"
	"phredavg/internal/errors"
	"phredavg/internal/fastq"
	"phredavg/internal/netqueue"
	"phredavg/internal/output"
	"phredavg/internal/phred"
	"phredavg/internal/pool"
	"phredavg/internal/runutil"
)

func filesArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cli.Usagef("%s: at least one input FILE is required", cmd.Name())
	}
	return nil
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return cli.Usagef("%s: accepts at most %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// inputs drops repeated input paths with a warning.
func (e *env) inputs(args []string) []string {
	files, dups := chunk.Unique(args)
	for _, d := range dups {
		cmdutil.Warnf(e.stderr, e.global.Quiet, "ignoring repeated input %s", d)
	}
	return files
}

// plan partitions files and logs the layout.
func (e *env) plan(files []string, chunks int) ([]chunk.Task, error) {
	tasks, err := chunk.Tasks(files, chunks)
	if err != nil {
		return nil, err
	}
	e.log.Info("partitioned input",
		zap.Int("files", len(files)),
		zap.Int("chunks", len(tasks)),
		zap.String("bytes", humanize.Bytes(uint64(chunk.Total(tasks)))))
	return tasks, nil
}

func (e *env) render(out string, files []string, finals map[string]*phred.Final) error {
	for _, f := range files {
		if fin := finals[f]; fin != nil {
			e.log.Info("averaged",
				zap.String("file", f),
				zap.String("records", humanize.Comma(fin.Records)),
				zap.Int("positions", fin.Len()))
		}
	}
	return output.Render(e.stdout, out, files, finals)
}

func localCmd(e *env) *cobra.Command {
	var o cli.Local
	cmd := &cobra.Command{
		Use:   "local [-n N] [--chunks K] [-o out.csv] FILE...",
		Short: "Average on this machine with a pool of N workers",
		Args:  filesArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Files = e.inputs(args)
			if err := o.Validate(); err != nil {
				return err
			}
			workers := runutil.EffectiveWorkers(o.Workers)
			tasks, err := e.plan(o.Files, runutil.EffectiveChunks(o.Chunks, workers))
			if err != nil {
				return err
			}
			eng := engine.New(engine.Config{BufferSize: o.BufferSize})
			finals, err := backend.Run(cmd.Context(), e.log, pool.New(pool.Config{Workers: workers}, eng, e.log), tasks)
			if err != nil {
				return err
			}
			return e.render(o.Output, o.Files, finals)
		},
	}
	cli.BindLocal(cmd.Flags(), &o)
	return cmd
}

func serveCmd(e *env) *cobra.Command {
	var o cli.Serve
	cmd := &cobra.Command{
		Use:   "serve [--host H] [--port P] [--chunks K] [-o out.csv] FILE...",
		Short: "Coordinate remote workers through the job and result queues",
		Args:  filesArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Files = e.inputs(args)
			if err := o.Validate(); err != nil {
				return err
			}
			secret, err := e.global.ResolveSecret(e.cfg)
			if err != nil {
				return err
			}
			tasks, err := e.plan(o.Files, o.Chunks)
			if err != nil {
				return err
			}
			coord, err := netqueue.NewCoordinator(netqueue.Config{
				Addr:         o.Addr(),
				Secret:       secret,
				PollInterval: o.PollInterval,
				Grace:        o.Grace,
				LeaseTimeout: o.LeaseTimeout,
				MetricsAddr:  o.MetricsAddr,
			}, e.log)
			if err != nil {
				return err
			}
			finals, err := backend.Run(cmd.Context(), e.log, coord, tasks)
			if err != nil {
				return err
			}
			return e.render(o.Output, o.Files, finals)
		},
	}
	cli.BindServe(cmd.Flags(), &o)
	return cmd
}

func workerCmd(e *env) *cobra.Command {
	var o cli.Worker
	cmd := &cobra.Command{
		Use:   "worker [--host H] [--port P] [-n N]",
		Short: "Run N workers against a coordinator until it sends the poison pill",
		Args:  maxArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			secret, err := e.global.ResolveSecret(e.cfg)
			if err != nil {
				return err
			}
			client, err := netqueue.NewClient(o.Addr(), secret)
			if err != nil {
				return err
			}
			eng := engine.New(engine.Config{BufferSize: o.BufferSize})
			n, err := netqueue.RunWorkers(cmd.Context(), runutil.EffectiveWorkers(o.Workers),
				netqueue.WorkerConfig{Backoff: o.Backoff}, client, eng, e.log)
			e.log.Info("workers finished", zap.Int("jobs", n))
			return err
		},
	}
	cli.BindWorker(cmd.Flags(), &o)
	return cmd
}

func collectiveCmd(e *env) *cobra.Command {
	var o cli.Collective
	cmd := &cobra.Command{
		Use:   "collective [-p P] [--chunks K] [-o out.csv] FILE...",
		Short: "Scatter chunks across P participants and gather their partials",
		Args:  filesArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Files = e.inputs(args)
			if err := o.Validate(); err != nil {
				return err
			}
			tasks, err := e.plan(o.Files, runutil.EffectiveChunks(o.Chunks, o.Participants))
			if err != nil {
				return err
			}
			eng := engine.New(engine.Config{BufferSize: o.BufferSize})
			finals, err := backend.Run(cmd.Context(), e.log, collective.New(o.Participants, eng, e.log), tasks)
			if err != nil {
				return err
			}
			return e.render(o.Output, o.Files, finals)
		},
	}
	cli.BindCollective(cmd.Flags(), &o)
	return cmd
}

func chunkCmd(e *env) *cobra.Command {
	var o cli.Chunk
	cmd := &cobra.Command{
		Use:   "chunk [--start S] [--end E] [FILE|-]",
		Short: "Print one chunk's partial sums as a JSON line",
		Long: "Process the records whose headers start in [start, end) and print their\n" +
			"per-position sums and counts. The output of several chunk runs can be\n" +
			"combined with merge.",
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.File = "-"
			if len(args) == 1 {
				o.File = args[0]
			}
			if err := o.Validate(); err != nil {
				return err
			}
			eng := engine.New(engine.Config{BufferSize: o.BufferSize})
			var (
				part *phred.Partial
				err  error
			)
			if o.File == "-" {
				part, err = eng.ProcessReader(e.stdinOr(cmd))
			} else {
				var d chunk.Descriptor
				if d, err = e.descriptor(o); err != nil {
					return err
				}
				part, err = eng.Process(cmd.Context(), chunk.Task{File: o.File, Desc: d})
			}
			if err != nil {
				return err
			}
			if part.Dropped > 0 {
				e.log.Warn("dropped malformed records", zap.String("file", o.File), zap.Int64("dropped", part.Dropped))
			}
			return output.WritePartial(e.stdout, part)
		},
	}
	cli.BindChunk(cmd.Flags(), &o)
	return cmd
}

func (e *env) stdinOr(cmd *cobra.Command) io.Reader {
	if e.stdin != nil {
		return e.stdin
	}
	return cmd.InOrStdin()
}

func (e *env) descriptor(o cli.Chunk) (chunk.Descriptor, error) {
	fi, err := os.Stat(o.File)
	if err != nil {
		return chunk.Descriptor{}, errors.NewFileAccessError(o.File, err)
	}
	if !chunk.Splittable(o.File) && o.Start > 0 {
		return chunk.Descriptor{}, cli.Usagef("%s cannot be read from an offset", o.File)
	}
	end := o.End
	if end < 0 || end > fi.Size() {
		end = fi.Size()
	}
	start := o.Start
	if start > end {
		start = end
	}
	return chunk.Descriptor{Start: start, End: end}, nil
}

func mergeCmd(e *env) *cobra.Command {
	var o cli.Merge
	cmd := &cobra.Command{
		Use:   "merge [-o out.csv] [FILE|-]...",
		Short: "Merge partials printed by chunk and print the averages",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Files = args
			if len(o.Files) == 0 {
				o.Files = []string{"-"}
			}
			var parts []*phred.Partial
			for _, fn := range o.Files {
				ps, err := e.readPartials(cmd, fn)
				if err != nil {
					return err
				}
				parts = append(parts, ps...)
			}
			final := phred.Finalize(phred.Merge(parts...))
			e.log.Info("merged partials", zap.Int("partials", len(parts)))
			const name = "merged"
			return e.render(o.Output, []string{name}, map[string]*phred.Final{name: final})
		},
	}
	cli.BindMerge(cmd.Flags(), &o)
	return cmd
}

func (e *env) readPartials(cmd *cobra.Command, fn string) ([]*phred.Partial, error) {
	if fn == "-" {
		return phred.DecodePartials(e.stdinOr(cmd))
	}
	rc, err := fastq.Open(fn)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	ps, err := phred.DecodePartials(rc)
	return ps, errors.Wrapf(err, "%s", fn)
}
