// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phredavg/internal/cli"
	"phredavg/internal/cmdutil"
	"phredavg/internal/errors"
	"phredavg/internal/version"
	"phredavg/internal/writers"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitRuntime   = 3
	ExitCancelled = 130
)

// env is what every subcommand runs against.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	global cli.Global
	cfg    cli.Config
	log    *zap.Logger
}

func newRoot(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "phredavg",
		Short:         "Per-position average Phred quality of FASTQ reads, computed in parallel",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cli.Usagef("unknown command %q", args[0])
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig(e.global.ConfigFile)
			if err != nil {
				return err
			}
			if err := cfg.Apply(cmd.Flags()); err != nil {
				return err
			}
			e.cfg = cfg
			e.log = cmdutil.NewLogger(e.stderr, e.global.Verbose, e.global.Quiet)
			return nil
		},
	}
	root.SetVersionTemplate("phredavg version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cli.UsageError{Err: err}
	})
	root.SetIn(e.stdin)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	cli.BindGlobal(root.PersistentFlags(), &e.global)

	root.AddCommand(
		localCmd(e),
		serveCmd(e),
		workerCmd(e),
		collectiveCmd(e),
		chunkCmd(e),
		mergeCmd(e),
	)
	return root
}

// RunIO executes argv with explicit standard streams and returns the exit
// code.
func RunIO(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	e := &env{stdin: stdin, stdout: outw, stderr: stderr, log: zap.NewNop()}
	root := newRoot(e)
	root.SetArgs(argv)

	cmd, err := root.ExecuteContextC(ctx)
	if ferr := outw.Flush(); err == nil {
		err = ferr
	}
	code := ExitCode(err)
	if code != ExitOK && code != ExitCancelled {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		var ue *cli.UsageError
		if errors.As(err, &ue) && cmd != nil {
			_, _ = fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		}
	}
	return code
}

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	return RunIO(parent, argv, os.Stdin, stdout, stderr)
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// ExitCode maps a run's error to the process exit code.
func ExitCode(err error) int {
	var (
		ue  *cli.UsageError
		fae *errors.FileAccessError
	)
	switch {
	case err == nil:
		return ExitOK
	case writers.IsBrokenPipe(err):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.As(err, &ue), errors.As(err, &fae):
		return ExitUsage
	default:
		return ExitRuntime
	}
}
