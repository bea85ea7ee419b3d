package cli

import "github.com/spf13/pflag"

// BindGlobal registers the flags shared by every command.
func BindGlobal(fs *pflag.FlagSet, g *Global) {
	fs.StringVar(&g.ConfigFile, "config", "", "YAML config file supplying flag defaults")
	fs.StringVar(&g.Secret, "secret", "", "shared secret for the networked queues (default $"+SecretEnv+")")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "debug logging")
	fs.BoolVarP(&g.Quiet, "quiet", "q", false, "warnings and errors only")
}

func BindLocal(fs *pflag.FlagSet, o *Local) {
	fs.IntVarP(&o.Workers, "workers", "n", 0, "worker goroutines (0 = all CPUs)")
	fs.IntVar(&o.Chunks, "chunks", 0, "chunks per file (0 = one per worker)")
	fs.StringVarP(&o.Output, "output", "o", "", "CSV output file (default: console)")
	fs.IntVar(&o.BufferSize, "buffer-size", 0, "read buffer in bytes (0 = 1 MiB)")
}

func bindAddr(fs *pflag.FlagSet, host *string, port *int) {
	fs.StringVar(host, "host", DefaultHost, "coordinator host")
	fs.IntVar(port, "port", DefaultPort, "coordinator port")
}

func BindServe(fs *pflag.FlagSet, o *Serve) {
	bindAddr(fs, &o.Host, &o.Port)
	fs.IntVar(&o.Chunks, "chunks", 1, "chunks (jobs) per file")
	fs.StringVarP(&o.Output, "output", "o", "", "CSV output file (default: console)")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.DurationVar(&o.PollInterval, "poll-interval", DefaultPollInterval, "result queue polling backoff")
	fs.DurationVar(&o.Grace, "grace", DefaultGrace, "time workers get to see the poison pill before shutdown")
	fs.DurationVar(&o.LeaseTimeout, "lease-timeout", DefaultLeaseTimeout, "requeue a job whose worker has not answered after this long")
}

func BindWorker(fs *pflag.FlagSet, o *Worker) {
	bindAddr(fs, &o.Host, &o.Port)
	fs.IntVarP(&o.Workers, "workers", "n", 0, "worker goroutines (0 = all CPUs)")
	fs.DurationVar(&o.Backoff, "backoff", DefaultBackoff, "sleep after an empty job poll")
	fs.IntVar(&o.BufferSize, "buffer-size", 0, "read buffer in bytes (0 = 1 MiB)")
}

func BindCollective(fs *pflag.FlagSet, o *Collective) {
	fs.IntVarP(&o.Participants, "participants", "p", 1, "participants in the world")
	fs.IntVar(&o.Chunks, "chunks", 0, "chunks per file (0 = one per participant)")
	fs.StringVarP(&o.Output, "output", "o", "", "CSV output file (default: console)")
	fs.IntVar(&o.BufferSize, "buffer-size", 0, "read buffer in bytes (0 = 1 MiB)")
}

func BindChunk(fs *pflag.FlagSet, o *Chunk) {
	fs.Int64Var(&o.Start, "start", 0, "first byte of the chunk")
	fs.Int64Var(&o.End, "end", -1, "end of the chunk, exclusive (-1 = end of file)")
	fs.IntVar(&o.BufferSize, "buffer-size", 0, "read buffer in bytes (0 = 1 MiB)")
}

func BindMerge(fs *pflag.FlagSet, o *Merge) {
	fs.StringVarP(&o.Output, "output", "o", "", "CSV output file (default: console)")
}
