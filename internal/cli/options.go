// internal/cli/options.go
package cli

import (
	"net"
	"os"
	"strconv"
	"time"

	"phredavg/internal/errors"
)

// SecretEnv supplies the shared secret when --secret is not given.
const SecretEnv = "PHREDAVG_SECRET"

// Defaults for the networked backend.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 50000
	DefaultBackoff      = time.Second
	DefaultPollInterval = time.Second
	DefaultGrace        = 5 * time.Second
	DefaultLeaseTimeout = 5 * time.Minute
)

// UsageError is a bad invocation: unknown flag, missing argument, bad
// value. The command exits 2.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef builds a UsageError.
func Usagef(format string, a ...any) error {
	return &UsageError{Err: errors.Errorf(format, a...)}
}

// Global holds the flags every command accepts.
type Global struct {
	ConfigFile string
	Secret     string
	Verbose    bool
	Quiet      bool
}

// ResolveSecret returns the --secret value, else $PHREDAVG_SECRET, else
// the config file's secret.
func (g Global) ResolveSecret(cfg Config) ([]byte, error) {
	s := g.Secret
	if s == "" {
		s = os.Getenv(SecretEnv)
	}
	if s == "" {
		s = cfg.Secret
	}
	if s == "" {
		return nil, Usagef("a shared secret is required (--secret or $%s)", SecretEnv)
	}
	return []byte(s), nil
}

// Local configures `phredavg local`.
type Local struct {
	Workers    int
	Chunks     int
	Output     string
	BufferSize int
	Files      []string
}

func (o Local) Validate() error {
	if o.Workers < 0 {
		return Usagef("-n/--workers must be >= 0")
	}
	if o.Chunks < 0 {
		return Usagef("--chunks must be >= 0")
	}
	if o.BufferSize < 0 {
		return Usagef("--buffer-size must be >= 0")
	}
	return requireFiles(o.Files)
}

// Serve configures `phredavg serve`.
type Serve struct {
	Host         string
	Port         int
	Chunks       int
	Output       string
	MetricsAddr  string
	PollInterval time.Duration
	Grace        time.Duration
	LeaseTimeout time.Duration
	Files        []string
}

func (o Serve) Addr() string { return net.JoinHostPort(o.Host, strconv.Itoa(o.Port)) }

func (o Serve) Validate() error {
	if err := validatePort(o.Port); err != nil {
		return err
	}
	if o.Chunks < 1 {
		return Usagef("--chunks must be >= 1")
	}
	if o.PollInterval <= 0 || o.Grace < 0 || o.LeaseTimeout <= 0 {
		return Usagef("--poll-interval and --lease-timeout must be > 0, --grace >= 0")
	}
	return requireFiles(o.Files)
}

// Worker configures `phredavg worker`.
type Worker struct {
	Host       string
	Port       int
	Workers    int
	Backoff    time.Duration
	BufferSize int
}

func (o Worker) Addr() string { return net.JoinHostPort(o.Host, strconv.Itoa(o.Port)) }

func (o Worker) Validate() error {
	if err := validatePort(o.Port); err != nil {
		return err
	}
	if o.Workers < 0 {
		return Usagef("-n/--workers must be >= 0")
	}
	if o.Backoff <= 0 {
		return Usagef("--backoff must be > 0")
	}
	return nil
}

// Collective configures `phredavg collective`.
type Collective struct {
	Participants int
	Chunks       int
	Output       string
	BufferSize   int
	Files        []string
}

func (o Collective) Validate() error {
	if o.Participants < 1 {
		return Usagef("-p/--participants must be >= 1")
	}
	if o.Chunks < 0 {
		return Usagef("--chunks must be >= 0")
	}
	return requireFiles(o.Files)
}

// Chunk configures `phredavg chunk`. End < 0 means end of file.
type Chunk struct {
	Start      int64
	End        int64
	BufferSize int
	File       string
}

func (o Chunk) Validate() error {
	if o.Start < 0 {
		return Usagef("--start must be >= 0")
	}
	if o.End >= 0 && o.End < o.Start {
		return Usagef("--end (%d) is before --start (%d)", o.End, o.Start)
	}
	if o.File == "-" && (o.Start != 0 || o.End >= 0) {
		return Usagef("--start/--end need a seekable file, not stdin")
	}
	return nil
}

// Merge configures `phredavg merge`.
type Merge struct {
	Output string
	Files  []string
}

func requireFiles(files []string) error {
	if len(files) == 0 {
		return Usagef("at least one input FILE is required")
	}
	return nil
}

func validatePort(p int) error {
	if p < 0 || p > 65535 {
		return Usagef("invalid --port %d", p)
	}
	return nil
}
