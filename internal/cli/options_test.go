// internal/cli/options_test.go
package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"phredavg/internal/errors"
)

func newFS() *pflag.FlagSet { return pflag.NewFlagSet("test", pflag.ContinueOnError) }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "phredavg.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(body), 0o644))
	return fn
}

func TestServeDefaults(t *testing.T) {
	var o Serve
	fs := newFS()
	BindServe(fs, &o)
	require.NoError(t, fs.Parse([]string{"--chunks", "4", "a.fq"}))
	o.Files = fs.Args()
	require.NoError(t, o.Validate())
	require.Equal(t, "127.0.0.1:50000", o.Addr())
	require.Equal(t, DefaultLeaseTimeout, o.LeaseTimeout)
	require.Equal(t, DefaultGrace, o.Grace)
}

func TestValidateRejects(t *testing.T) {
	var ue *UsageError
	require.ErrorAs(t, Local{Workers: -1, Files: []string{"a"}}.Validate(), &ue)
	require.ErrorAs(t, Local{}.Validate(), &ue)
	require.ErrorAs(t, Serve{Port: 70000, Chunks: 1, PollInterval: 1, LeaseTimeout: 1, Files: []string{"a"}}.Validate(), &ue)
	require.ErrorAs(t, Serve{Chunks: 0, PollInterval: 1, LeaseTimeout: 1, Files: []string{"a"}}.Validate(), &ue)
	require.ErrorAs(t, Collective{Participants: 0, Files: []string{"a"}}.Validate(), &ue)
	require.ErrorAs(t, Worker{Backoff: 0}.Validate(), &ue)
	require.ErrorAs(t, Chunk{Start: 10, End: 5}.Validate(), &ue)
	require.ErrorAs(t, Chunk{Start: 1, End: -1, File: "-"}.Validate(), &ue)
	require.NoError(t, Chunk{End: -1, File: "-"}.Validate())
}

func TestConfigFillsUnsetFlags(t *testing.T) {
	fn := writeConfig(t, "host: 10.0.0.5\nport: 6000\nchunks: 3\nlease-timeout: 90s\ngrace: 2s\n")
	cfg, err := LoadConfig(fn)
	require.NoError(t, err)

	var o Serve
	fs := newFS()
	BindServe(fs, &o)
	require.NoError(t, fs.Parse([]string{"--port", "7000", "x.fq"}))
	require.NoError(t, cfg.Apply(fs))

	require.Equal(t, "10.0.0.5", o.Host)
	require.Equal(t, 7000, o.Port, "flag wins over config")
	require.Equal(t, 3, o.Chunks)
	require.Equal(t, 90*time.Second, o.LeaseTimeout)
	require.Equal(t, 2*time.Second, o.Grace)
}

func TestConfigIgnoresFlagsACommandLacks(t *testing.T) {
	cfg := Config{Participants: 4, Workers: 2}
	var o Local
	fs := newFS()
	BindLocal(fs, &o)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, cfg.Apply(fs))
	require.Equal(t, 2, o.Workers)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	var fae *errors.FileAccessError
	require.ErrorAs(t, err, &fae)

	_, err = LoadConfig(writeConfig(t, "colour: blue\n"))
	var ue *UsageError
	require.ErrorAs(t, err, &ue)

	_, err = LoadConfig(writeConfig(t, "grace: soon\n"))
	require.ErrorAs(t, err, &ue)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)
}

func TestResolveSecret(t *testing.T) {
	t.Setenv(SecretEnv, "from-env")
	s, err := Global{Secret: "from-flag"}.ResolveSecret(Config{Secret: "from-file"})
	require.NoError(t, err)
	require.Equal(t, "from-flag", string(s))

	s, err = Global{}.ResolveSecret(Config{Secret: "from-file"})
	require.NoError(t, err)
	require.Equal(t, "from-env", string(s))

	t.Setenv(SecretEnv, "")
	s, err = Global{}.ResolveSecret(Config{Secret: "from-file"})
	require.NoError(t, err)
	require.Equal(t, "from-file", string(s))

	_, err = Global{}.ResolveSecret(Config{})
	var ue *UsageError
	require.ErrorAs(t, err, &ue)
}
