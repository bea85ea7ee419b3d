package cli

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"phredavg/internal/errors"
)

// Duration reads "1s"-style strings (or integer nanoseconds) from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return errors.Errorf("invalid duration %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the optional YAML config file. Every field is a default for
// the flag of the same name; flags given on the command line win.
type Config struct {
	Host         string   `json:"host,omitempty"`
	Port         int      `json:"port,omitempty"`
	Secret       string   `json:"secret,omitempty"`
	Workers      int      `json:"workers,omitempty"`
	Chunks       int      `json:"chunks,omitempty"`
	Participants int      `json:"participants,omitempty"`
	BufferSize   int      `json:"buffer-size,omitempty"`
	MetricsAddr  string   `json:"metrics-addr,omitempty"`
	Backoff      Duration `json:"backoff,omitempty"`
	PollInterval Duration `json:"poll-interval,omitempty"`
	Grace        Duration `json:"grace,omitempty"`
	LeaseTimeout Duration `json:"lease-timeout,omitempty"`
}

// LoadConfig reads path. An empty path is an empty config.
func LoadConfig(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.NewFileAccessError(path, err)
	}
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, Usagef("config %s: %v", path, err)
	}
	return c, nil
}

// values maps flag names to the config's non-zero settings.
func (c Config) values() map[string]string {
	m := map[string]string{}
	set := func(k, v string, ok bool) {
		if ok {
			m[k] = v
		}
	}
	set("host", c.Host, c.Host != "")
	set("port", strconv.Itoa(c.Port), c.Port != 0)
	set("workers", strconv.Itoa(c.Workers), c.Workers != 0)
	set("chunks", strconv.Itoa(c.Chunks), c.Chunks != 0)
	set("participants", strconv.Itoa(c.Participants), c.Participants != 0)
	set("buffer-size", strconv.Itoa(c.BufferSize), c.BufferSize != 0)
	set("metrics-addr", c.MetricsAddr, c.MetricsAddr != "")
	set("backoff", time.Duration(c.Backoff).String(), c.Backoff != 0)
	set("poll-interval", time.Duration(c.PollInterval).String(), c.PollInterval != 0)
	set("grace", time.Duration(c.Grace).String(), c.Grace != 0)
	set("lease-timeout", time.Duration(c.LeaseTimeout).String(), c.LeaseTimeout != 0)
	return m
}

// Apply sets every flag in fs that the command line left alone and the
// config file provides.
func (c Config) Apply(fs *pflag.FlagSet) error {
	for name, v := range c.values() {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return Usagef("config %s: %v", name, err)
		}
	}
	return nil
}
