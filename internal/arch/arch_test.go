// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

const mod = "phredavg/"

var (
	front    = []string{"phredavg/internal/app", "phredavg/internal/cli", "phredavg/internal/appshell", "phredavg/cmd"}
	backends = []string{"phredavg/internal/pool", "phredavg/internal/netqueue", "phredavg/internal/collective"}
	render   = []string{"phredavg/internal/output", "phredavg/internal/writers"}
)

func join(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func without(list []string, drop string) []string {
	var out []string
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

// matches reports whether dep is ban or a package below it.
func matches(dep, ban string) bool {
	return dep == ban || strings.HasPrefix(dep, ban+"/")
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", mod+"...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	core := join(front, backends, render, []string{"phredavg/internal/backend"})
	bans := map[string][]string{
		"phredavg/internal/chunk":      join(core, []string{"phredavg/internal/engine", "phredavg/internal/fastq", "phredavg/internal/phred"}),
		"phredavg/internal/fastq":      join(core, []string{"phredavg/internal/engine", "phredavg/internal/phred"}),
		"phredavg/internal/phred":      join(core, []string{"phredavg/internal/engine", "phredavg/internal/fastq"}),
		"phredavg/internal/engine":     core,
		"phredavg/internal/queue":      join(core, []string{"phredavg/internal/engine"}),
		"phredavg/internal/backend":    join(front, backends, render, []string{"phredavg/internal/engine"}),
		"phredavg/internal/pool":       join(front, render, without(backends, "phredavg/internal/pool")),
		"phredavg/internal/netqueue":   join(front, render, without(backends, "phredavg/internal/netqueue")),
		"phredavg/internal/collective": join(front, render, without(backends, "phredavg/internal/collective")),
		"phredavg/internal/output":     join(front, backends),
		"phredavg/internal/writers":    join(front, backends, []string{"phredavg/internal/output"}),
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, mod) {
			continue
		}
		forbidden, ok := bans[p.ImportPath]
		if !ok {
			continue
		}
		for _, dep := range p.Imports {
			if !strings.HasPrefix(dep, mod) {
				continue
			}
			for _, ban := range forbidden {
				if matches(dep, ban) {
					violations = append(violations, p.ImportPath+" → "+dep)
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
