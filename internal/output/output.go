// internal/output/output.go
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"phredavg/internal/errors"
	"phredavg/internal/phred"
	"phredavg/internal/writers"
)

// FormatMean renders v in its shortest round-trip form, always with a
// fractional part: 40 becomes "40.0".
func FormatMean(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// WriteCSV writes one "position,average" row per position, ascending.
func WriteCSV(w io.Writer, f *phred.Final) error {
	cw := csv.NewWriter(w)
	for i, m := range f.Mean {
		if err := cw.Write([]string{strconv.Itoa(i), FormatMean(m)}); err != nil {
			return errors.EnsureStack(err)
		}
	}
	cw.Flush()
	return errors.EnsureStack(cw.Error())
}

// WriteConsole writes one "position, average" line per position.
func WriteConsole(w io.Writer, f *phred.Final) error {
	for i, m := range f.Mean {
		if _, err := fmt.Fprintf(w, "%d, %s\n", i, FormatMean(m)); err != nil {
			return errors.EnsureStack(err)
		}
	}
	return nil
}

// Paths names the CSV for each of files. A single input writes to out
// itself. With several inputs each gets "<name>.<basename(out)>" next to
// out, where name is the input's basename, or its whole path with
// separators turned into '_' when another input shares the basename. Any
// name still taken gets a numeric prefix, so no two inputs share a path.
func Paths(out string, files []string) []string {
	if len(files) == 1 {
		return []string{out}
	}
	bases := make(map[string]int, len(files))
	for _, fn := range files {
		bases[filepath.Base(fn)]++
	}
	dir, suffix := filepath.Dir(out), filepath.Base(out)
	taken := make(map[string]bool, len(files))
	paths := make([]string, len(files))
	for i, fn := range files {
		name := filepath.Base(fn)
		if bases[name] > 1 {
			name = flatten(fn)
		}
		for n, base := 1, name; taken[name]; n++ {
			name = fmt.Sprintf("%d.%s", n, base)
		}
		taken[name] = true
		paths[i] = filepath.Join(dir, name+"."+suffix)
	}
	return paths
}

func flatten(path string) string {
	path = strings.TrimLeft(filepath.ToSlash(filepath.Clean(path)), "/")
	return strings.ReplaceAll(path, "/", "_")
}

// Render writes every file's final means, in the order of files. With no
// out path they go to stdout, one "# <input>" block per file when there
// is more than one.
func Render(stdout io.Writer, out string, files []string, finals map[string]*phred.Final) error {
	multi := len(files) > 1
	var paths []string
	if out != "" {
		paths = Paths(out, files)
	}
	for i, fn := range files {
		f := finals[fn]
		if f == nil {
			f = &phred.Final{}
		}
		if out == "" {
			if multi {
				if _, err := fmt.Fprintf(stdout, "# %s\n", fn); err != nil {
					return errors.EnsureStack(err)
				}
			}
			if err := WriteConsole(stdout, f); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(paths[i], f); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, f *phred.Final) (retErr error) {
	bf, err := writers.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := bf.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return WriteCSV(bf, f)
}

// WritePartial writes p as a single JSON line, the format merge reads.
func WritePartial(w io.Writer, p *phred.Partial) error {
	return errors.EnsureStack(json.NewEncoder(w).Encode(p))
}
