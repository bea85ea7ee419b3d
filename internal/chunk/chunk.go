// internal/chunk/chunk.go
package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"phredavg/internal/errors"
)

// Descriptor is a half-open byte range [Start, End) of one input file.
type Descriptor struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len is the number of bytes in the range.
func (d Descriptor) Len() int64 { return d.End - d.Start }

// Empty reports whether the range holds no bytes.
func (d Descriptor) Empty() bool { return d.End <= d.Start }

func (d Descriptor) String() string { return fmt.Sprintf("[%d,%d)", d.Start, d.End) }

// Task binds a descriptor to the file it belongs to. Index is the
// descriptor's position in that file's plan.
type Task struct {
	File  string     `json:"file"`
	Index int        `json:"index"`
	Desc  Descriptor `json:"desc"`
}

func (t Task) String() string { return fmt.Sprintf("%s#%d%s", t.File, t.Index, t.Desc) }

// Split divides size bytes into n contiguous descriptors. Every descriptor
// but the last spans size/n bytes; the last absorbs the remainder. When n
// exceeds size the leading descriptors are empty.
func Split(size int64, n int) []Descriptor {
	if n < 1 {
		n = 1
	}
	if size < 0 {
		size = 0
	}
	step := size / int64(n)
	out := make([]Descriptor, n)
	for i := 0; i < n; i++ {
		start := int64(i) * step
		end := start + step
		if i == n-1 {
			end = size
		}
		out[i] = Descriptor{Start: start, End: end}
	}
	return out
}

// Splittable reports whether byte offsets in path are record offsets.
// Compressed inputs and stdin are read as one stream.
func Splittable(path string) bool {
	return path != "-" && !strings.HasSuffix(path, ".gz")
}

// Plan stats path and splits it into n descriptors. A missing or
// unreadable file is a FileAccessError and yields no descriptors.
// Non-splittable inputs always get a single descriptor.
func Plan(path string, n int) ([]Descriptor, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileAccessError(path, err)
	}
	if fi.IsDir() {
		return nil, errors.NewFileAccessError(path, errors.New("is a directory"))
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileAccessError(path, err)
	}
	_ = fh.Close()
	if !Splittable(path) {
		n = 1
	}
	return Split(fi.Size(), n), nil
}

// Unique drops repeated paths, keeping the first occurrence of each.
// Paths are compared after filepath.Clean; dups lists what was dropped.
func Unique(paths []string) (uniq, dups []string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		k := p
		if p != "-" {
			k = filepath.Clean(p)
		}
		if seen[k] {
			dups = append(dups, p)
			continue
		}
		seen[k] = true
		uniq = append(uniq, p)
	}
	return uniq, dups
}

// Tasks plans every path before returning, so one bad input aborts the
// whole run before any chunk is processed. A path given twice is planned
// once.
func Tasks(paths []string, n int) ([]Task, error) {
	paths, _ = Unique(paths)
	var out []Task
	for _, p := range paths {
		descs, err := Plan(p, n)
		if err != nil {
			return nil, err
		}
		for i, d := range descs {
			out = append(out, Task{File: p, Index: i, Desc: d})
		}
	}
	return out, nil
}

// Total sums the bytes covered by tasks.
func Total(tasks []Task) int64 {
	var n int64
	for _, t := range tasks {
		n += t.Desc.Len()
	}
	return n
}
