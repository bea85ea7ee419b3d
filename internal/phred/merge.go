package phred

import "sort"

// Final holds per-position means. Mean[i] is the total quality sum at
// position i divided by the number of reads covering it, over every chunk.
type Final struct {
	Mean    []float64
	Count   []int64
	Records int64
}

// Len is the number of positions.
func (f *Final) Len() int { return len(f.Mean) }

// Merge sums partials position-wise. Nil and empty partials are the
// identity, and the result does not depend on argument order.
func Merge(parts ...*Partial) *Partial {
	out := NewPartial()
	for _, p := range parts {
		out.Add(p)
	}
	return out
}

// Finalize divides sums by counts. Because sums are integers the means do
// not depend on how the input was chunked.
func Finalize(p *Partial) *Final {
	f := &Final{}
	if p == nil {
		return f
	}
	f.Mean = make([]float64, len(p.Count))
	f.Count = append([]int64(nil), p.Count...)
	f.Records = p.Records
	for i, c := range p.Count {
		if c > 0 {
			f.Mean[i] = float64(p.Sum[i]) / float64(c)
		}
	}
	return f
}

// Flatten concatenates grouped results, as returned by a gather.
func Flatten(groups [][]Result) []Result {
	var n int
	for _, g := range groups {
		n += len(g)
	}
	out := make([]Result, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ByFile merges results per input file and finalizes each. Every name in
// files gets an entry, even when no result mentions it.
func ByFile(files []string, results []Result) map[string]*Final {
	acc := make(map[string]*Partial, len(files))
	for _, f := range files {
		acc[f] = NewPartial()
	}
	for _, r := range results {
		p, ok := acc[r.Task.File]
		if !ok {
			p = NewPartial()
			acc[r.Task.File] = p
		}
		p.Add(r.Partial)
	}
	out := make(map[string]*Final, len(acc))
	for f, p := range acc {
		out[f] = Finalize(p)
	}
	return out
}

// SortResults orders results by file then chunk index.
func SortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Task.File != rs[j].Task.File {
			return rs[i].Task.File < rs[j].Task.File
		}
		return rs[i].Task.Index < rs[j].Task.Index
	})
}
