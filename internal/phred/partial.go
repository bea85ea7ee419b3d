// Package phred accumulates Phred+33 quality scores per read position and
// merges per-chunk accumulators into exact per-position means.
package phred

import (
	"encoding/json"
	"io"

	"phredavg/internal/chunk"
	"phredavg/internal/errors"
)

// Offset is the Phred+33 ASCII offset.
const Offset = 33

// Partial is a running (sum, count) per 0-based read position for one
// chunk. Both slices always have the same length; they grow only when a
// longer read is seen.
type Partial struct {
	Sum     []int64 `json:"sum"`
	Count   []int64 `json:"count"`
	Records int64   `json:"records"`
	Dropped int64   `json:"dropped,omitempty"`
}

// NewPartial returns an empty accumulator.
func NewPartial() *Partial { return &Partial{} }

// Len is the number of positions observed.
func (p *Partial) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Count)
}

// AddQuality folds one Phred+33 encoded quality line into p.
func (p *Partial) AddQuality(qual []byte) {
	p.grow(len(qual))
	for i, c := range qual {
		p.Sum[i] += int64(c) - Offset
		p.Count[i]++
	}
	p.Records++
}

// Add merges o into p. A nil or empty o leaves p unchanged.
func (p *Partial) Add(o *Partial) {
	if o == nil {
		return
	}
	p.grow(len(o.Count))
	for i := range o.Count {
		p.Sum[i] += o.Sum[i]
		p.Count[i] += o.Count[i]
	}
	p.Records += o.Records
	p.Dropped += o.Dropped
}

func (p *Partial) grow(n int) {
	if n <= len(p.Count) {
		return
	}
	if n <= cap(p.Count) && n <= cap(p.Sum) {
		p.Sum = p.Sum[:n]
		p.Count = p.Count[:n]
		return
	}
	sum := make([]int64, n, n+n/2)
	count := make([]int64, n, n+n/2)
	copy(sum, p.Sum)
	copy(count, p.Count)
	p.Sum, p.Count = sum, count
}

// Validate checks the invariants of a Partial received from elsewhere.
func (p *Partial) Validate() error {
	if p == nil {
		return errors.New("nil partial")
	}
	if len(p.Sum) != len(p.Count) {
		return errors.Errorf("partial has %d sums but %d counts", len(p.Sum), len(p.Count))
	}
	for i, c := range p.Count {
		if c < 0 {
			return errors.Errorf("negative count at position %d", i)
		}
	}
	return nil
}

// Result is the partial computed for one task.
type Result struct {
	Task    chunk.Task `json:"task"`
	Partial *Partial   `json:"partial"`
}

// DecodePartials reads a stream of JSON Partial documents.
func DecodePartials(r io.Reader) ([]*Partial, error) {
	dec := json.NewDecoder(r)
	var out []*Partial
	for {
		var p Partial
		if err := dec.Decode(&p); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "decode partial")
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
}
