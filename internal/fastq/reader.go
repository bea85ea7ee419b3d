// internal/fastq/reader.go
package fastq

import (
	"io"
	"math"
)

// Record is one 4-line FASTQ record. Off is the offset of its header line.
type Record struct {
	Off    int64
	Header []byte
	Seq    []byte
	Qual   []byte
}

// Reader frames records out of a Scanner. It yields only records whose
// header starts before End, which is how chunk ownership is decided.
type Reader struct {
	sc  *Scanner
	end int64
	// aligned is false after a resync until the first header is confirmed.
	aligned bool

	// Dropped counts owned records that were truncated or inconsistent.
	Dropped int64
}

// NewReader reads every record in r. r must start at a line boundary.
func NewReader(r io.Reader, bufSize int) *Reader {
	return &Reader{sc: NewScanner(r, 0, bufSize), end: math.MaxInt64, aligned: true}
}

// NewRangeReader reads the records whose header line starts in
// [start, end) of rs. It seeks one byte before start and discards the
// line fragment there, so a header beginning exactly at start is kept.
func NewRangeReader(rs io.ReadSeeker, start, end int64, bufSize int) (*Reader, error) {
	from := start
	if from > 0 {
		from--
	}
	if _, err := rs.Seek(from, io.SeekStart); err != nil {
		return nil, err
	}
	sc := NewScanner(rs, from, bufSize)
	if start > 0 {
		if err := sc.discardPartial(); err != nil {
			return nil, err
		}
	}
	return &Reader{sc: sc, end: end, aligned: start == 0}, nil
}

// Err returns the first read error other than EOF.
func (r *Reader) Err() error { return r.sc.Err() }

// Next returns the next owned record. It returns false when no owned
// record remains or on read error (see Err).
//
// A line is taken as a header only if it starts with '@' and the line two
// below starts with '+'. A quality line starting with '@' is followed by a
// header and a sequence line, and sequence lines never start with '+', so
// the test cannot pick a quality line.
func (r *Reader) Next() (Record, bool) {
	for {
		h, ok := r.sc.Peek(0)
		if !ok || h.Off >= r.end {
			return Record{}, false
		}
		if !isHeader(h.Text) {
			r.sc.Skip(1)
			continue
		}
		sep, ok := r.sc.Peek(2)
		if !ok {
			// Fewer than 4 lines remain. Before alignment the candidate may
			// be the last quality line of a record owned by the previous
			// range, so it is only counted once a header has been confirmed.
			if r.aligned {
				r.Dropped++
			}
			r.sc.Skip(3)
			return Record{}, false
		}
		if !isSeparator(sep.Text) {
			r.sc.Skip(1)
			continue
		}
		r.aligned = true
		seq, _ := r.sc.Peek(1)
		qual, ok := r.sc.Peek(3)
		if !ok {
			r.Dropped++
			r.sc.Skip(4)
			return Record{}, false
		}
		r.sc.Skip(4)
		if len(qual.Text) != len(seq.Text) {
			r.Dropped++
			continue
		}
		return Record{Off: h.Off, Header: h.Text, Seq: seq.Text, Qual: qual.Text}, true
	}
}

func isHeader(b []byte) bool    { return len(b) > 0 && b[0] == '@' }
func isSeparator(b []byte) bool { return len(b) > 0 && b[0] == '+' }
