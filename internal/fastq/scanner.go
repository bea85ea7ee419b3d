package fastq

import (
	"bufio"
	"bytes"
	"io"

	"phredavg/internal/errors"
)

// DefaultBufferSize is the read buffer used when none is given.
const DefaultBufferSize = 1 << 20

// Line is one input line without its terminator, tagged with the absolute
// byte offset of its first byte.
type Line struct {
	Off  int64
	Text []byte
}

// Scanner splits a stream into lines while tracking absolute offsets. It
// keeps a small lookahead window so callers can peek a few lines ahead.
type Scanner struct {
	r       *bufio.Reader
	off     int64
	pending []Line
	err     error
}

// NewScanner reads lines from r, whose first byte sits at offset off.
func NewScanner(r io.Reader, off int64, bufSize int) *Scanner {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Scanner{r: bufio.NewReaderSize(r, bufSize), off: off}
}

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Peek returns the k-th pending line (0-based) without consuming it.
func (s *Scanner) Peek(k int) (Line, bool) {
	for len(s.pending) <= k {
		l, ok := s.read()
		if !ok {
			return Line{}, false
		}
		s.pending = append(s.pending, l)
	}
	return s.pending[k], true
}

// Skip consumes n pending (or upcoming) lines.
func (s *Scanner) Skip(n int) {
	for ; n > 0; n-- {
		if _, ok := s.Peek(0); !ok {
			return
		}
		s.pending = s.pending[1:]
	}
}

// discardPartial drops bytes up to and including the next newline. It is
// used after seeking to one byte before a chunk start.
func (s *Scanner) discardPartial() error {
	for {
		frag, err := s.r.ReadSlice('\n')
		s.off += int64(len(frag))
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			s.err = err
			return nil
		}
		return errors.EnsureStack(err)
	}
}

func (s *Scanner) read() (Line, bool) {
	if s.err != nil {
		return Line{}, false
	}
	var buf []byte
	for {
		frag, err := s.r.ReadSlice('\n')
		buf = append(buf, frag...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			s.err = err
			if len(buf) == 0 {
				return Line{}, false
			}
		}
		break
	}
	l := Line{Off: s.off, Text: trimEOL(buf)}
	s.off += int64(len(buf))
	return l, true
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}
