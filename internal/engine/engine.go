package engine

import (
	"context"
	"io"
	"os"

	"phredavg/internal/chunk"
	"phredavg/internal/errors"
	"phredavg/internal/fastq"
	"phredavg/internal/phred"
)

// Config tunes chunk processing.
type Config struct {
	BufferSize int // read buffer in bytes; 0 = fastq.DefaultBufferSize
}

type Engine struct{ cfg Config }

func New(c Config) *Engine { return &Engine{cfg: c} }

// Process reads the records owned by t and accumulates their quality
// lines. A chunk is processed to completion; ctx is only consulted before
// the file is opened.
func (e *Engine) Process(ctx context.Context, t chunk.Task) (*phred.Partial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !chunk.Splittable(t.File) {
		return e.processStream(t)
	}
	if t.Desc.Empty() {
		// still report an unreadable file
		if _, err := os.Stat(t.File); err != nil {
			return nil, errors.NewFileAccessError(t.File, err)
		}
		return phred.NewPartial(), nil
	}
	fh, err := os.Open(t.File)
	if err != nil {
		return nil, errors.NewFileAccessError(t.File, err)
	}
	defer fh.Close()
	r, err := fastq.NewRangeReader(fh, t.Desc.Start, t.Desc.End, e.cfg.BufferSize)
	if err != nil {
		return nil, errors.NewFileAccessError(t.File, err)
	}
	return accumulate(t.File, r)
}

// processStream handles inputs whose offsets are not file offsets: the
// first chunk owns every record and any other chunk is empty.
func (e *Engine) processStream(t chunk.Task) (*phred.Partial, error) {
	if t.Desc.Start > 0 {
		return phred.NewPartial(), nil
	}
	rc, err := fastq.Open(t.File)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return accumulate(t.File, fastq.NewReader(rc, e.cfg.BufferSize))
}

func accumulate(path string, r *fastq.Reader) (*phred.Partial, error) {
	p := phred.NewPartial()
	for {
		rec, ok := r.Next()
		if !ok {
			break
		}
		p.AddQuality(rec.Qual)
	}
	if err := r.Err(); err != nil {
		return nil, errors.NewFileAccessError(path, err)
	}
	p.Dropped = r.Dropped
	return p, nil
}

// ProcessReader accumulates every record in r. It backs the stdin chunk
// mode, where an external splitter already picked the bytes.
func (e *Engine) ProcessReader(r io.Reader) (*phred.Partial, error) {
	return accumulate("-", fastq.NewReader(r, e.cfg.BufferSize))
}
