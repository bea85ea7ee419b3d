// internal/engine/engine_test.go
package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"phredavg/internal/chunk"
	"phredavg/internal/errors"
	"phredavg/internal/phred"
	"phredavg/internal/testutil"
)

func processAll(t *testing.T, eng *Engine, path string, n int) *phred.Final {
	t.Helper()
	descs, err := chunk.Plan(path, n)
	require.NoError(t, err)
	var parts []*phred.Partial
	for i, d := range descs {
		p, err := eng.Process(context.Background(), chunk.Task{File: path, Index: i, Desc: d})
		require.NoError(t, err)
		parts = append(parts, p)
	}
	return phred.Finalize(phred.Merge(parts...))
}

func TestProcessTwoReadsAllForty(t *testing.T) {
	fn := testutil.WriteFile(t, "forty.fq", []byte("@r1\nACGT\n+\nIIII\n@r2\nTGCA\n+\nIIII\n"))
	got := processAll(t, New(Config{}), fn, 1)
	require.Equal(t, []float64{40, 40, 40, 40}, got.Mean)
	require.Equal(t, int64(2), got.Records)
}

func TestChunkCountInvariance(t *testing.T) {
	reads := testutil.RandomReads(7, 12, 8)
	data := testutil.Format(reads)
	fn := testutil.WriteFile(t, "rand.fq", data)
	eng := New(Config{BufferSize: 16})

	want := processAll(t, eng, fn, 1)
	require.Equal(t, testutil.Means(reads), want.Mean)
	require.Equal(t, int64(len(reads)), want.Records)

	for n := 2; n <= len(data); n++ {
		got := processAll(t, eng, fn, n)
		if !assertFinalEqual(want, got) {
			t.Fatalf("chunks=%d: got %v, want %v", n, got, want)
		}
	}
}

func assertFinalEqual(a, b *phred.Final) bool {
	if a.Records != b.Records || len(a.Mean) != len(b.Mean) {
		return false
	}
	for i := range a.Mean {
		if a.Mean[i] != b.Mean[i] || a.Count[i] != b.Count[i] {
			return false
		}
	}
	return true
}

func TestMoreChunksThanRecords(t *testing.T) {
	fn := testutil.WriteFile(t, "two.fq", []byte("@a\nAC\n+\n!+\n@b\nAC\n+\n+!\n"))
	got := processAll(t, New(Config{}), fn, 13)
	require.Equal(t, []float64{5, 5}, got.Mean)
}

func TestEmptyFile(t *testing.T) {
	fn := testutil.WriteFile(t, "empty.fq", nil)
	got := processAll(t, New(Config{}), fn, 4)
	require.Zero(t, got.Len())
}

func TestTruncatedRecordDropped(t *testing.T) {
	fn := testutil.WriteFile(t, "trunc.fq", []byte("@a\nACG\n+\n555\n@b\nACG\n+\n"))
	p, err := New(Config{}).Process(context.Background(), chunk.Task{File: fn, Desc: chunk.Descriptor{Start: 0, End: 1 << 20}})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Records)
	require.Equal(t, int64(1), p.Dropped)
	require.Equal(t, []int64{20, 20, 20}, p.Sum)
}

func TestLengthMismatchDropped(t *testing.T) {
	fn := testutil.WriteFile(t, "bad.fq", []byte("@a\nACG\n+\n55\n@b\nAC\n+\n55\n"))
	p, err := New(Config{}).Process(context.Background(), chunk.Task{File: fn, Desc: chunk.Descriptor{End: 1 << 20}})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Records)
	require.Equal(t, int64(1), p.Dropped)
}

func TestCRLF(t *testing.T) {
	fn := testutil.WriteFile(t, "crlf.fq", []byte("@a\r\nAC\r\n+\r\nII\r\n"))
	got := processAll(t, New(Config{}), fn, 1)
	require.Equal(t, []float64{40, 40}, got.Mean)
}

func TestMissingFile(t *testing.T) {
	_, err := New(Config{}).Process(context.Background(), chunk.Task{
		File: filepath.Join(t.TempDir(), "nope.fq"),
		Desc: chunk.Descriptor{Start: 0, End: 10},
	})
	var fae *errors.FileAccessError
	require.True(t, errors.As(err, &fae), "want FileAccessError, got %v", err)
}

func TestGzipMatchesPlain(t *testing.T) {
	reads := testutil.RandomReads(3, 25, 9)
	data := testutil.Format(reads)
	plain := testutil.WriteFile(t, "p.fq", data)
	gz := testutil.WriteGzip(t, "p.fq.gz", data)
	eng := New(Config{})
	require.Equal(t, processAll(t, eng, plain, 1), processAll(t, eng, gz, 5))
}

func TestProcessReader(t *testing.T) {
	reads := testutil.RandomReads(11, 10, 6)
	p, err := New(Config{}).ProcessReader(bytes.NewReader(testutil.Format(reads)))
	require.NoError(t, err)
	require.Equal(t, testutil.Means(reads), phred.Finalize(p).Mean)
}

func TestProcessCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Process(ctx, chunk.Task{File: "x.fq"})
	require.ErrorIs(t, err, context.Canceled)
}
