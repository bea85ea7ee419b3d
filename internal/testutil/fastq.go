// Package testutil builds FASTQ fixtures and reference answers for tests.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Read is one FASTQ record.
type Read struct {
	Header string
	Seq    string
	Qual   string
}

// Format renders reads as 4-line FASTQ.
func Format(reads []Read) []byte {
	var b bytes.Buffer
	for _, r := range reads {
		fmt.Fprintf(&b, "@%s\n%s\n+\n%s\n", r.Header, r.Seq, r.Qual)
	}
	return b.Bytes()
}

// RandomReads returns n reads of length 1..maxLen. Roughly one quality
// line in four starts with '@', which chunk alignment has to cope with.
func RandomReads(seed int64, n, maxLen int) []Read {
	rng := rand.New(rand.NewSource(seed))
	const bases = "ACGTN"
	out := make([]Read, n)
	for i := range out {
		l := 1 + rng.Intn(maxLen)
		seq := make([]byte, l)
		qual := make([]byte, l)
		for j := 0; j < l; j++ {
			seq[j] = bases[rng.Intn(len(bases))]
			qual[j] = byte('!' + rng.Intn(42))
		}
		if rng.Intn(4) == 0 {
			qual[0] = '@'
		}
		out[i] = Read{Header: fmt.Sprintf("read%d len=%d", i, l), Seq: string(seq), Qual: string(qual)}
	}
	return out
}

// Means computes per-position means straight from the reads.
func Means(reads []Read) []float64 {
	var sum, count []float64
	for _, r := range reads {
		for i := 0; i < len(r.Qual); i++ {
			if i == len(sum) {
				sum = append(sum, 0)
				count = append(count, 0)
			}
			sum[i] += float64(r.Qual[i]) - 33
			count[i]++
		}
	}
	out := make([]float64, len(sum))
	for i := range sum {
		out[i] = sum[i] / count[i]
	}
	return out
}

// WriteFile writes data to name inside a per-test temp dir.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	fn := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", fn, err)
	}
	return fn
}

// WriteGzip writes data gzip-compressed to name inside a temp dir.
func WriteGzip(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	var b bytes.Buffer
	gw := gzip.NewWriter(&b)
	if _, err := gw.Write(data); err != nil {
		tb.Fatalf("gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return WriteFile(tb, name, b.Bytes())
}
