package chunk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"phredavg/internal/errors"
	"phredavg/internal/testutil"
)

func TestSplitCoversExactly(t *testing.T) {
	for _, size := range []int64{0, 1, 7, 100, 1023} {
		for n := 1; n <= 40; n++ {
			ds := Split(size, n)
			require.Len(t, ds, n)
			var next int64
			for i, d := range ds {
				if d.Start != next {
					t.Fatalf("size=%d n=%d: gap/overlap at %d: %v", size, n, i, ds)
				}
				if d.End < d.Start {
					t.Fatalf("size=%d n=%d: negative range %v", size, n, d)
				}
				next = d.End
			}
			require.Equal(t, size, next, "size=%d n=%d", size, n)
		}
	}
}

func TestSplitLastAbsorbsRemainder(t *testing.T) {
	got := Split(10, 3)
	require.Equal(t, []Descriptor{{0, 3}, {3, 6}, {6, 10}}, got)
}

func TestSplitMoreChunksThanBytes(t *testing.T) {
	got := Split(3, 5)
	require.Equal(t, Descriptor{0, 0}, got[0])
	require.True(t, got[3].Empty())
	require.Equal(t, Descriptor{0, 3}, got[4])
}

func TestSplitClampsN(t *testing.T) {
	require.Equal(t, []Descriptor{{0, 9}}, Split(9, 0))
}

func TestPlanMissingFile(t *testing.T) {
	ds, err := Plan(filepath.Join(t.TempDir(), "missing.fq"), 4)
	require.Nil(t, ds)
	var fae *errors.FileAccessError
	require.True(t, errors.As(err, &fae))
}

func TestPlanGzipIsSingleChunk(t *testing.T) {
	fn := testutil.WriteGzip(t, "x.fq.gz", []byte("@a\nA\n+\nI\n"))
	ds, err := Plan(fn, 8)
	require.NoError(t, err)
	require.Len(t, ds, 1)
}

func TestTasksAbortOnFirstBadFile(t *testing.T) {
	good := testutil.WriteFile(t, "good.fq", []byte("@a\nA\n+\nI\n"))
	_, err := Tasks([]string{good, filepath.Join(t.TempDir(), "bad.fq")}, 2)
	require.Error(t, err)

	ts, err := Tasks([]string{good, good}, 3)
	require.NoError(t, err)
	require.Len(t, ts, 3)
	require.Equal(t, 2, ts[2].Index)
	require.Equal(t, int64(9), Total(ts))
}

func TestUnique(t *testing.T) {
	uniq, dups := Unique([]string{"a/x.fq", "b/x.fq", "a/./x.fq", "-", "-"})
	require.Equal(t, []string{"a/x.fq", "b/x.fq", "-"}, uniq)
	require.Equal(t, []string{"a/./x.fq", "-"}, dups)
}
