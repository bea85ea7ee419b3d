package writers

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"phredavg/internal/errors"
)

func TestCreateFlushesOnClose(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "out.csv")
	f, err := Create(fn)
	require.NoError(t, err)
	_, err = f.WriteString("0,40.0\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.Equal(t, "0,40.0\n", string(got))
}

func TestCreateMissingDir(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.csv"))
	var fae *errors.FileAccessError
	require.ErrorAs(t, err, &fae)
}

func TestIsBrokenPipe(t *testing.T) {
	require.True(t, IsBrokenPipe(errors.Wrap(syscall.EPIPE, "write")))
	require.False(t, IsBrokenPipe(errors.New("other")))
	require.False(t, IsBrokenPipe(nil))
}
