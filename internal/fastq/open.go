// internal/fastq/open.go
package fastq

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"phredavg/internal/errors"
)

// Open returns a reader over path. "-" reads stdin and a ".gz" suffix is
// decompressed transparently. Failures are FileAccessErrors.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileAccessError(path, err)
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, errors.NewFileAccessError(path, err)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
