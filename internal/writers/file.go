package writers

import (
	"bufio"
	"os"

	"phredavg/internal/errors"
)

// File is a buffered output file. Close flushes, then closes.
type File struct {
	*bufio.Writer
	f *os.File
}

// Create truncates or creates path for writing.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.NewFileAccessError(path, err)
	}
	return &File{Writer: bufio.NewWriterSize(f, 64<<10), f: f}, nil
}

func (f *File) Close() error {
	ferr := f.Flush()
	cerr := f.f.Close()
	if ferr != nil {
		return errors.Wrapf(ferr, "write %s", f.f.Name())
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "close %s", f.f.Name())
	}
	return nil
}
