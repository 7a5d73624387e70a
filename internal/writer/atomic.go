package writer

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// writeAtomic streams into a temp file next to path and renames it into
// place. On any failure the temp file is removed and path is untouched.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &dynamo.IOError{Op: "create", Path: path, Wrapped: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return &dynamo.IOError{Op: "write", Path: path, Wrapped: err}
	}
	if err := bw.Flush(); err != nil {
		return &dynamo.IOError{Op: "write", Path: path, Wrapped: err}
	}
	if err := tmp.Sync(); err != nil {
		return &dynamo.IOError{Op: "sync", Path: path, Wrapped: err}
	}
	if err := tmp.Close(); err != nil {
		return &dynamo.IOError{Op: "close", Path: path, Wrapped: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &dynamo.IOError{Op: "rename", Path: path, Wrapped: err}
	}

	success = true
	return nil
}
