package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash"
)

// writeAtomic writes src to a temporary file next to path and renames it into
// place. The temporary file is removed on any failure, so path either holds
// the complete image or is left untouched.
func writeAtomic(path string, src io.WriterTo) (size int64, sum uint64, err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	h := xxhash.New()
	size, err = src.WriteTo(io.MultiWriter(tmp, h))
	if err != nil {
		return
	}
	if err = tmp.Sync(); err != nil {
		return
	}
	if err = tmp.Close(); err != nil {
		return
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return
	}

	return size, h.Sum64(), nil
}
