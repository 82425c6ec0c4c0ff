package storage

import (
	"fmt"
	"io"
	"os"
)

// LocalFiles reads images straight from the local filesystem. The CLI uses it;
// the server only reads through UploadStore.
type LocalFiles struct {
	MaxBytes int64
}

func (l LocalFiles) Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if l.MaxBytes > 0 {
		// One extra byte tells an oversized file from one exactly at the limit.
		r = io.LimitReader(f, l.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, l.MaxBytes)
	}
	return data, nil
}
