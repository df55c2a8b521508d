package cache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Disk stores each entry as one file under dir, named by a filesystem-safe
// hex encoding of the cache key. The file modification time doubles as the
// entry's writtenAt, so no envelope format is needed.
type Disk struct {
	dir string
}

// NewDisk creates the cache directory if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, hex.EncodeToString([]byte(key))+".json")
}

func (d *Disk) Read(key string) ([]byte, time.Time, error) {
	p := d.path(key)
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, fi.ModTime(), nil
}

func (d *Disk) Write(key string, data []byte) error {
	return os.WriteFile(d.path(key), data, 0o644)
}
