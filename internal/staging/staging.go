// Package staging keeps a copy of every uploaded file before it is parsed.
package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stager stores raw upload bytes and returns where they were written.
type Stager interface {
	Stage(ctx context.Context, filename string, data []byte) (string, error)
}

// objectName returns a collision-free name that keeps the upload's base name.
func objectName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		base = "upload.xlsx"
	}
	return uuid.New().String() + "-" + base
}

// Disk writes uploads into a local directory.
type Disk struct {
	dir string
}

// NewDisk creates the directory if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Stage(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(d.dir, objectName(filename))

	tmp, err := os.CreateTemp(d.dir, ".staging-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("stage %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("stage %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("stage %s: %w", filename, err)
	}
	return path, nil
}
