package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/and161185/scoutfund/internal/model"
)

// DirExporter writes snapshots under a local directory. Meant for development.
type DirExporter struct{ root string }

// NewDirExporter constructs a DirExporter rooted at dir.
func NewDirExporter(dir string) *DirExporter { return &DirExporter{root: dir} }

func (e *DirExporter) Export(ctx context.Context, snap model.ProfileSnapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := Encode(snap)
	if err != nil {
		return "", err
	}
	path := filepath.Join(e.root, filepath.FromSlash(objectKey("", snap)))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o640); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}
