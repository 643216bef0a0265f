package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskSink stores media under a local upload directory, served back by
// the HTTP server under /uploads/. Stored filenames are random; the
// original name survives only in its extension.
type DiskSink struct {
	dir string
}

var _ Sink = (*DiskSink)(nil)

// NewDiskSink creates the upload directory tree if needed.
func NewDiskSink(dir string) (*DiskSink, error) {
	for _, sub := range []string{"images", "videos"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating upload dir: %w", err)
		}
	}
	return &DiskSink{dir: dir}, nil
}

func (s *DiskSink) Store(_ context.Context, kind Kind, filename, _ string, data []byte) (*Result, error) {
	sub := "images"
	if kind == KindVideo {
		sub = "videos"
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	dest := filepath.Join(s.dir, sub, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	res := &Result{
		Ref:  path.Join("/uploads", sub, name),
		Name: name,
		Size: int64(len(data)),
		Type: kind,
	}
	if kind == KindImage {
		res.Width, res.Height = imageDims(data)
	}
	return res, nil
}
