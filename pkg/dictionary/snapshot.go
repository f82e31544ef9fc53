package dictionary

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
)

// SnapshotSource installs a bundled pre-built database. The payload is
// already in final storable form, so installation is a file copy: no
// download, parse, or store stages follow. Payloads ending in .gz are
// decompressed on the way in.
type SnapshotSource struct {
	// FS is the bundle the snapshot ships in; Path locates it within.
	FS   fs.FS
	Path string
	// Logger is used for informational messages. nil means no logging.
	Logger *slog.Logger
}

func (s *SnapshotSource) Name() string {
	return "snapshot"
}

// Install copies the snapshot payload over the store. The copying stage is
// reported before the payload is even opened, so a missing asset still
// surfaces as a failure of this stage rather than silence.
func (s *SnapshotSource) Install(ctx context.Context, h *db.Handle, report func(Status)) error {
	report(Status{Stage: StageCopyingSnapshot})

	f, err := s.FS.Open(s.Path)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", s.Path, err)
	}
	defer f.Close()

	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}

	// Progress tracks the raw payload bytes; for a compressed snapshot
	// that is the compressed stream, which is the size actually known.
	var raw io.Reader = f
	if size > 0 {
		raw = &progressReader{
			r:     f,
			total: size,
			f: func(percent int) {
				report(Status{Stage: StageCopyingSnapshot, Percent: percent})
			},
		}
	}

	payload := raw
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return fmt.Errorf("opening snapshot %s: %w", s.Path, err)
		}
		defer gz.Close()
		payload = gz
	}

	if err := h.Replace(payload); err != nil {
		return fmt.Errorf("installing snapshot %s: %w", s.Path, err)
	}
	report(Status{Stage: StageCopyingSnapshot, Percent: 100})

	if s.Logger != nil {
		s.Logger.Info("snapshot_installed", slog.String("path", s.Path))
	}
	return nil
}
