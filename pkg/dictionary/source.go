package dictionary

import (
	"context"
	"io"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
)

// A Source produces a ready dictionary store, or fails trying. Sources are
// attempted in order by the Initializer, so a cheap local source can sit in
// front of an expensive network one.
type Source interface {
	// Name identifies the source in logs and error messages.
	Name() string
	// Install populates the store behind h with a complete dataset,
	// reporting stage transitions through report. An error of any kind
	// means the next source should be tried.
	Install(ctx context.Context, h *db.Handle, report func(Status)) error
}

// progressReader reports the consumed percentage of total as it is read.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	f     func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.f != nil && p.total > 0 {
			percent := int(p.read * 100 / p.total)
			if percent > 100 {
				percent = 100
			}
			p.f(percent)
		}
	}
	return n, err
}
