package dictionary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
)

// CurrentVersion is the dictionary release this build expects to find in a
// ready store. A store stamped with any other version is treated as not
// initialized, which forces a rebuild after an upgrade.
const CurrentVersion = "2025-01"

// ErrInitializing is returned when Initialize is called while a previous
// run is still in flight. Runs never queue or cancel each other.
var ErrInitializing = errors.New("dictionary initialization already in progress")

// errNoSources is the terminal failure when the initializer has nothing to
// try.
var errNoSources = errors.New("no dictionary sources configured")

// Initializer drives the acquisition and storage of the dictionary: it
// walks its sources in order until one produces a ready store, streaming
// stage transitions to the caller along the way.
type Initializer struct {
	Handle  *db.Handle
	Sources []Source
	// Version a ready store must carry; defaults to CurrentVersion.
	Version string
	// Logger is used for informational messages. nil means no logging.
	Logger *slog.Logger

	running atomic.Bool
}

// NewInitializer creates an initializer over the given store and sources.
func NewInitializer(h *db.Handle, sources ...Source) *Initializer {
	return &Initializer{
		Handle:  h,
		Sources: sources,
		Version: CurrentVersion,
	}
}

// Initialize starts one initialization run and returns its status stream.
// The channel is closed after the terminal StageCompleted or StageFailed
// status. A call while a run is already in flight returns ErrInitializing
// and leaves the running run alone.
func (ini *Initializer) Initialize(ctx context.Context) (<-chan Status, error) {
	if !ini.running.CompareAndSwap(false, true) {
		return nil, ErrInitializing
	}
	ch := make(chan Status, 16)
	go func() {
		// The flag clears before the channel closes, so a caller that
		// drained the stream can start a new run immediately.
		defer close(ch)
		defer ini.running.Store(false)
		ini.run(ctx, &reporter{ch: ch})
	}()
	return ch, nil
}

func (ini *Initializer) run(ctx context.Context, rep *reporter) {
	report := func(s Status) {
		rep.emit(ctx, s)
	}

	var lastErr error
	for _, src := range ini.Sources {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if ini.Logger != nil {
			ini.Logger.Info("dictionary_source_starting", slog.String("source", src.Name()))
		}

		err := src.Install(ctx, ini.Handle, report)
		if err == nil {
			err = ini.verify(src.Name())
		}
		if err == nil {
			stats, statsErr := db.GetStats(ini.Handle.DB())
			if statsErr != nil {
				err = statsErr
			} else {
				report(Status{
					Stage: StageCompleted,
					Counts: Counts{
						Kanji:    stats.KanjiCount,
						Readings: stats.ReadingCount,
						Meanings: stats.MeaningCount,
					},
				})
				if ini.Logger != nil {
					ini.Logger.Info("dictionary_initialized",
						slog.String("source", src.Name()),
						slog.String("version", ini.version()),
						slog.Int("kanji", stats.KanjiCount),
					)
				}
				return
			}
		}

		lastErr = err
		if ini.Logger != nil {
			ini.Logger.Warn("dictionary_source_failed",
				slog.String("source", src.Name()),
				slog.Any("error", err),
			)
		}
	}

	if lastErr == nil {
		lastErr = errNoSources
	}
	report(Status{Stage: StageFailed, Err: lastErr})
}

// verify re-checks the full ready invariant after an install. A source that
// returned success but left the store unready (stale version, zero rows)
// counts as a failed source, so the next one still gets its turn.
func (ini *Initializer) verify(source string) error {
	ok, err := ready(ini.Handle.DB(), ini.version())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("source %s left the store unready", source)
	}
	return nil
}

func (ini *Initializer) version() string {
	if ini.Version == "" {
		return CurrentVersion
	}
	return ini.Version
}

// ready reports whether the store satisfies the full ready invariant: the
// completion flag is set, the stored version matches the expected one, and
// at least one character row exists.
func ready(ex db.DBExecutor, version string) (bool, error) {
	flag, err := db.GetMetadata(ex, db.MetaInitialized)
	if err != nil {
		return false, err
	}
	if flag != db.MetaTrue {
		return false, nil
	}
	stored, err := db.GetMetadata(ex, db.MetaVersion)
	if err != nil {
		return false, err
	}
	if stored != version {
		return false, nil
	}
	n, err := db.CountKanji(ex)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
