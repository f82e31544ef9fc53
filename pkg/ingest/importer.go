package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

// DefaultBatchSize is how many character entries are committed per
// transaction during an import.
const DefaultBatchSize = 500

// Importer replaces the stored dictionary dataset with parsed entries.
type Importer struct {
	DB        *sql.DB
	BatchSize int
	// Version is stamped into metadata once every entry is stored.
	Version string
	// Logger is used for informational messages. nil means no logging.
	Logger *slog.Logger
	// OnProgress is called with the storage completion percentage after
	// each committed batch.
	OnProgress func(percent int)
}

// NewImporter creates an importer with the default batch size.
func NewImporter(conn *sql.DB, version string) *Importer {
	return &Importer{
		DB:        conn,
		BatchSize: DefaultBatchSize,
		Version:   version,
	}
}

// Run replaces the dictionary dataset with entries.
//
// The previous characters, readings, meanings, and completion metadata are
// deleted in one transaction, the new entries are committed in batches of
// BatchSize, and the version plus completion markers land in a final
// transaction of their own. A failure mid-import leaves the batches already
// committed in place, but because the completion flag is written last such a
// store still reads as uninitialized.
func (im *Importer) Run(ctx context.Context, entries []kanjidic.Entry) error {
	size := im.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	if err := im.clear(ctx); err != nil {
		return err
	}

	total := len(entries)
	bw := NewBatchWriter(im.DB, size)
	bw.OnCommit = func(batch int) {
		if im.OnProgress == nil || total == 0 {
			return
		}
		percent := (batch + 1) * size * 100 / total
		if percent > 100 {
			percent = 100
		}
		im.OnProgress(percent)
	}

	for i := range entries {
		entry := entries[i]
		err := bw.Submit(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if err := db.InsertCharacter(tx, entry.Character); err != nil {
				return err
			}
			for _, r := range entry.Readings {
				if err := db.InsertReading(tx, r); err != nil {
					return err
				}
			}
			for _, m := range entry.Meanings {
				if err := db.InsertMeaning(tx, m); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("storing entries: %w", err)
		}
	}
	if err := bw.Close(ctx); err != nil {
		return fmt.Errorf("storing entries: %w", err)
	}

	if err := im.finalize(ctx); err != nil {
		return err
	}
	if im.Logger != nil {
		im.Logger.Info("dictionary_replaced",
			slog.Int("entries", total),
			slog.String("version", im.Version),
		)
	}
	return nil
}

// clear removes the previous dataset in a single transaction. The metadata
// goes with it, so a store caught between clear and completion reads as
// uninitialized.
func (im *Importer) clear(ctx context.Context) error {
	tx, err := im.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := db.DeleteDictionary(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear tx: %w", err)
	}
	return nil
}

// finalize stamps the version and completion metadata in one transaction,
// the last writes of a successful import.
func (im *Importer) finalize(ctx context.Context) error {
	importID, err := uuid.NewV7()
	if err != nil {
		importID = uuid.New()
	}

	tx, err := im.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	pairs := [][2]string{
		{db.MetaVersion, im.Version},
		{db.MetaInitialized, db.MetaTrue},
		{db.MetaImportID, importID.String()},
		{db.MetaImportAt, time.Now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range pairs {
		if err := db.SetMetadata(tx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata tx: %w", err)
	}
	return nil
}
