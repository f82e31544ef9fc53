// Package ingest replaces the stored dictionary dataset with freshly parsed
// entries, committing in fixed-size transactions so a crash or failure
// leaves at most one batch unapplied.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// ErrBatchWriterClosed is returned by Submit and Flush after Close.
var ErrBatchWriterClosed = errors.New("batch writer closed")

// BatchWriter groups write operations into fixed-size transactions. Submit
// buffers an operation and commits the whole buffer as one transaction when
// it reaches the batch size; Close commits whatever remains.
//
// Execution is synchronous: a failed batch surfaces on the Submit or Close
// that ran it, nothing later is attempted, and batches committed earlier
// stay committed.
type BatchWriter struct {
	db        *sql.DB
	buf       []WriteFunc
	size      int
	committed int
	closed    bool

	// OnCommit, when set, observes the zero-based index of each committed
	// batch.
	OnCommit func(batch int)
}

// NewBatchWriter creates a writer that commits every size operations.
func NewBatchWriter(db *sql.DB, size int) *BatchWriter {
	if size <= 0 {
		size = 1
	}
	return &BatchWriter{
		db:   db,
		buf:  make([]WriteFunc, 0, size),
		size: size,
	}
}

// Submit enqueues a write operation, committing the current batch first if
// it is full.
func (bw *BatchWriter) Submit(ctx context.Context, w WriteFunc) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.size {
		return bw.flush(ctx)
	}
	return nil
}

// Flush commits the buffered operations immediately, regardless of fill.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	return bw.flush(ctx)
}

// Close flushes the remaining buffer and rejects further submissions. It
// returns the flush error, if any; the writer is closed either way.
func (bw *BatchWriter) Close(ctx context.Context) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	err := bw.flush(ctx)
	bw.closed = true
	return err
}

// Committed reports how many batches have been committed so far.
func (bw *BatchWriter) Committed() int {
	return bw.committed
}

func (bw *BatchWriter) flush(ctx context.Context) error {
	if len(bw.buf) == 0 {
		return nil
	}
	batch := bw.buf
	bw.buf = bw.buf[:0]

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d items): %w", len(batch), err)
	}

	if bw.OnCommit != nil {
		bw.OnCommit(bw.committed)
	}
	bw.committed++
	return nil
}
