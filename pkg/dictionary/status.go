package dictionary

import "context"

// Stage identifies one step of the initialization state machine. Stages are
// reported in order; StageCompleted and StageFailed are terminal.
type Stage int

const (
	// StageCopyingSnapshot covers installing the bundled database payload.
	StageCopyingSnapshot Stage = iota
	// StageDownloading covers fetching the compressed dictionary.
	StageDownloading
	// StageDecompressing covers expanding the archive to scratch space.
	StageDecompressing
	// StageParsing covers streaming entries out of the XML.
	StageParsing
	// StageStoring covers the batched database import.
	StageStoring
	// StageCompleted means a source produced a ready dictionary.
	StageCompleted
	// StageFailed means every source failed.
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageCopyingSnapshot:
		return "copying snapshot"
	case StageDownloading:
		return "downloading"
	case StageDecompressing:
		return "decompressing"
	case StageParsing:
		return "parsing"
	case StageStoring:
		return "storing"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Counts reports the size of a completed dataset.
type Counts struct {
	Kanji    int
	Readings int
	Meanings int
}

// Status is one progress event from an initialization run. Which fields
// carry meaning depends on the stage: Percent for the copy, download, and
// store stages, Count for parsing, Counts for StageCompleted, and Err for
// StageFailed.
type Status struct {
	Stage   Stage
	Percent int
	Count   int
	Counts  Counts
	Err     error
}

// reporter delivers statuses over a channel in emission order, dropping
// consecutive duplicates so a stage stuck at the same percentage shows up
// once per transition. Sends give up when ctx ends, which keeps an
// abandoned run from blocking forever on a reader that went away.
type reporter struct {
	ch   chan Status
	last Status
	sent bool
}

func (r *reporter) emit(ctx context.Context, s Status) {
	if r.sent && s.Stage == r.last.Stage && s.Percent == r.last.Percent && s.Count == r.last.Count {
		return
	}
	r.last = s
	r.sent = true
	// Use buffer room even when ctx is already done, so the terminal
	// status of a cancelled run still reaches the reader.
	select {
	case r.ch <- s:
		return
	default:
	}
	select {
	case r.ch <- s:
	case <-ctx.Done():
	}
}
