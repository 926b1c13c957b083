package ingest

import "errors"

var (
	// ErrSource marks a source that cannot be opened or read. Fatal for the run.
	ErrSource = errors.New("seed source unreadable")
	// ErrMissingColumn marks a header without the id or name column.
	ErrMissingColumn = errors.New("seed source is missing a required column")
	// ErrInvalidConfig marks a parser configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid parser configuration")
	// ErrLoadState marks a failure to read the persisted state a run starts from.
	ErrLoadState = errors.New("load existing state")
	// ErrPersist marks a rejected batch commit. Nothing from the batch is visible.
	ErrPersist = errors.New("persist batch")
	// ErrRunInProgress marks a run refused because another one holds the run lock.
	ErrRunInProgress = errors.New("another seed run is in progress")
)
