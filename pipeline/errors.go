package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-shelves/scraper"
	"github.com/aluiziolira/go-scrape-shelves/store"
)

// Ingestion steps reported by IngestionError.
const (
	StepIdentify = "identify"
	StepProfile  = "profile"
	StepFeed     = "feed"
	StepDecode   = "decode"
)

// InvalidReferenceError reports a profile reference without a numeric user id.
type InvalidReferenceError struct {
	Ref string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid profile reference %q: no numeric user id", e.Ref)
}

// IngestionError wraps a fatal failure of one ingestion step.
type IngestionError struct {
	Step string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Step, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed store operation during reconciliation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrorKind returns a stable label for err, used in results, logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var invalid *InvalidReferenceError
	if errors.As(err, &invalid) {
		return "invalid_reference"
	}
	var fetchErr scraper.FetchError
	if errors.As(err, &fetchErr) {
		return "fetch"
	}
	var ingestErr *IngestionError
	if errors.As(err, &ingestErr) {
		return "ingestion"
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return "persistence"
	}
	if errors.Is(err, store.ErrNotFound) {
		return "not_found"
	}
	return "other"
}
