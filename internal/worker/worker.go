// Package worker drains a job's parsed records into the record store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/domainimport/domainimport/internal/job"
	"github.com/domainimport/domainimport/internal/record"
	"github.com/domainimport/domainimport/internal/store"
)

// ProgressFunc est appelé après chaque enregistrement traité.
type ProgressFunc func(job.Snapshot)

// Worker inserts Records one at a time and advances Job after each insert.
type Worker struct {
	Job        *job.Job
	Records    []record.Record
	Store      store.Store
	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Run processes the records in order and returns the final snapshot.
// Each insert and its status update happen under a single acquisition of the
// job lock. The first failure moves the job to Failed and stops the run.
// A cancelled ctx stops the run between records without touching the job.
func (w *Worker) Run(ctx context.Context) job.Snapshot {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("job_id", w.Job.ID, "total", w.Job.Total)
	log.Info("import started")

	snap := w.Job.Snapshot()
	for i := range w.Records {
		if snap.Status.IsTerminal() {
			break
		}
		if err := ctx.Err(); err != nil {
			log.Warn("import interrupted", "processed", snap.Processed, "error", err)
			return snap
		}

		rec := &w.Records[i]
		snap = w.Job.Advance(func() error {
			return w.insert(ctx, rec)
		})
		if w.OnProgress != nil {
			w.OnProgress(snap)
		}
	}

	switch snap.Status {
	case job.StateDone:
		log.Info("import finished", "processed", snap.Processed)
	case job.StateFailed:
		log.Error("import failed", "processed", snap.Processed, "error", *snap.ErrMsg)
	}
	return snap
}

// insert turns a panic in the store into an error so the job fails cleanly.
func (w *Worker) insert(ctx context.Context, rec *record.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("insert panicked", "domain", rec.DomainName, "panic", r, "stack", string(debug.Stack()))
			err = job.NewError(job.KindStore, "insert panicked", fmt.Errorf("%v", r))
		}
	}()
	if _, err := w.Store.Insert(ctx, rec); err != nil {
		return job.NewError(job.KindStore, "insert "+rec.DomainName, err)
	}
	return nil
}
