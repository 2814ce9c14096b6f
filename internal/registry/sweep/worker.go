// Package sweep flips the expiry flag on pending workflow steps whose
// document due date passed. The engine itself never sets the flag; this
// worker is the periodic sweep the data model assumes.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"chancery/internal/registry/service"
)

const defaultInterval = time.Hour

// Worker runs the due-date sweep on a ticker.
type Worker struct {
	documents service.DocumentStore
	ledger    service.Ledger
	logger    *slog.Logger
	interval  time.Duration
}

func NewWorker(documents service.DocumentStore, ledger service.Ledger, logger *slog.Logger) *Worker {
	return &Worker{
		documents: documents,
		ledger:    ledger,
		logger:    logger,
		interval:  defaultInterval,
	}
}

// WithInterval overrides the sweep interval. Tests use short intervals.
func (w *Worker) WithInterval(d time.Duration) *Worker {
	w.interval = d
	return w
}

// Run sweeps until the context is cancelled. Sweep failures are logged and
// retried next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.SweepOnce(ctx, time.Now()); err != nil {
				w.logger.WarnContext(ctx, "due-date sweep failed",
					"error", err,
				)
			}
		}
	}
}

// SweepOnce expires pending steps for every overdue document.
func (w *Worker) SweepOnce(ctx context.Context, now time.Time) error {
	overdue, err := w.documents.ListOverdue(ctx, now)
	if err != nil {
		return err
	}
	total := 0
	for _, docID := range overdue {
		n, err := w.ledger.ExpirePending(ctx, docID, now)
		if err != nil {
			return err
		}
		total += n
	}
	if total > 0 {
		w.logger.InfoContext(ctx, "expired pending workflow steps",
			"documents", len(overdue),
			"steps", total,
		)
	}
	return nil
}
