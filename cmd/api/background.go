package main

import (
	"context"
	"time"
)

// reconcileStalePayments polls the gateway for payments whose webhook never
// arrived. It stops when ctx is cancelled.
func (app *application) reconcileStalePayments(ctx context.Context) {
	cfg := app.config.reconcile
	if cfg.interval <= 0 {
		app.logger.Infow("stale payment reconciler disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.interval)
		defer ticker.Stop()

		for {
			app.reconcileOnce(ctx)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (app *application) reconcileOnce(ctx context.Context) {
	cfg := app.config.reconcile

	runCtx, cancel := context.WithTimeout(ctx, cfg.interval)
	defer cancel()

	batch, err := app.billing.ReconcileStale(runCtx, cfg.staleAfter, cfg.batchSize)
	if err != nil {
		app.logger.Errorw("error reconciling stale payments", "error", err.Error())
		return
	}
	if len(batch.Results) == 0 {
		return
	}
	app.logger.Infow("reconciled stale payments",
		"checked", len(batch.Results),
		"updated", batch.Updated,
		"failed", batch.Failed,
	)
}
