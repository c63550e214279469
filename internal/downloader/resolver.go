package downloader

import (
	"context"

	"go.uber.org/zap"
)

// Start is the seed state used when no download has been recorded yet.
// Quarter mirrors the configuration surface; it is only checked against the
// derived quarter, never used.
type Start struct {
	Period  Period
	Quarter int
}

// Resolver decides which period to attempt next.
type Resolver struct {
	records RecordStore
	start   Period
	logger  *zap.Logger
}

// NewResolver builds a Resolver over the record store.
func NewResolver(records RecordStore, start Start, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if start.Quarter != 0 && start.Quarter != start.Period.Quarter() {
		logger.Warn("configured start quarter does not match start month; using derived quarter",
			zap.Int("configured_quarter", start.Quarter),
			zap.Int("derived_quarter", start.Period.Quarter()),
			zap.Stringer("start", start.Period),
		)
	}
	return &Resolver{
		records: records,
		start:   start.Period,
		logger:  logger,
	}
}

// Resolve returns the month after the latest recorded download, or the
// configured start when there is no usable history. It never fails.
func (r *Resolver) Resolve(ctx context.Context) Period {
	if r.records == nil {
		return r.start
	}
	latest, ok, err := r.records.Latest(ctx)
	if err != nil {
		r.logger.Warn("query latest record failed; using configured start",
			zap.Error(err),
			zap.Stringer("start", r.start),
		)
		return r.start
	}
	if !ok {
		r.logger.Info("no recorded downloads; using configured start", zap.Stringer("start", r.start))
		return r.start
	}
	next := latest.Period().Next()
	r.logger.Info("resuming after latest record",
		zap.Stringer("latest", latest.Period()),
		zap.Int("latest_quarter", latest.Quarter),
		zap.Stringer("next", next),
	)
	return next
}
