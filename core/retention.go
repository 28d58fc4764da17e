package core

import (
	"context"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"go.uber.org/zap"
)

// RetentionCutoff returns the instant before which records expire.
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// SweepRetention deletes every record older than retentionDays. A non-positive
// retention disables the sweep.
func SweepRetention(ctx context.Context, store contract.MetricStore, retentionDays int, now time.Time, logger *zap.Logger) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cutoff := RetentionCutoff(now, retentionDays)
	removed, err := store.DeleteMetrics(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	logger.Info("retention sweep complete", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	return removed, nil
}
