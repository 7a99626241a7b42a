package cron

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
)

// usageLogRetention is how long per-request analytics rows are kept.
const usageLogRetention = 90 * 24 * time.Hour

// PruneRequestWindows rewrites request_counts for keys whose stored
// window still holds timestamps older than the rate window. Admission
// already ignores stale entries; this just keeps rows from growing on
// keys that went quiet.
func (m *Manager) PruneRequestWindows() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	keys, err := m.store.KeysWithRequestLogs(ctx)
	if err != nil {
		logrus.WithError(err).Error("cron: failed to list keys with request logs")
		return
	}

	now := time.Now()
	pruned := 0

	for i := range keys {
		key := &keys[i]
		stamps := key.Timestamps()
		kept := services.PruneWindow(stamps, now)
		if len(kept) == len(stamps) {
			continue
		}

		err := m.store.UpdateFields(ctx, key.Token, map[string]interface{}{
			"request_counts": model.EncodeTimestamps(kept),
		})
		if err != nil {
			logrus.WithError(err).Warnf("cron: failed to prune window for %s", model.MaskToken(key.Token))
			continue
		}
		pruned++
	}

	if pruned > 0 {
		logrus.Infof("cron: pruned request windows for %d keys", pruned)
	}
}

// PruneUsageLogs deletes usage log rows older than the retention
// horizon.
func (m *Manager) PruneUsageLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := m.store.PruneUsageLogs(ctx, time.Now().Add(-usageLogRetention))
	if err != nil {
		logrus.WithError(err).Error("cron: failed to prune usage logs")
		return
	}
	if removed > 0 {
		logrus.Infof("cron: removed %d expired usage log rows", removed)
	}
}
