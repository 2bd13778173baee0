package backup

import (
	"context"
	"slices"
	"time"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// Expired returns the backups retention r would remove. The newest backup
// is always kept; beyond that a backup expires when it is past MaxBackups
// or older than MaxAge. Zero limits are disabled.
func Expired(backups []BackupInfo, r conf.BackupRetention, now time.Time) []BackupInfo {
	sorted := slices.Clone(backups)
	SortNewestFirst(sorted)

	var out []BackupInfo
	for i, b := range sorted {
		if i == 0 {
			continue
		}
		if r.MaxBackups > 0 && i >= r.MaxBackups {
			out = append(out, b)
			continue
		}
		if r.MaxAge > 0 && now.Sub(b.Timestamp) > r.MaxAge {
			out = append(out, b)
		}
	}
	return out
}

// SortNewestFirst orders backups by timestamp, newest first
func SortNewestFirst(backups []BackupInfo) {
	slices.SortStableFunc(backups, func(a, b BackupInfo) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

func (m *Manager) prune(ctx context.Context, target Target) error {
	if m.retention.MaxBackups <= 0 && m.retention.MaxAge <= 0 {
		return nil
	}
	backups, err := target.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range Expired(backups, m.retention, m.now()) {
		if err := target.Delete(ctx, b.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		m.log.Info("removed old backup", logger.String("target", target.Name()), logger.String("id", b.ID))
	}
	return errors.Join(errs...)
}
