package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/learnforge/trainingportal/internal/conf"
)

func TestExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	backups := []BackupInfo{
		{Metadata: Metadata{ID: "d3", Timestamp: now.Add(-3 * day)}},
		{Metadata: Metadata{ID: "d0", Timestamp: now}},
		{Metadata: Metadata{ID: "d9", Timestamp: now.Add(-9 * day)}},
		{Metadata: Metadata{ID: "d1", Timestamp: now.Add(-1 * day)}},
	}

	tests := []struct {
		name      string
		retention conf.BackupRetention
		want      []string
	}{
		{name: "no limits", retention: conf.BackupRetention{}, want: nil},
		{name: "max backups", retention: conf.BackupRetention{MaxBackups: 2}, want: []string{"d3", "d9"}},
		{name: "max age", retention: conf.BackupRetention{MaxAge: 2 * day}, want: []string{"d3", "d9"}},
		{name: "both", retention: conf.BackupRetention{MaxBackups: 3, MaxAge: 5 * day}, want: []string{"d9"}},
		{name: "newest always kept", retention: conf.BackupRetention{MaxBackups: 1, MaxAge: time.Nanosecond}, want: []string{"d1", "d3", "d9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, b := range Expired(backups, tt.retention, now) {
				got = append(got, b.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpiredKeepsSingleOldBackup(t *testing.T) {
	t.Parallel()

	old := []BackupInfo{{Metadata: Metadata{ID: "ancient", Timestamp: time.Unix(0, 0)}}}
	assert.Empty(t, Expired(old, conf.BackupRetention{MaxAge: time.Hour}, time.Now()))
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := []BackupInfo{
		{Metadata: Metadata{ID: "a", Timestamp: base}},
		{Metadata: Metadata{ID: "c", Timestamp: base.Add(2 * time.Hour)}},
		{Metadata: Metadata{ID: "b", Timestamp: base.Add(time.Hour)}},
	}
	SortNewestFirst(b)
	assert.Equal(t, "c", b[0].ID)
	assert.Equal(t, "b", b[1].ID)
	assert.Equal(t, "a", b[2].ID)
}
