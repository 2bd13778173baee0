// Package backup archives every portal collection into a zip file and copies
// the archive to the configured targets, pruning old archives per target.
package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/store"
)

const (
	MetadataVersion = 1
	ArchiveExt      = ".zip"
	MetadataExt     = ".meta"
	IDPrefix        = "trainingportal-backup-"

	defaultTargetTimeout = 15 * time.Minute
	idTimeFormat         = "20060102-150405"
)

// ErrBackupInProgress is returned when Run is called during another run
var ErrBackupInProgress = errors.NewStd("backup already in progress")

// Metadata describes one archive
type Metadata struct {
	Version      int       `json:"version"`
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Backend      string    `json:"backend"`
	Collections  []string  `json:"collections"`
	OriginalSize int64     `json:"original_size"`
	Size         int64     `json:"size,omitempty"`
	Checksum     string    `json:"checksum,omitempty"` // sha256 of the archive
	AppVersion   string    `json:"app_version,omitempty"`
}

// ArchiveName is the file name of the archive
func (m *Metadata) ArchiveName() string { return m.ID + ArchiveExt }

// MetadataName is the file name of the metadata sidecar
func (m *Metadata) MetadataName() string { return m.ArchiveName() + MetadataExt }

// BackupInfo is an archive stored on a target
type BackupInfo struct {
	Metadata
	Target string `json:"target"`
}

// Target is a destination for archives
type Target interface {
	// Name identifies the target in logs and metrics
	Name() string
	// Store copies the archive at archivePath together with its metadata
	Store(ctx context.Context, archivePath string, metadata *Metadata) error
	// List returns stored archives, newest first
	List(ctx context.Context) ([]BackupInfo, error)
	// Delete removes the archive with id
	Delete(ctx context.Context, id string) error
	// Validate checks the target configuration
	Validate() error
}

// Manager runs backups of a store to a set of targets
type Manager struct {
	store      store.Store
	targets    []Target
	retention  conf.BackupRetention
	tempDir    string
	appVersion string
	metrics    *metrics.IntegrationMetrics
	now        func() time.Time
	log        logger.Logger

	running sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithRetention sets how many archives each target keeps
func WithRetention(r conf.BackupRetention) Option {
	return func(m *Manager) { m.retention = r }
}

// WithTempDir sets where archives are built
func WithTempDir(dir string) Option {
	return func(m *Manager) { m.tempDir = dir }
}

// WithAppVersion is recorded in the metadata
func WithAppVersion(v string) Option {
	return func(m *Manager) { m.appVersion = v }
}

// WithMetrics records backup runs
func WithMetrics(im *metrics.IntegrationMetrics) Option {
	return func(m *Manager) { m.metrics = im }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager backing up st to targets
func NewManager(st store.Store, targets []Target, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		targets: targets,
		now:     time.Now,
		log:     GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Targets returns the configured targets
func (m *Manager) Targets() []Target {
	return m.targets
}

// Run archives the store and copies the archive to every target. Targets
// are written concurrently and a failing target does not stop the others.
// The metadata is returned when at least one target stored the archive.
func (m *Manager) Run(ctx context.Context) (*Metadata, error) {
	if !m.running.TryLock() {
		return nil, ErrBackupInProgress
	}
	defer m.running.Unlock()

	if len(m.targets) == 0 {
		return nil, errors.Newf("no backup targets configured").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}

	start := m.now()
	tempDir, err := os.MkdirTemp(m.tempDir, "backup-*")
	if err != nil {
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_dir").
			Build()
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			m.log.Warn("failed to remove temporary backup directory", logger.String("path", tempDir), logger.Error(err))
		}
	}()

	meta := &Metadata{
		Version:    MetadataVersion,
		ID:         IDPrefix + start.UTC().Format(idTimeFormat),
		Timestamp:  start.UTC(),
		Backend:    m.store.Name(),
		AppVersion: m.appVersion,
	}
	archivePath := filepath.Join(tempDir, meta.ArchiveName())

	m.log.Info("starting backup", logger.String("id", meta.ID), logger.Int("targets", len(m.targets)))
	if err := WriteArchive(ctx, m.store, archivePath, meta); err != nil {
		m.metrics.RecordBackupRun(m.now().Sub(start), 0)
		return nil, err
	}

	var (
		mu     sync.Mutex
		errs   []error
		stored int
		g      errgroup.Group
	)
	for _, target := range m.targets {
		g.Go(func() error {
			err := m.storeInTarget(ctx, target, archivePath, meta)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			} else {
				stored++
			}
			return nil
		})
	}
	_ = g.Wait()

	m.metrics.RecordBackupRun(m.now().Sub(start), meta.Size)
	if stored == 0 {
		return nil, errors.New(errors.Join(errs...)).
			Component("backup").
			Category(errors.CategoryBackup).
			Context("backup_id", meta.ID).
			Build()
	}

	m.log.Info("backup completed",
		logger.String("id", meta.ID),
		logger.Int64("size", meta.Size),
		logger.Int("stored", stored),
		logger.Int("failed", len(errs)),
		logger.Duration("duration", m.now().Sub(start)))
	if len(errs) > 0 {
		return meta, errors.Join(errs...)
	}
	return meta, nil
}

func (m *Manager) storeInTarget(ctx context.Context, target Target, archivePath string, meta *Metadata) error {
	tctx, cancel := context.WithTimeout(ctx, defaultTargetTimeout)
	defer cancel()

	err := target.Store(tctx, archivePath, meta)
	m.metrics.RecordBackupTarget(target.Name(), err)
	if err != nil {
		m.log.Error("failed to store backup",
			logger.String("target", target.Name()),
			logger.String("id", meta.ID),
			logger.Error(err))
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryBackup).
			Context("target", target.Name()).
			Build()
	}

	if err := m.prune(tctx, target); err != nil {
		// the archive is stored, pruning can catch up next run
		m.log.Warn("failed to prune old backups", logger.String("target", target.Name()), logger.Error(err))
	}
	return nil
}
