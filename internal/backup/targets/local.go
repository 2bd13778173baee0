package targets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// LocalTarget stores archives in a directory on the local filesystem
type LocalTarget struct {
	path string
	log  logger.Logger
}

// NewLocalTarget creates a local target rooted at dir
func NewLocalTarget(dir string) (*LocalTarget, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.Newf("local: path is required").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(err).Component("backup").Category(errors.CategoryConfiguration).Build()
	}
	return &LocalTarget{path: abs, log: backup.GetLogger().With(logger.String("target", "local"))}, nil
}

// NewLocalTargetFromMap creates a local target from config settings
func NewLocalTargetFromMap(settings map[string]any) (*LocalTarget, error) {
	p := NewSettingsParser("local", settings)
	dir := p.OptionalPath("path", "backups")
	if err := p.Error(); err != nil {
		return nil, err
	}
	return NewLocalTarget(dir)
}

// Name returns the name of this target
func (t *LocalTarget) Name() string { return "local" }

// Path returns the directory archives are stored in
func (t *LocalTarget) Path() string { return t.path }

// Store copies the archive and writes its metadata sidecar
func (t *LocalTarget) Store(ctx context.Context, archivePath string, metadata *backup.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(metadata.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(t.path, PermDir); err != nil {
		return targetError(t.Name(), err, "create_directory")
	}
	if err := t.checkFreeSpace(archivePath); err != nil {
		return err
	}

	dst := filepath.Join(t.path, archiveName(metadata.ID))
	err := atomicWriteFile(dst, func(w io.Writer) error {
		src, err := os.Open(archivePath) //nolint:gosec // archive built by the backup manager
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = io.Copy(w, contextReader{ctx: ctx, r: src})
		return err
	})
	if err != nil {
		return targetError(t.Name(), err, "copy_archive")
	}

	data, err := encodeMetadata(metadata)
	if err != nil {
		return targetError(t.Name(), err, "encode_metadata")
	}
	err = atomicWriteFile(filepath.Join(t.path, metadataName(metadata.ID)), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		_ = os.Remove(dst)
		return targetError(t.Name(), err, "write_metadata")
	}

	t.log.Debug("stored backup", logger.String("path", dst))
	return nil
}

// checkFreeSpace requires the archive size plus 10% to be free
func (t *LocalTarget) checkFreeSpace(archivePath string) error {
	info, err := os.Stat(archivePath)
	if err != nil {
		return targetError(t.Name(), err, "stat_archive")
	}
	usage, err := disk.Usage(t.path)
	if err != nil {
		// not every filesystem reports usage
		t.log.Debug("free space check skipped", logger.Error(err))
		return nil
	}
	required := uint64(float64(info.Size()) * 1.1)
	if usage.Free < required {
		return errors.Newf("insufficient disk space: need %d bytes, have %d bytes", required, usage.Free).
			Component("backup").
			Category(errors.CategorySystem).
			Context("target", t.Name()).
			Build()
	}
	return nil
}

// List returns archives that have a metadata sidecar, newest first
func (t *LocalTarget) List(ctx context.Context) ([]backup.BackupInfo, error) {
	entries, err := os.ReadDir(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []backup.BackupInfo{}, nil
		}
		return nil, targetError(t.Name(), err, "list")
	}

	var out []backup.BackupInfo
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := idFromMetadataName(entry.Name()); !ok {
			continue
		}
		f, err := os.Open(filepath.Join(t.path, entry.Name()))
		if err != nil {
			t.log.Warn("failed to open backup metadata", logger.String("file", entry.Name()), logger.Error(err))
			continue
		}
		meta, err := decodeMetadata(f)
		_ = f.Close()
		if err != nil {
			t.log.Warn("invalid backup metadata", logger.String("file", entry.Name()), logger.Error(err))
			continue
		}
		out = append(out, backup.BackupInfo{Metadata: meta, Target: t.Name()})
	}
	backup.SortNewestFirst(out)
	return out, nil
}

// Delete removes an archive and its sidecar
func (t *LocalTarget) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	var errs []error
	for _, name := range []string{archiveName(id), metadataName(id)} {
		if err := os.Remove(filepath.Join(t.path, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return targetError(t.Name(), errors.Join(errs...), "delete")
	}
	return nil
}

// Validate checks the directory can be created and written
func (t *LocalTarget) Validate() error {
	if err := os.MkdirAll(t.path, PermDir); err != nil {
		return targetError(t.Name(), err, "create_directory")
	}
	probe, err := os.CreateTemp(t.path, ".write-test-*")
	if err != nil {
		return targetError(t.Name(), err, "write_test")
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// atomicWriteFile writes through a temporary file in the target directory
// and renames it into place
func atomicWriteFile(targetPath string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(targetPath), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(PermFile); err != nil {
		return err
	}
	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return err
	}
	success = true
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
