package targets

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// FTPTargetConfig holds configuration for the FTP target
type FTPTargetConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	BasePath string
	Timeout  time.Duration
}

// FTPTarget stores archives on an FTP server. A connection is opened per
// operation.
type FTPTarget struct {
	config FTPTargetConfig
	log    logger.Logger
}

// NewFTPTarget creates an FTP target
func NewFTPTarget(config FTPTargetConfig) (*FTPTarget, error) {
	if config.Port == 0 {
		config.Port = DefaultFTPPort
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.BasePath == "" {
		config.BasePath = "backups"
	}
	t := &FTPTarget{config: config, log: backup.GetLogger().With(logger.String("target", "ftp"))}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewFTPTargetFromMap creates an FTP target from config settings
func NewFTPTargetFromMap(settings map[string]any) (*FTPTarget, error) {
	p := NewSettingsParser("ftp", settings)
	cfg := FTPTargetConfig{
		Host:     p.RequireString("host"),
		Port:     p.OptionalInt("port", DefaultFTPPort),
		Username: p.OptionalString("username", ""),
		Password: p.OptionalString("password", ""),
		BasePath: p.OptionalPath("path", "backups"),
		Timeout:  p.OptionalDuration("timeout", DefaultTimeout),
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return NewFTPTarget(cfg)
}

// Name returns the name of this target
func (t *FTPTarget) Name() string { return "ftp" }

// Validate checks the configuration without connecting
func (t *FTPTarget) Validate() error {
	if strings.TrimSpace(t.config.Host) == "" {
		return errors.Newf("ftp: host is required").Component("backup").Category(errors.CategoryConfiguration).Build()
	}
	if t.config.Port <= 0 || t.config.Port > 65535 {
		return errors.Newf("ftp: invalid port %d", t.config.Port).Component("backup").Category(errors.CategoryConfiguration).Build()
	}
	return nil
}

func (t *FTPTarget) addr() string {
	return net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
}

func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(t.addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(t.config.Timeout))
	if err != nil {
		return nil, targetError(t.Name(), err, "connect")
	}
	if t.config.Username != "" {
		if err := conn.Login(t.config.Username, t.config.Password); err != nil {
			_ = conn.Quit()
			return nil, errors.New(err).
				Component("backup").
				Category(errors.CategoryAuthentication).
				Context("target", t.Name()).
				Build()
		}
	}
	return conn, nil
}

func (t *FTPTarget) withConn(ctx context.Context, op func(*ftp.ServerConn) error) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			t.log.Debug("failed to close FTP connection", logger.Error(err))
		}
	}()
	return op(conn)
}

// makeDirAll creates every component of dir, ignoring already-exists replies
func makeDirAll(conn *ftp.ServerConn, dir string) {
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		_ = conn.MakeDir(current)
	}
}

// Store uploads the archive under a temporary name, renames it into place
// and uploads the metadata sidecar
func (t *FTPTarget) Store(ctx context.Context, archivePath string, metadata *backup.Metadata) error {
	if err := validateID(metadata.ID); err != nil {
		return err
	}
	data, err := encodeMetadata(metadata)
	if err != nil {
		return targetError(t.Name(), err, "encode_metadata")
	}

	return t.withConn(ctx, func(conn *ftp.ServerConn) error {
		makeDirAll(conn, t.config.BasePath)

		f, err := os.Open(archivePath) //nolint:gosec // archive built by the backup manager
		if err != nil {
			return targetError(t.Name(), err, "open_archive")
		}
		defer func() { _ = f.Close() }()

		final := path.Join(t.config.BasePath, archiveName(metadata.ID))
		tmp := path.Join(t.config.BasePath, fmt.Sprintf(".upload-%d.tmp", time.Now().UnixNano()))
		if err := conn.Stor(tmp, contextReader{ctx: ctx, r: f}); err != nil {
			_ = conn.Delete(tmp)
			return targetError(t.Name(), err, "upload_archive")
		}
		if err := conn.Rename(tmp, final); err != nil {
			_ = conn.Delete(tmp)
			return targetError(t.Name(), err, "rename_archive")
		}
		if err := conn.Stor(path.Join(t.config.BasePath, metadataName(metadata.ID)), bytes.NewReader(data)); err != nil {
			_ = conn.Delete(final)
			return targetError(t.Name(), err, "upload_metadata")
		}
		return nil
	})
}

// List reads every metadata sidecar, newest first
func (t *FTPTarget) List(ctx context.Context) ([]backup.BackupInfo, error) {
	var out []backup.BackupInfo
	err := t.withConn(ctx, func(conn *ftp.ServerConn) error {
		entries, err := conn.List(t.config.BasePath)
		if err != nil {
			// missing directory means nothing stored yet
			t.log.Debug("listing backups failed", logger.Error(err))
			return nil
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.Type != ftp.EntryTypeFile {
				continue
			}
			if _, ok := idFromMetadataName(entry.Name); !ok {
				continue
			}
			resp, err := conn.Retr(path.Join(t.config.BasePath, entry.Name))
			if err != nil {
				t.log.Warn("failed to read backup metadata", logger.String("file", entry.Name), logger.Error(err))
				continue
			}
			meta, err := decodeMetadata(resp)
			_ = resp.Close()
			if err != nil {
				t.log.Warn("invalid backup metadata", logger.String("file", entry.Name), logger.Error(err))
				continue
			}
			out = append(out, backup.BackupInfo{Metadata: meta, Target: t.Name()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	backup.SortNewestFirst(out)
	return out, nil
}

// Delete removes an archive and its sidecar
func (t *FTPTarget) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return t.withConn(ctx, func(conn *ftp.ServerConn) error {
		if err := conn.Delete(path.Join(t.config.BasePath, archiveName(id))); err != nil {
			return targetError(t.Name(), err, "delete")
		}
		if err := conn.Delete(path.Join(t.config.BasePath, metadataName(id))); err != nil {
			t.log.Warn("failed to delete backup metadata", logger.String("id", id), logger.Error(err))
		}
		return nil
	})
}
