package targets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// SFTPTargetConfig holds configuration for the SFTP target
type SFTPTargetConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string
	KnownHostsFile string
	BasePath       string
	Timeout        time.Duration
}

// sftpDialer opens a client session; closing the returned closer ends it
type sftpDialer func(ctx context.Context) (*sftp.Client, io.Closer, error)

// SFTPTarget stores archives on an SFTP server
type SFTPTarget struct {
	config SFTPTargetConfig
	log    logger.Logger
	dial   sftpDialer
}

// NewSFTPTarget creates an SFTP target
func NewSFTPTarget(config SFTPTargetConfig) (*SFTPTarget, error) {
	if config.Port == 0 {
		config.Port = DefaultSSHPort
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.BasePath == "" {
		config.BasePath = "backups"
	}
	t := &SFTPTarget{config: config, log: backup.GetLogger().With(logger.String("target", "sftp"))}
	t.dial = t.dialSSH
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewSFTPTargetFromMap creates an SFTP target from config settings
func NewSFTPTargetFromMap(settings map[string]any) (*SFTPTarget, error) {
	p := NewSettingsParser("sftp", settings)
	cfg := SFTPTargetConfig{
		Host:           p.RequireString("host"),
		Port:           p.OptionalInt("port", DefaultSSHPort),
		Username:       p.RequireString("username"),
		Password:       p.OptionalString("password", ""),
		KeyFile:        p.OptionalString("key_file", ""),
		KnownHostsFile: p.OptionalString("known_hosts_file", ""),
		BasePath:       p.OptionalPath("path", "backups"),
		Timeout:        p.OptionalDuration("timeout", DefaultTimeout),
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return NewSFTPTarget(cfg)
}

// Name returns the name of this target
func (t *SFTPTarget) Name() string { return "sftp" }

// Validate checks the configuration without connecting
func (t *SFTPTarget) Validate() error {
	var problems []string
	if strings.TrimSpace(t.config.Host) == "" {
		problems = append(problems, "host is required")
	}
	if t.config.Username == "" {
		problems = append(problems, "username is required")
	}
	if t.config.Port <= 0 || t.config.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d", t.config.Port))
	}
	if t.config.Password == "" && t.config.KeyFile == "" {
		problems = append(problems, "password or key_file is required")
	}
	if len(problems) > 0 {
		return errors.Newf("sftp: %s", strings.Join(problems, "; ")).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func (t *SFTPTarget) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.config.KeyFile != "" {
		key, err := os.ReadFile(t.config.KeyFile)
		if err != nil {
			return nil, errors.New(err).Component("backup").Category(errors.CategoryConfiguration).
				Context("key_file", t.config.KeyFile).Build()
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.New(err).Component("backup").Category(errors.CategoryConfiguration).
				Context("key_file", t.config.KeyFile).Build()
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.config.Password != "" {
		methods = append(methods, ssh.Password(t.config.Password))
	}
	return methods, nil
}

func (t *SFTPTarget) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if t.config.KnownHostsFile == "" {
		t.log.Warn("no known_hosts_file configured, host key is not verified",
			logger.String("host", t.config.Host))
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-out when known_hosts_file is unset
	}
	cb, err := knownhosts.New(t.config.KnownHostsFile)
	if err != nil {
		return nil, errors.New(err).Component("backup").Category(errors.CategoryConfiguration).
			Context("known_hosts_file", t.config.KnownHostsFile).Build()
	}
	return cb, nil
}

type sshSession struct {
	client *sftp.Client
	ssh    *ssh.Client
}

func (s sshSession) Close() error {
	return errors.Join(s.client.Close(), s.ssh.Close())
}

func (t *SFTPTarget) dialSSH(ctx context.Context) (*sftp.Client, io.Closer, error) {
	auth, err := t.authMethods()
	if err != nil {
		return nil, nil, err
	}
	hostKey, err := t.hostKeyCallback()
	if err != nil {
		return nil, nil, err
	}

	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	dialer := net.Dialer{Timeout: t.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, targetError(t.Name(), err, "connect")
	}

	cfg := &ssh.ClientConfig{
		User:            t.config.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         t.config.Timeout,
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryAuthentication).
			Context("target", t.Name()).
			Build()
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, targetError(t.Name(), err, "sftp_session")
	}
	return client, sshSession{client: client, ssh: sshClient}, nil
}

func (t *SFTPTarget) withClient(ctx context.Context, op func(*sftp.Client) error) error {
	client, closer, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			t.log.Debug("failed to close SFTP session", logger.Error(err))
		}
	}()
	return op(client)
}

// Store uploads the archive under a temporary name, renames it into place
// and writes the metadata sidecar
func (t *SFTPTarget) Store(ctx context.Context, archivePath string, metadata *backup.Metadata) error {
	if err := validateID(metadata.ID); err != nil {
		return err
	}
	data, err := encodeMetadata(metadata)
	if err != nil {
		return targetError(t.Name(), err, "encode_metadata")
	}

	return t.withClient(ctx, func(client *sftp.Client) error {
		if err := client.MkdirAll(t.config.BasePath); err != nil {
			return targetError(t.Name(), err, "mkdir")
		}

		final := path.Join(t.config.BasePath, archiveName(metadata.ID))
		tmp := path.Join(t.config.BasePath, fmt.Sprintf(".upload-%d.tmp", time.Now().UnixNano()))
		if err := uploadFile(ctx, client, archivePath, tmp); err != nil {
			_ = client.Remove(tmp)
			return targetError(t.Name(), err, "upload_archive")
		}
		if err := renameReplace(client, tmp, final); err != nil {
			_ = client.Remove(tmp)
			return targetError(t.Name(), err, "rename_archive")
		}

		if err := writeRemote(client, path.Join(t.config.BasePath, metadataName(metadata.ID)), data); err != nil {
			_ = client.Remove(final)
			return targetError(t.Name(), err, "upload_metadata")
		}
		return nil
	})
}

func uploadFile(ctx context.Context, client *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath) //nolint:gosec // archive built by the backup manager
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := client.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, contextReader{ctx: ctx, r: src}); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func writeRemote(client *sftp.Client, remotePath string, data []byte) error {
	f, err := client.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renameReplace prefers the posix-rename extension, which overwrites
func renameReplace(client *sftp.Client, from, to string) error {
	if err := client.PosixRename(from, to); err == nil {
		return nil
	}
	_ = client.Remove(to)
	return client.Rename(from, to)
}

// List reads every metadata sidecar, newest first
func (t *SFTPTarget) List(ctx context.Context) ([]backup.BackupInfo, error) {
	var out []backup.BackupInfo
	err := t.withClient(ctx, func(client *sftp.Client) error {
		entries, err := client.ReadDir(t.config.BasePath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return targetError(t.Name(), err, "list")
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.IsDir() {
				continue
			}
			if _, ok := idFromMetadataName(entry.Name()); !ok {
				continue
			}
			meta, err := readRemoteMetadata(client, path.Join(t.config.BasePath, entry.Name()))
			if err != nil {
				t.log.Warn("invalid backup metadata", logger.String("file", entry.Name()), logger.Error(err))
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

func readRemoteMetadata(client *sftp.Client, remotePath string) (backup.Metadata, error) {
	f, err := client.Open(remotePath)
	if err != nil {
		return backup.Metadata{}, err
	}
	defer func() { _ = f.Close() }()
	return decodeMetadata(f)
}

// Delete removes an archive and its sidecar
func (t *SFTPTarget) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return t.withClient(ctx, func(client *sftp.Client) error {
		if err := client.Remove(path.Join(t.config.BasePath, archiveName(id))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return targetError(t.Name(), err, "delete")
		}
		if err := client.Remove(path.Join(t.config.BasePath, metadataName(id))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return targetError(t.Name(), err, "delete_metadata")
		}
		return nil
	})
}
