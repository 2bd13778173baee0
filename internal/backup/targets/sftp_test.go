package targets

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnforge/trainingportal/internal/errors"
)

type pipeSession struct {
	client *sftp.Client
	done   chan struct{}
}

func (p pipeSession) Close() error {
	err := p.client.Close()
	<-p.done
	return err
}

// newPipeTarget serves each session from an in-process SFTP server
func newPipeTarget(t *testing.T) (*SFTPTarget, string) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "remote", "backups")

	target, err := NewSFTPTarget(SFTPTargetConfig{
		Host:     "backup.example.com",
		Username: "portal",
		Password: "secret",
		BasePath: filepath.ToSlash(base),
	})
	require.NoError(t, err)

	target.dial = func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		serverConn, clientConn := net.Pipe()
		server, err := sftp.NewServer(serverConn)
		if err != nil {
			return nil, nil, err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = server.Serve()
			_ = server.Close()
		}()
		client, err := sftp.NewClientPipe(clientConn, clientConn)
		if err != nil {
			_ = clientConn.Close()
			<-done
			return nil, nil, err
		}
		return client, pipeSession{client: client, done: done}, nil
	}
	return target, base
}

func TestSFTPTargetStoreListDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	target, base := newPipeTarget(t)

	list, err := target.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "missing directory lists as empty")

	ts := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	archive := writeArchive(t, "remote-zip")
	require.NoError(t, target.Store(ctx, archive, testMetadata("first", ts)))
	require.NoError(t, target.Store(ctx, archive, testMetadata("second", ts.Add(time.Minute))))

	data, err := os.ReadFile(filepath.Join(base, "first.zip"))
	require.NoError(t, err)
	assert.Equal(t, "remote-zip", string(data))

	list, err = target.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, "sftp", list[0].Target)
	assert.True(t, ts.Equal(list[1].Timestamp))

	require.NoError(t, target.Delete(ctx, "first"))
	require.NoError(t, target.Delete(ctx, "first"), "deleting twice is not an error")

	list, err = target.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].ID)

	leftovers, err := filepath.Glob(filepath.Join(base, ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSFTPTargetStoreOverwritesExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	target, base := newPipeTarget(t)

	meta := testMetadata("same", time.Now().UTC())
	require.NoError(t, target.Store(ctx, writeArchive(t, "v1"), meta))
	require.NoError(t, target.Store(ctx, writeArchive(t, "v2"), meta))

	data, err := os.ReadFile(filepath.Join(base, "same.zip"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestSFTPTargetMissingArchive(t *testing.T) {
	t.Parallel()
	target, _ := newPipeTarget(t)

	err := target.Store(context.Background(), filepath.Join(t.TempDir(), "absent.zip"), testMetadata("x", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBackup))
}

func TestSFTPTargetValidate(t *testing.T) {
	t.Parallel()

	_, err := NewSFTPTarget(SFTPTargetConfig{Host: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "password or key_file is required")

	target, err := NewSFTPTarget(SFTPTargetConfig{Host: "h", Username: "u", KeyFile: "/nonexistent/id_ed25519"})
	require.NoError(t, err, "key file is read on connect")
	_, err = target.authMethods()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
