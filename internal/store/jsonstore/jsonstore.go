// Package jsonstore persists collections as <collection>.json files in one directory.
package jsonstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/store"
)

const (
	backendName = "json"
	fileExt     = ".json"
	filePerm    = 0o644
	dirPerm     = 0o755
)

// Store is a file-backed store.Store. In global lock mode every Load and
// Save across all collections is serialized through one gate; in per-file
// mode each collection has its own gate.
type Store struct {
	fs       afero.Fs
	dir      string
	lockMode string
	metrics  *metrics.StoreMetrics

	gate      sync.Mutex
	fileMu    sync.Mutex
	fileGates map[string]*sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithFs replaces the OS filesystem, mostly for tests
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithLockMode selects conf.LockModeGlobal or conf.LockModePerFile
func WithLockMode(mode string) Option {
	return func(s *Store) { s.lockMode = mode }
}

// WithMetrics records operation counts and latency
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates the data directory if needed and returns a store rooted there
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		fs:        afero.NewOsFs(),
		dir:       dir,
		lockMode:  conf.LockModeGlobal,
		fileGates: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.New(err).
			Component("jsonstore").
			Category(errors.CategoryFileIO).
			Context("operation", "create_data_dir").
			Context("dir", dir).
			Build()
	}

	GetLogger().Debug("json store ready",
		logger.String("dir", dir),
		logger.String("lock_mode", s.lockMode))
	return s, nil
}

// Name implements store.Store
func (s *Store) Name() string { return backendName }

// Dir returns the data directory
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing a collection
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dir, collection+fileExt)
}

// Load implements store.Store
func (s *Store) Load(collection string) ([]byte, error) {
	if err := store.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	unlock := s.lock(collection)
	defer unlock()

	start := time.Now()
	data, err := afero.ReadFile(s.fs, s.Path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.RecordOperation(backendName, metrics.OpLoad, collection, metrics.StatusNotFound, time.Since(start))
			return nil, store.ErrCollectionNotFound
		}
		s.metrics.RecordOperation(backendName, metrics.OpLoad, collection, metrics.StatusError, time.Since(start))
		return nil, errors.New(err).
			Component("jsonstore").
			Category(errors.CategoryFileIO).
			Context("operation", "read_collection").
			Context("collection", collection).
			Build()
	}

	s.metrics.RecordOperation(backendName, metrics.OpLoad, collection, metrics.StatusSuccess, time.Since(start))
	return data, nil
}

// Save implements store.Store. Data is written to a temp file in the same
// directory and renamed over the collection file.
func (s *Store) Save(collection string, data []byte) error {
	if err := store.ValidateCollectionName(collection); err != nil {
		return err
	}
	unlock := s.lock(collection)
	defer unlock()

	start := time.Now()
	if err := s.writeFile(collection, data); err != nil {
		s.metrics.RecordOperation(backendName, metrics.OpSave, collection, metrics.StatusError, time.Since(start))
		return errors.New(err).
			Component("jsonstore").
			Category(errors.CategoryFileIO).
			Context("operation", "write_collection").
			Context("collection", collection).
			Build()
	}

	s.metrics.RecordOperation(backendName, metrics.OpSave, collection, metrics.StatusSuccess, time.Since(start))
	s.metrics.RecordBytesWritten(backendName, collection, len(data))
	GetLogger().Trace("collection saved",
		logger.String("collection", collection),
		logger.Int("bytes", len(data)))
	return nil
}

func (s *Store) writeFile(collection string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, s.dir, collection+fileExt+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		GetLogger().Debug("could not set collection file mode", logger.Error(err))
	}
	if err := s.fs.Rename(tmpName, s.Path(collection)); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

// lock acquires the gate for collection and returns its release func
func (s *Store) lock(collection string) func() {
	start := time.Now()
	var mu *sync.Mutex
	if s.lockMode == conf.LockModePerFile {
		s.fileMu.Lock()
		mu = s.fileGates[collection]
		if mu == nil {
			mu = &sync.Mutex{}
			s.fileGates[collection] = mu
		}
		s.fileMu.Unlock()
	} else {
		mu = &s.gate
	}
	mu.Lock()
	s.metrics.RecordLockWait(backendName, s.lockMode, time.Since(start))
	return mu.Unlock
}

// GetLogger returns the json store module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("store").Module("json")
}
