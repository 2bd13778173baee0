package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBufferSize    = 32 * 1024
	DefaultFlushInterval = 5 * time.Second

	logFilePermissions = 0o600
)

// BufferedFileWriter is a thread-safe buffered log file with periodic
// flushing and optional size-based rotation.
type BufferedFileWriter struct {
	mu          sync.Mutex
	file        *os.File
	writer      *bufio.Writer
	filePath    string
	bufferSize  int
	size        int64
	maxSize     int64
	maxRotated  int
	interval    time.Duration
	stopFlush   chan struct{}
	flushDone   chan struct{}
	closed      bool
	now         func() time.Time
}

// BufferedWriterOption configures a BufferedFileWriter
type BufferedWriterOption func(*BufferedFileWriter)

// WithBufferSize sets the buffer size
func WithBufferSize(size int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if size > 0 {
			w.bufferSize = size
		}
	}
}

// WithFlushInterval sets the auto-flush interval. Zero disables auto-flush.
func WithFlushInterval(interval time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		w.interval = interval
	}
}

// WithRotation rotates the file once it grows past maxBytes, keeping at most
// maxRotated old files (0 keeps all).
func WithRotation(maxBytes int64, maxRotated int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		w.maxSize = maxBytes
		w.maxRotated = maxRotated
	}
}

// NewBufferedFileWriter opens filePath in append mode
func NewBufferedFileWriter(filePath string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		filePath:   filePath,
		bufferSize: DefaultBufferSize,
		interval:   DefaultFlushInterval,
		stopFlush:  make(chan struct{}),
		flushDone:  make(chan struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.openLocked(); err != nil {
		return nil, err
	}

	if w.interval > 0 {
		go w.autoFlushLoop()
	} else {
		close(w.flushDone)
	}
	return w, nil
}

func (w *BufferedFileWriter) openLocked() error {
	file, err := os.OpenFile(w.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", w.filePath, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file %s: %w", w.filePath, err)
	}
	w.file = file
	w.size = info.Size()
	w.writer = bufio.NewWriterSize(file, w.bufferSize)
	return nil
}

func (w *BufferedFileWriter) autoFlushLoop() {
	defer close(w.flushDone)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopFlush:
			return
		case <-ticker.C:
			_ = w.Flush()
		}
	}
}

// Write buffers p, rotating the file first when it would exceed the size limit
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	if w.maxSize > 0 && w.size+int64(len(p)) > w.maxSize && w.size > 0 {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := w.writer.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *BufferedFileWriter) rotateLocked() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush before rotation: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file for rotation: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s", w.filePath, w.now().Format("20060102-150405.000"))
	if err := os.Rename(w.filePath, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if err := w.openLocked(); err != nil {
		return err
	}
	w.pruneRotatedLocked()
	return nil
}

func (w *BufferedFileWriter) pruneRotatedLocked() {
	if w.maxRotated <= 0 {
		return
	}
	matches, err := filepath.Glob(w.filePath + ".*")
	if err != nil || len(matches) <= w.maxRotated {
		return
	}
	// timestamp suffixes sort chronologically
	slices.SortFunc(matches, strings.Compare)
	for _, old := range matches[:len(matches)-w.maxRotated] {
		_ = os.Remove(old)
	}
}

// Flush writes the buffer to the OS without fsync
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close flushes, syncs and closes the file. Safe to call more than once.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.interval > 0 {
		close(w.stopFlush)
	}
	<-w.flushDone

	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if err := w.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush buffer: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync file: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close file: %w", err))
	}
	w.file = nil
	w.writer = nil
	return errors.Join(errs...)
}

// FilePath returns the path of the active log file
func (w *BufferedFileWriter) FilePath() string {
	return w.filePath
}
