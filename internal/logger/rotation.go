package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const backupLayout = "20060102-150405.000"

// RotationPolicy controls when the log file is rotated and how long backups
// are kept.
type RotationPolicy struct {
	MaxSizeMB  int // 0 disables rotation
	MaxAgeDays int // 0 keeps backups forever
	Compress   bool
}

// RotatingWriter appends to a log file and moves it aside once a write would
// push it past the size limit. Backups are named <file>.<timestamp>[.gz].
type RotatingWriter struct {
	mu     sync.Mutex
	path   string
	policy RotationPolicy
	file   *os.File
	size   int64
	now    func() time.Time
}

func NewRotatingWriter(path string, policy RotationPolicy) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &RotatingWriter{path: path, policy: policy, now: time.Now}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.removeExpired()
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.exceeds(len(p)) {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close is safe to call more than once.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) exceeds(n int) bool {
	limit := int64(w.policy.MaxSizeMB) * 1024 * 1024
	return limit > 0 && w.size > 0 && w.size+int64(n) > limit
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	return nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backup := w.path + "." + w.now().Format(backupLayout)
	if err := os.Rename(w.path, backup); err != nil {
		return err
	}
	if w.policy.Compress {
		if err := gzipFile(backup); err != nil {
			return fmt.Errorf("failed to compress %s: %w", backup, err)
		}
	}
	if err := w.open(); err != nil {
		return err
	}
	w.removeExpired()
	return nil
}

// removeExpired deletes backups whose timestamp is older than MaxAgeDays.
// Files that merely share the log file's prefix are left alone.
func (w *RotatingWriter) removeExpired() {
	if w.policy.MaxAgeDays <= 0 {
		return
	}
	matches, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return
	}
	cutoff := w.now().AddDate(0, 0, -w.policy.MaxAgeDays)
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(m, w.path+"."), ".gz")
		taken, err := time.ParseInLocation(backupLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		if taken.Before(cutoff) {
			os.Remove(m)
		}
	}
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(dst)
	_, err = io.Copy(zw, src)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path + ".gz")
		return err
	}
	return os.Remove(path)
}
