package logctl

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// rotatingWriter renames its target file to a timestamped name and reopens
// a fresh one under the original name before a write would take the
// current file past maxBytes. No pack example imports a rotation
// library, so this stays a small hand-rolled size check on the standard
// library rather than reaching for a third-party one.
type rotatingWriter struct {
	mu       sync.Mutex
	dir      string
	base     string
	maxBytes int64
	f        *os.File
	size     int64
}

func newRotatingWriter(dir, base string, maxBytes int64) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	w := &rotatingWriter{dir: dir, base: base, maxBytes: maxBytes}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) open() error {
	p := filepath.Join(w.dir, w.base)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.f = f
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotatingWriter) rotate() error {
	if w.f != nil {
		w.f.Close()
	}
	p := filepath.Join(w.dir, w.base)
	rotated := filepath.Join(w.dir, w.base+"."+time.Now().UTC().Format("20060102T150405"))
	_ = os.Rename(p, rotated)
	return w.open()
}

func (w *rotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}
