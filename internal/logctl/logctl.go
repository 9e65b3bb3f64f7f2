// Package logctl owns duwop's process-wide logger and its runtime-mutable
// level, the way internal/settings.Manager owns a small piece of mutable
// process state behind an explicit setter in the teacher.
package logctl

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger  *zap.Logger
	current string
	saved   string // the configured default spec, restored by "Log reset"
)

// Init builds the process logger. spec follows the original duwop
// convention of "<component>:<level>" (e.g. "duwop:info", "duwop:debug").
// When toStderr is false and logDir is set, output goes to a rotating file
// under logDir instead of stderr.
func Init(spec string, toStderr bool, logDir string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := parseSpec(spec)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var writers []zapcore.WriteSyncer
	if toStderr || logDir == "" {
		writers = append(writers, zapcore.AddSync(os.Stderr))
	}
	if !toStderr && logDir != "" {
		w, err := newRotatingWriter(logDir, "duwop.log", 10*1024*1024)
		if err != nil {
			return fmt.Errorf("open log dir %s: %w", logDir, err)
		}
		writers = append(writers, w)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	logger = zap.New(core)
	current = spec
	saved = spec
	return nil
}

// L returns the current process logger. Safe to call before Init (returns a
// no-op logger) so packages can hold a reference at construction time.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// SetSpec switches the logger to a named preset ("debug", "trace") or an
// arbitrary "<component>:<level>" spec string, matching C8's
// "Log debug|trace" and "Log custom <spec>" management commands.
func SetSpec(spec string) error {
	lvl, err := parseSpec(spec)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	level.SetLevel(lvl)
	current = spec
	return nil
}

// Reset restores the logger to the spec it was initialized with, matching
// C8's "Log reset" command.
func Reset() error {
	mu.Lock()
	spec := saved
	mu.Unlock()
	return SetSpec(spec)
}

// CurrentSpec reports the active spec string, for diagnostics/tests.
func CurrentSpec() string {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// parseSpec accepts bare level names ("debug", "trace"), or
// "<component>:<level>" strings; trace maps to zap's Debug level since zap
// has no separate trace tier.
func parseSpec(spec string) (zapcore.Level, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}
	switch s {
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log spec: %q", spec)
	}
}
