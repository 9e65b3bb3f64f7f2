// Package management implements duwop's line-oriented management
// endpoint (spec C8): a loopback TCP listener that accepts
// newline-terminated requests and answers each with one
// newline-terminated response, per spec.md §4.8/§6.
//
// Grounded on original_source/src/management/mod.rs, whose Server reads
// framed lines off an accepted socket, dispatches through a small
// Request enum, and writes back a serialized Response — generalized
// here from its single "Reload" verb to the full verb set spec.md adds
// (ReloadSsl, Log, Status), and from Rust's Arc<RwLock<AppState>> to the
// registry's own atomic-snapshot discipline.
package management

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/logctl"
)

// Reloader is the subset of *registry.Registry the server needs, kept as
// an interface so tests can substitute a fake that fails on demand.
type Reloader interface {
	Reload() error
}

// Sizer is an optional capability a Reloader may also implement so Status
// can report the current registry size; *registry.Registry satisfies it.
type Sizer interface {
	Size() int
}

// Recorder is the subset of *diagnostics.DB the server needs to leave an
// audit trail of administrative actions; nil disables recording.
type Recorder interface {
	Record(kind, detail string) error
}

// Server answers management requests against one registry, one logger
// control handle, a notification channel consumed by the HTTPS front-end
// for leaf regeneration, and an optional diagnostics recorder.
type Server struct {
	reg         Reloader
	logger      *zap.Logger
	reloadSslCh chan<- struct{}
	diag        Recorder
	startedAt   time.Time
}

// New builds a Server. reloadSslCh may be nil in tests that don't care
// about C7 notification; diag may be nil to disable audit recording.
func New(reg Reloader, logger *zap.Logger, reloadSslCh chan<- struct{}, diag Recorder) *Server {
	return &Server{reg: reg, logger: logger, reloadSslCh: reloadSslCh, diag: diag, startedAt: time.Now()}
}

// record leaves an audit trail entry if a diagnostics recorder was
// configured, logging (not failing the request) on a write error.
func (s *Server) record(kind, detail string) {
	if s.diag == nil {
		return
	}
	if err := s.diag.Record(kind, detail); err != nil && s.logger != nil {
		s.logger.Warn("diagnostics record failed", zap.String("kind", kind), zap.Error(err))
	}
}

// Serve accepts connections on ln until it is closed, handling each in
// its own goroutine (spec.md §5: "each accepted TCP/UDP connection is an
// independent task").
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" {
			resp := s.dispatch(trimmed)
			if _, werr := io.WriteString(conn, resp+"\n"); werr != nil {
				return
			}
		}
		if err != nil {
			return // EOF or read error ends the session
		}
	}
}

// dispatch parses and executes one request line, per spec.md §4.8's
// action semantics. Parse or execution failures yield an ERROR response
// and the session continues.
func (s *Server) dispatch(line string) string {
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "Reload":
		if len(fields) > 1 {
			return "ERROR Reload doesn't take arguments"
		}
		if err := s.reg.Reload(); err != nil {
			s.record("reload", fmt.Sprintf("failed: %v", err))
			return fmt.Sprintf("ERROR reloading: %v", err)
		}
		s.record("reload", "ok")
		return "OK"

	case "ReloadSsl":
		if len(fields) > 1 {
			return "ERROR ReloadSsl doesn't take arguments"
		}
		select {
		case s.reloadSslCh <- struct{}{}:
			s.record("reload_ssl", "queued")
		default:
			s.record("reload_ssl", "already pending")
		}
		return "OK: Ssl replacement initiated. Please check."

	case "Log":
		return s.dispatchLog(fields[1:])

	case "Status":
		if len(fields) > 1 {
			return "ERROR Status doesn't take arguments"
		}
		uptime := time.Since(s.startedAt).Round(time.Second)
		if sz, ok := s.reg.(Sizer); ok {
			return fmt.Sprintf("OK registry_size=%d uptime=%s", sz.Size(), uptime)
		}
		return fmt.Sprintf("OK uptime=%s", uptime)

	case "":
		return "ERROR empty input"

	default:
		return fmt.Sprintf("ERROR invalid command: %s", fields[0])
	}
}

func (s *Server) dispatchLog(args []string) string {
	if len(args) == 0 {
		return "ERROR Log requires an argument"
	}
	switch args[0] {
	case "debug", "trace":
		if err := logctl.SetSpec(args[0]); err != nil {
			return fmt.Sprintf("ERROR %v", err)
		}
		s.record("log_level", args[0])
		return "OK"
	case "reset":
		if err := logctl.Reset(); err != nil {
			return fmt.Sprintf("ERROR %v", err)
		}
		s.record("log_level", "reset")
		return "OK"
	case "custom":
		if len(args) < 2 || args[1] == "" {
			return "ERROR Log custom requires a spec"
		}
		if err := logctl.SetSpec(args[1]); err != nil {
			return fmt.Sprintf("ERROR %v", err)
		}
		s.record("log_level", args[1])
		return "OK"
	default:
		return fmt.Sprintf("ERROR invalid log preset: %s", args[0])
	}
}
