package management

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/registry"
)

type fakeRegistry struct {
	err error
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeRecorder) Record(kind, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, kind+":"+detail)
	return nil
}

func (f *fakeRecorder) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeRegistry) Reload() error { return f.err }

func dialAndRoundtrip(t *testing.T, ln net.Listener, lines ...string) []string {
	t.Helper()
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	var out []string
	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		resp, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		out = append(out, resp[:len(resp)-1])
	}
	return out
}

func serveInBackground(t *testing.T, s *Server) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestReloadSucceeds(t *testing.T) {
	s := New(&fakeRegistry{}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Reload")
	if got[0] != "OK" {
		t.Fatalf("expected OK, got %q", got[0])
	}
}

func TestReloadFailurePropagatesError(t *testing.T) {
	s := New(&fakeRegistry{err: errors.New("boom")}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Reload")
	if got[0] != "ERROR reloading: boom" {
		t.Fatalf("unexpected response: %q", got[0])
	}
}

func TestStatusRepliesOK(t *testing.T) {
	s := New(&fakeRegistry{}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Status")
	if !strings.HasPrefix(got[0], "OK uptime=") {
		t.Fatalf("expected OK line with uptime, got %q", got[0])
	}
}

func TestReloadSslQueuesNotification(t *testing.T) {
	ch := make(chan struct{}, 1)
	s := New(&fakeRegistry{}, zap.NewNop(), ch, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "ReloadSsl")
	if got[0] != "OK: Ssl replacement initiated. Please check." {
		t.Fatalf("unexpected response: %q", got[0])
	}
	select {
	case <-ch:
	default:
		t.Fatal("expected notification to be queued")
	}
}

func TestUnknownCommandIsError(t *testing.T) {
	s := New(&fakeRegistry{}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Bogus")
	if got[0] != "ERROR invalid command: Bogus" {
		t.Fatalf("unexpected response: %q", got[0])
	}
}

func TestSessionContinuesAfterError(t *testing.T) {
	s := New(&fakeRegistry{}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Bogus", "Status")
	if got[0] != "ERROR invalid command: Bogus" {
		t.Fatalf("unexpected first response: %q", got[0])
	}
	if !strings.HasPrefix(got[1], "OK uptime=") {
		t.Fatalf("expected session to continue, got %q", got[1])
	}
}

func TestStatusReportsRegistrySizeForRealRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "blog"), 0o755); err != nil {
		t.Fatal(err)
	}
	reg := registry.New(dir)
	if err := reg.Reload(); err != nil {
		t.Fatal(err)
	}

	s := New(reg, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Status")
	if !strings.HasPrefix(got[0], "OK registry_size=1 uptime=") {
		t.Fatalf("expected registry_size in status, got %q", got[0])
	}
}

func TestLogCustomAndReset(t *testing.T) {
	s := New(&fakeRegistry{}, zap.NewNop(), nil, nil)
	ln := serveInBackground(t, s)

	got := dialAndRoundtrip(t, ln, "Log custom duwop:debug", "Log reset")
	if got[0] != "OK" || got[1] != "OK" {
		t.Fatalf("unexpected responses: %v", got)
	}
}

func TestReloadRecordsDiagnosticEvent(t *testing.T) {
	rec := &fakeRecorder{}
	s := New(&fakeRegistry{}, zap.NewNop(), nil, rec)
	ln := serveInBackground(t, s)

	dialAndRoundtrip(t, ln, "Reload")

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "reload:ok" {
		t.Fatalf("expected one reload:ok entry, got %v", got)
	}
}
