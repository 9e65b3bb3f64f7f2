// Package supervisor composes duwop's front-ends (spec C9): it binds
// every listener, starts each component's serve loop, wires the
// management endpoint's reload-ssl notification channel to the HTTPS
// front-end, and races the whole set against a terminate-signal source.
//
// Grounded on two sources: the teacher's cmd/hostapp main.go, whose
// errCh/select{ctx.Done(), err := <-errCh} idiom this reproduces almost
// verbatim in Go terms, and original_source/src/supervisor.rs, whose
// Supervisor.run joins every server future and races it against a
// signal stream with select2 — the same "first to finish ends the
// process" discipline, expressed with goroutines and channels instead
// of futures combinators.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/ca"
	"github.com/docxology/duwop/internal/diagnostics"
	"github.com/docxology/duwop/internal/dnsresponder"
	"github.com/docxology/duwop/internal/httpdispatch"
	"github.com/docxology/duwop/internal/listener"
	"github.com/docxology/duwop/internal/management"
	"github.com/docxology/duwop/internal/metrics"
	"github.com/docxology/duwop/internal/registry"
	pkgconfig "github.com/docxology/duwop/pkg/config"
)

// Well-known inherited file descriptor numbers, assigned in binding order,
// for cfg.InheritSockets mode (spec.md §9): a supervising process manager
// (e.g. systemd's LISTEN_FDS convention) hands these down already bound,
// and duwop adopts them instead of calling net.Listen/net.ListenPacket.
const (
	inheritedFDDNS        uintptr = 3
	inheritedFDHTTP       uintptr = 4
	inheritedFDHTTPS      uintptr = 5
	inheritedFDManagement uintptr = 6
)

// Supervisor owns every long-running component and the signal it stops
// on.
type Supervisor struct {
	cfg    *pkgconfig.Config
	logger *zap.Logger
	reg    *registry.Registry
	diag   *diagnostics.DB
	root   *ca.RootCA // nil when TLS is disabled
}

// New constructs a Supervisor. reg must already exist (its first Reload
// happens inside Run); root may be nil when cfg.DisableTLS is set.
func New(cfg *pkgconfig.Config, logger *zap.Logger, reg *registry.Registry, diag *diagnostics.DB, root *ca.RootCA) *Supervisor {
	return &Supervisor{cfg: cfg, logger: logger, reg: reg, diag: diag, root: root}
}

// Run starts all components and blocks until a terminate signal arrives
// or an unrecoverable component failure occurs, whichever is first.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.reg.Reload(); err != nil {
		return fmt.Errorf("supervisor: initial registry load: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 5)
	reloadSslCh := make(chan struct{}, 1)

	dispatcher := httpdispatch.New(s.reg, s.logger)

	// Auto-reload on state directory changes is purely additive (spec.md
	// never requires it); a watch failure is logged, not fatal.
	go func() {
		if err := s.reg.Watch(sigCtx, s.logger); err != nil && s.logger != nil {
			s.logger.Warn("registry watch stopped", zap.Error(err))
		}
	}()

	// C2: DNS responder. The supervisor owns the packet conn (rather than
	// letting Serve open its own) so shutdown can close it and unblock
	// ActivateAndServe, the same way httpLn/mgmtLn are closed below.
	dnsPC, err := s.acquirePacketConn("udp", fmt.Sprintf("127.0.0.1:%d", s.cfg.DNSPort), inheritedFDDNS, "duwop.dns")
	if err != nil {
		return fmt.Errorf("supervisor: bind dns: %w", err)
	}
	dnsResponder := dnsresponder.New(s.reg, s.logger, metrics.ObserveDNSQuery)
	go func() { errCh <- dnsResponder.ServePacketConn(dnsPC) }()

	// C5: HTTP front-end.
	httpLn, err := s.acquireListener("tcp", fmt.Sprintf(":%d", s.cfg.HTTPPort), inheritedFDHTTP, "duwop.http")
	if err != nil {
		return fmt.Errorf("supervisor: bind http: %w", err)
	}
	httpSrv := &http.Server{Handler: dispatcher}
	go func() { errCh <- httpSrv.Serve(httpLn) }()

	// C7: HTTPS front-end, only when enabled.
	var httpsSrv *http.Server
	if !s.cfg.DisableTLS {
		tlsLn, tlsErr := s.serveHTTPS(dispatcher, reloadSslCh, errCh)
		if tlsErr != nil {
			return tlsErr
		}
		defer tlsLn.Close()
		httpsSrv = tlsLn.srv
	}

	// C8: management endpoint.
	mgmtLn, err := s.acquireListener("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.ManagementPort), inheritedFDManagement, "duwop.management")
	if err != nil {
		return fmt.Errorf("supervisor: bind management: %w", err)
	}
	mgmt := management.New(s.reg, s.logger, reloadSslCh, s.diag)
	go func() { errCh <- mgmt.Serve(mgmtLn) }()

	if s.logger != nil {
		s.logger.Info("duwop started",
			zap.Int("dns_port", s.cfg.DNSPort),
			zap.Int("http_port", s.cfg.HTTPPort),
			zap.Int("https_port", s.cfg.HTTPSPort),
			zap.Int("management_port", s.cfg.ManagementPort),
			zap.Bool("tls_disabled", s.cfg.DisableTLS),
		)
	}

	select {
	case <-sigCtx.Done():
		if s.logger != nil {
			s.logger.Info("received terminate signal, shutting down")
		}
		return s.shutdown(httpSrv, httpsSrv, httpLn, mgmtLn, dnsPC)
	case err := <-errCh:
		if s.logger != nil {
			s.logger.Error("component failed", zap.Error(err))
		}
		_ = s.shutdown(httpSrv, httpsSrv, httpLn, mgmtLn, dnsPC)
		return err
	}
}

// acquireListener binds a fresh TCP listener, or adopts an inherited one
// by fd when cfg.InheritSockets is set.
func (s *Supervisor) acquireListener(network, addr string, fd uintptr, fdName string) (net.Listener, error) {
	if s.cfg.InheritSockets {
		return listener.Inherited(fd, fdName)
	}
	return listener.Acquire(network, addr)
}

// acquirePacketConn is acquireListener's UDP counterpart, for the DNS
// front-end.
func (s *Supervisor) acquirePacketConn(network, addr string, fd uintptr, fdName string) (net.PacketConn, error) {
	if s.cfg.InheritSockets {
		return listener.InheritedPacket(fd, fdName)
	}
	return listener.AcquirePacket(network, addr)
}

type tlsListener struct {
	ln  net.Listener
	srv *http.Server
}

func (t *tlsListener) Close() error { return t.ln.Close() }

// serveHTTPS mints the initial leaf from the current registry snapshot,
// binds the HTTPS listener, and starts a goroutine that swaps in a fresh
// leaf whenever the management endpoint signals reload-ssl — the
// GetCertificate hook makes the swap race-free without restarting the
// listener, matching spec.md §3's "replaced atomically" TlsLeaf
// invariant.
func (s *Supervisor) serveHTTPS(handler http.Handler, reloadSslCh <-chan struct{}, errCh chan<- error) (*tlsListener, error) {
	leafHolder := newLeafHolder()
	if err := leafHolder.remint(s.root, s.reg); err != nil {
		return nil, fmt.Errorf("supervisor: mint initial tls leaf: %w", err)
	}

	tlsCfg := &tlsServerConfig{holder: leafHolder}
	ln, err := s.acquireListener("tcp", fmt.Sprintf(":%d", s.cfg.HTTPSPort), inheritedFDHTTPS, "duwop.https")
	if err != nil {
		return nil, fmt.Errorf("supervisor: bind https: %w", err)
	}

	srv := &http.Server{
		Handler:   handler,
		TLSConfig: tlsCfg.config(),
	}

	go func() { errCh <- srv.ServeTLS(ln, "", "") }()
	go func() {
		for range reloadSslCh {
			if err := leafHolder.remint(s.root, s.reg); err != nil && s.logger != nil {
				s.logger.Warn("reload-ssl: remint failed", zap.Error(err))
			} else if s.logger != nil {
				s.logger.Info("reload-ssl: tls leaf replaced")
			}
		}
	}()

	return &tlsListener{ln: ln, srv: srv}, nil
}

func (s *Supervisor) shutdown(httpSrv, httpsSrv *http.Server, httpLn, mgmtLn net.Listener, dnsPC net.PacketConn) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	if httpsSrv != nil {
		_ = httpsSrv.Shutdown(shutdownCtx)
	}
	_ = httpLn.Close()
	_ = mgmtLn.Close()
	_ = dnsPC.Close()
	if s.diag != nil {
		_ = s.diag.Close()
	}
	return nil
}
