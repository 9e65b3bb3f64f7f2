// Package registry implements duwop's service registry (spec C1): an
// in-memory map from hostname label to ServiceEntry, rebuilt from a
// filesystem state directory on demand.
//
// The snapshot is published behind an atomic pointer swap, the same
// copy-on-write discipline internal/metrics.syncMap uses in the teacher
// repo, generalized here from a counters map to the routing snapshot: a
// writer builds a brand new snapshot off to the side and only then swaps it
// in, so readers never observe a torn view (spec.md §3's "a load replaces
// the previous snapshot atomically" invariant).
package registry

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/docxology/duwop/internal/dnsname"
	"github.com/docxology/duwop/internal/metrics"
)

// Kind tags which variant a ServiceEntry is.
type Kind int

const (
	KindStaticFiles Kind = iota
	KindReverseProxy
	KindInvalidConfig
)

// ServiceEntry is the tagged variant described in spec.md §3.
type ServiceEntry struct {
	Name   string
	Kind   Kind
	Root   string // StaticFiles: canonical absolute directory
	Port   uint16 // ReverseProxy: loopback port
	Reason string // InvalidConfig: cause
}

// Diagnostic records a load-time problem that didn't produce a registry
// entry (or that a produced entry should report via Status).
type Diagnostic struct {
	Kind    string // "name_error" or "io_error"
	Message string
}

func (d Diagnostic) String() string { return fmt.Sprintf("%s: %s", d.Kind, d.Message) }

type snapshot struct {
	services    map[string]ServiceEntry
	diagnostics []Diagnostic
}

// Registry is the shared, read-mostly service table. All fields are safe
// for concurrent use; writers are serialized by mu, readers never block.
type Registry struct {
	stateDir string
	mu       sync.Mutex // serializes Reload calls (single-writer)
	snap     atomic.Value
	reloads  uint64
}

// New constructs an empty Registry rooted at stateDir. Call Reload to
// populate it.
func New(stateDir string) *Registry {
	r := &Registry{stateDir: stateDir}
	r.snap.Store(&snapshot{services: map[string]ServiceEntry{}})
	return r
}

// StateDir returns the registry's immutable origin path.
func (r *Registry) StateDir() string { return r.stateDir }

func (r *Registry) current() *snapshot {
	return r.snap.Load().(*snapshot)
}

// Get returns the entry for name (already expected lowercased) and whether
// it was found, reading the current published snapshot.
func (r *Registry) Get(name string) (ServiceEntry, bool) {
	snap := r.current()
	e, ok := snap.services[dnsname.Normalize(name)]
	return e, ok
}

// Names returns every currently registered name, for TLS SAN generation.
func (r *Registry) Names() []string {
	snap := r.current()
	out := make([]string, 0, len(snap.services))
	for n := range snap.services {
		out = append(out, n)
	}
	return out
}

// Size reports how many entries are in the current snapshot.
func (r *Registry) Size() int { return len(r.current().services) }

// Diagnostics returns the load-time diagnostics from the current snapshot.
func (r *Registry) Diagnostics() []Diagnostic {
	snap := r.current()
	out := make([]Diagnostic, len(snap.diagnostics))
	copy(out, snap.diagnostics)
	return out
}

// Reloads reports how many successful reloads have occurred.
func (r *Registry) Reloads() uint64 { return atomic.LoadUint64(&r.reloads) }

// Reload rescans the state directory one level deep and, on success,
// atomically publishes the new snapshot. On failure the previous snapshot
// is left untouched and an error is returned, per spec.md §4.1.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.stateDir)
	if err != nil {
		metrics.Reloads.Inc()
		return fmt.Errorf("read state dir %s: %w", r.stateDir, err)
	}

	next := &snapshot{services: make(map[string]ServiceEntry, len(entries))}
	for _, de := range entries {
		rawName := de.Name()
		if !utf8.ValidString(rawName) {
			next.diagnostics = append(next.diagnostics, Diagnostic{
				Kind:    "name_error",
				Message: rawName,
			})
			continue
		}
		if !dnsname.Valid(rawName) {
			next.diagnostics = append(next.diagnostics, Diagnostic{
				Kind:    "name_error",
				Message: fmt.Sprintf("%s: not a valid DNS label", rawName),
			})
			continue
		}
		entry, diag, err := parseEntry(r.stateDir, de)
		if err != nil {
			next.diagnostics = append(next.diagnostics, Diagnostic{
				Kind:    "io_error",
				Message: fmt.Sprintf("%s: %v", rawName, err),
			})
			continue
		}
		if diag != nil {
			next.diagnostics = append(next.diagnostics, *diag)
		}
		next.services[dnsname.Normalize(rawName)] = entry
	}

	r.snap.Store(next)
	atomic.AddUint64(&r.reloads, 1)
	metrics.Reloads.Inc()
	metrics.RegistrySize.Set(float64(len(next.services)))
	return nil
}

// parseEntry classifies one state-directory entry per spec.md §4.1.
func parseEntry(stateDir string, de os.DirEntry) (ServiceEntry, *Diagnostic, error) {
	name := de.Name()
	full := filepath.Join(stateDir, name)

	info, err := os.Stat(full) // follows symlinks
	if err != nil {
		return ServiceEntry{}, nil, err
	}

	if info.IsDir() {
		canon, err := filepath.EvalSymlinks(full)
		if err != nil {
			return ServiceEntry{}, nil, err
		}
		abs, err := filepath.Abs(canon)
		if err != nil {
			return ServiceEntry{}, nil, err
		}
		return ServiceEntry{Name: name, Kind: KindStaticFiles, Root: abs}, nil, nil
	}

	f, err := os.Open(full)
	if err != nil {
		return ServiceEntry{}, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var firstLine string
	if scanner.Scan() {
		firstLine = strings.TrimRight(scanner.Text(), "\r\n")
	}
	if err := scanner.Err(); err != nil {
		return ServiceEntry{}, nil, err
	}

	entry, reason := parseDirective(name, firstLine)
	if reason != "" {
		return ServiceEntry{Name: name, Kind: KindInvalidConfig, Reason: reason}, nil, nil
	}
	return entry, nil, nil
}

// parseDirective interprets the first line of a regular file per the
// "proxy:<host>:<port>" format (host discarded, always loopback).
func parseDirective(name, line string) (ServiceEntry, string) {
	const prefix = "proxy:"
	if !strings.HasPrefix(line, prefix) {
		return ServiceEntry{}, fmt.Sprintf("invalid directive: '%s'", line)
	}
	rest := strings.TrimPrefix(line, prefix)
	if rest == "" {
		return ServiceEntry{}, "missing socket address"
	}
	_, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return ServiceEntry{}, fmt.Sprintf("not a valid <host:port> %q: %v", rest, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return ServiceEntry{}, fmt.Sprintf("not a valid <host:port> %q: %v", rest, err)
	}
	return ServiceEntry{Name: name, Kind: KindReverseProxy, Port: uint16(port)}, ""
}
