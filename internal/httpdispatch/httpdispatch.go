// Package httpdispatch implements the vhost routing shared by duwop's
// HTTP (spec C5) and HTTPS (spec C7) front-ends: extract the request's
// hostname, strip any port and a trailing ".test", look the result up
// in the registry, and delegate to the static file server or reverse
// proxy the registry names — or answer with the fixed error responses
// spec.md §4.5/§4.7 describe when the host is absent, malformed, or
// the registry holds a KindInvalidConfig entry for it.
//
// Grounded on the teacher's internal/api.Router (host-based mux
// dispatch), restructured here from Guild's session/cluster-based
// mux.Handle registrations into spec.md's three-way vhost dispatch.
package httpdispatch

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/dnsname"
	"github.com/docxology/duwop/internal/registry"
	"github.com/docxology/duwop/internal/reverseproxy"
	"github.com/docxology/duwop/internal/staticfiles"
)

// requestIDHeader is stamped on every dispatched request so its
// correlation id survives into upstream proxy logs and duwop's own,
// grounded on the teacher's reverse_proxy.go reading an inbound
// "X-Request-Id" to correlate log lines across a proxied request.
const requestIDHeader = "X-Request-Id"

// Dispatcher routes each request to the handler for its registry entry,
// caching reverseproxy.Handlers by port and staticfiles.Handlers by root
// instead of reallocating one per request.
type Dispatcher struct {
	reg    *registry.Registry
	logger *zap.Logger

	mu      sync.Mutex
	proxies map[uint16]*reverseproxy.Handler
	statics map[string]*staticfiles.Handler
}

func New(reg *registry.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		reg:     reg,
		logger:  logger,
		proxies: make(map[uint16]*reverseproxy.Handler),
		statics: make(map[string]*staticfiles.Handler),
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
		r.Header.Set(requestIDHeader, reqID)
	}
	w.Header().Set(requestIDHeader, reqID)

	host := dnsname.StripPort(r.Host)
	name, ok := dnsname.TrimTestSuffix(host)
	if !ok {
		if d.logger != nil {
			d.logger.Debug("rejected non-.test host", zap.String("request_id", reqID), zap.String("host", r.Host))
		}
		http.Error(w, "duwop: host must end in .test", http.StatusInternalServerError)
		return
	}
	name = dnsname.Normalize(name)

	entry, ok := d.reg.Get(name)
	if !ok {
		if d.logger != nil {
			d.logger.Debug("no service registered", zap.String("request_id", reqID), zap.String("name", name))
		}
		http.Error(w, fmt.Sprintf("duwop: no service registered for %q", name), http.StatusNotFound)
		return
	}

	switch entry.Kind {
	case registry.KindStaticFiles:
		d.staticHandlerFor(entry).ServeHTTP(w, r)
	case registry.KindReverseProxy:
		d.proxyHandlerFor(entry.Port).ServeHTTP(w, r)
	case registry.KindInvalidConfig:
		http.Error(w, fmt.Sprintf("duwop: invalid configuration for %q: %s", name, entry.Reason), http.StatusInternalServerError)
	default:
		http.Error(w, "duwop: unknown service kind", http.StatusInternalServerError)
	}
}

func (d *Dispatcher) staticHandlerFor(entry registry.ServiceEntry) *staticfiles.Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.statics[entry.Root]
	if !ok {
		h = staticfiles.New(entry.Root)
		d.statics[entry.Root] = h
	}
	return h
}

func (d *Dispatcher) proxyHandlerFor(port uint16) *reverseproxy.Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.proxies[port]
	if !ok {
		h = reverseproxy.New(port, d.logger)
		d.proxies[port] = h
	}
	return h
}
