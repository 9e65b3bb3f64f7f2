package supervisor

import (
	"crypto/tls"
	"sync/atomic"

	"github.com/docxology/duwop/internal/ca"
	"github.com/docxology/duwop/internal/registry"
)

// leafHolder publishes the HTTPS front-end's current TLS leaf behind an
// atomic pointer, the same copy-on-write discipline the service
// registry uses: a reload builds a fresh certificate off to the side
// and only then swaps it in, so in-flight handshakes never observe a
// half-updated leaf.
type leafHolder struct {
	cert atomic.Pointer[tls.Certificate]
}

func newLeafHolder() *leafHolder { return &leafHolder{} }

// remint mints a fresh leaf covering every name currently in reg and
// publishes it.
func (h *leafHolder) remint(root *ca.RootCA, reg *registry.Registry) error {
	leaf, err := ca.MintLeaf(root, reg.Names())
	if err != nil {
		return err
	}
	h.cert.Store(&leaf)
	return nil
}

func (h *leafHolder) current() *tls.Certificate {
	return h.cert.Load()
}

// tlsServerConfig adapts a leafHolder into a *tls.Config via
// GetCertificate, so a reload-ssl swap takes effect on the very next
// handshake without restarting the listener.
type tlsServerConfig struct {
	holder *leafHolder
}

func (t *tlsServerConfig) config() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return t.holder.current(), nil
		},
	}
}
