// Package ca mints TLS leaf certificates for the HTTPS front-end (spec C6)
// from a locally trusted root CA (spec §3's RootCA). Generating the root CA
// itself is out of scope (spec.md §1); this package only reads one and
// signs leaves with it.
package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"
)

// Subject fields are fixed across every leaf, matching the original
// implementation's TLS_ENTRY_* constants (placeholder values — the exact
// strings weren't present in the retrieved source snapshot).
const (
	subjectCountry      = "US"
	subjectState        = "CA"
	subjectOrganization = "duwop"
	subjectCommonName   = "duwop local development CA"

	leafValidity = 365 * 24 * time.Hour
	// defaultSANName is used when the registry is empty, so the HTTPS
	// acceptor always has a valid SAN list (spec.md §3 TlsLeaf invariant).
	defaultSANName = "duwop"
)

// RootCA is the (certificate, private key) pair used to sign leaves.
type RootCA struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// Load reads a PEM-encoded certificate and RSA private key from disk.
func Load(certPath, keyPath string) (*RootCA, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read ca cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ca key: %w", err)
	}
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("no PEM block in %s", certPath)
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse ca cert: %w", err)
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("no PEM block in %s", keyPath)
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		key2, err2 := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err2 != nil {
			return nil, fmt.Errorf("parse ca key: %w", err)
		}
		rsaKey, ok := key2.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("ca key is not RSA")
		}
		key = rsaKey
	}
	return &RootCA{Cert: cert, Key: key}, nil
}

// Freshness reports whether the root CA certificate is valid for at least
// minGrace from now, isolating the ASN.1 date-comparison helper per
// spec.md §9's design notes.
func (r *RootCA) Freshness(minGrace time.Duration) bool {
	return time.Now().Add(minGrace).Before(r.Cert.NotAfter)
}

// MintLeaf generates an RSA 2048 leaf certificate signed by root, with a
// SAN list covering "<name>.test" and "*.<name>.test" for every name, or
// defaultSANName when names is empty (spec.md §4.6/§3).
func MintLeaf(root *RootCA, names []string) (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate leaf key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	subject := pkix.Name{
		Country:      []string{subjectCountry},
		Province:     []string{subjectState},
		Organization: []string{subjectOrganization},
		CommonName:   subjectCommonName,
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              now.Add(leafValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              sansFor(names),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, root.Cert, &priv.PublicKey, root.Key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("sign leaf: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse signed leaf: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}

func sansFor(names []string) []string {
	if len(names) == 0 {
		return []string{defaultSANName + ".test"}
	}
	out := make([]string, 0, len(names)*2)
	for _, n := range names {
		out = append(out, n+".test", "*."+n+".test")
	}
	return out
}
