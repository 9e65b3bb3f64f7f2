// Package dnsname validates service names against the DNS-label subset
// spec.md §3 requires for registry keys.
package dnsname

import "strings"

// Valid reports whether name is a non-empty DNS label consisting only of
// letters, digits, and hyphens, with no embedded dot.
func Valid(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// Normalize lowercases a name for use as a registry key.
func Normalize(name string) string {
	return strings.ToLower(name)
}

// StripPort removes a trailing ":port" from a Host header value.
func StripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}

// testSuffix is the only zone duwop is authoritative for (spec.md §1).
const testSuffix = ".test"

// TrimTestSuffix strips a trailing ".test" from host (case-insensitively)
// and reports whether it was present. Callers use the returned label as
// the registry lookup key.
func TrimTestSuffix(host string) (string, bool) {
	lower := strings.ToLower(host)
	if !strings.HasSuffix(lower, testSuffix) {
		return "", false
	}
	return host[:len(host)-len(testSuffix)], true
}
