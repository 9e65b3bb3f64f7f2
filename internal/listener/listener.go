// Package listener abstracts how duwop's front-ends (C2, C5, C7, C8)
// acquire their bound sockets, grounded on the teacher's cmd/hostapp
// bind-with-fallback dance (net.Listen against a preferred address,
// falling back through a candidate list on failure). spec.md §9 also
// allows a platform that inherits already-open sockets from a
// supervising process manager (e.g. launchd's socket activation); that
// variant has no grounding in the teacher or pack and is duwop-original,
// gated to non-Windows builds where file-descriptor inheritance via
// os.NewFile is meaningful.
package listener

import (
	"fmt"
	"net"
)

// Acquire binds addr directly. Most callers want this; Inherited (see
// listener_unix.go) is only for process-manager-supervised deployments.
func Acquire(network, addr string) (net.Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return ln, nil
}

// AcquirePacket binds addr for a UDP-style packet connection (used by the
// DNS front-end).
func AcquirePacket(network, addr string) (net.PacketConn, error) {
	pc, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen packet %s %s: %w", network, addr, err)
	}
	return pc, nil
}
