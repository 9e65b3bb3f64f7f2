//go:build !windows

package listener

import (
	"fmt"
	"net"
	"os"
)

// Inherited adopts a socket already opened by a supervising process
// manager and passed down as file descriptor fd, instead of binding a
// fresh one. fdName is only the name given to the wrapping *os.File (it
// appears in error messages); choosing the fd number is left to the
// caller's process manager integration (e.g. systemd's LISTEN_FDS
// convention) — this just wraps the handoff once a raw fd is known.
func Inherited(fd uintptr, fdName string) (net.Listener, error) {
	f := os.NewFile(fd, fdName)
	if f == nil {
		return nil, fmt.Errorf("inherited fd %d (%s) is not valid", fd, fdName)
	}
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("inherited fd %d (%s): %w", fd, fdName, err)
	}
	return ln, nil
}

// InheritedPacket is Inherited's packet-connection counterpart, used by
// the DNS front-end when socket inheritance is enabled.
func InheritedPacket(fd uintptr, fdName string) (net.PacketConn, error) {
	f := os.NewFile(fd, fdName)
	if f == nil {
		return nil, fmt.Errorf("inherited fd %d (%s) is not valid", fd, fdName)
	}
	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("inherited fd %d (%s): %w", fd, fdName, err)
	}
	return pc, nil
}
