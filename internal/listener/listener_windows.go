//go:build windows

package listener

import (
	"errors"
	"net"
)

// Inherited is not supported on Windows: there is no portable fd-passing
// convention to rely on, so duwop always binds a fresh socket there.
func Inherited(fd uintptr, fdName string) (net.Listener, error) {
	return nil, errors.New("listener: socket inheritance is not supported on windows")
}

// InheritedPacket mirrors Inherited's unsupported-on-Windows behavior for
// packet connections.
func InheritedPacket(fd uintptr, fdName string) (net.PacketConn, error) {
	return nil, errors.New("listener: socket inheritance is not supported on windows")
}
