package listener

import "testing"

func TestAcquireBindsLoopback(t *testing.T) {
	ln, err := Acquire("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer ln.Close()
	if ln.Addr() == nil {
		t.Fatal("expected bound address")
	}
}

func TestAcquireInvalidAddrFails(t *testing.T) {
	if _, err := Acquire("tcp", "not-an-address"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestAcquirePacketBindsLoopback(t *testing.T) {
	pc, err := AcquirePacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("acquire packet: %v", err)
	}
	defer pc.Close()
}
