package route

import (
	"net"
	"testing"

	"golang.org/x/sys/unix"
)

func TestViaFamilyFor_sameFamilyNoVia(t *testing.T) {
	t.Parallel()
	dst := net.ParseIP("10.0.0.0")
	via := net.ParseIP("10.0.0.1")
	if f := ViaFamilyFor(dst, via); f != 0 {
		t.Fatalf("ViaFamilyFor(same family) = %d, want 0", f)
	}
}

func TestViaFamilyFor_crossFamily(t *testing.T) {
	t.Parallel()

	dst := net.ParseIP("::")
	via := net.ParseIP("10.0.0.1")
	if f := ViaFamilyFor(dst, via); f != unix.AF_INET {
		t.Fatalf("ViaFamilyFor(v6 dst, v4 via) = %d, want AF_INET", f)
	}

	dst4 := net.ParseIP("0.0.0.0")
	via6 := net.ParseIP("fe80::1")
	if f := ViaFamilyFor(dst4, via6); f != unix.AF_INET6 {
		t.Fatalf("ViaFamilyFor(v4 dst, v6 via) = %d, want AF_INET6", f)
	}
}
