package xcpt

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

func TestHasErrno_eexistTriggersRetry(t *testing.T) {
	t.Parallel()

	c := New(false)
	c.Add("link_set", fmt.Errorf("setting %s up: %w", "eth0", unix.EEXIST), nil)

	if !c.HasErrno(unix.EEXIST) {
		t.Fatal("HasErrno(EEXIST) should be true after wrapping unix.EEXIST")
	}
	if !c.ShouldRetry(false) {
		t.Fatal("ShouldRetry should be true when EEXIST was recorded")
	}
}

func TestShouldRetry_settingsUnchanged(t *testing.T) {
	t.Parallel()

	c := New(false)
	if c.ShouldRetry(false) {
		t.Fatal("ShouldRetry should be false with no errors and settingsUnchanged=false")
	}
	if !c.ShouldRetry(true) {
		t.Fatal("ShouldRetry should be true when settingsUnchanged=true")
	}
}

func TestHasOp(t *testing.T) {
	t.Parallel()

	c := New(true)
	c.Add("addr_add", fmt.Errorf("boom"), map[string]any{"cidr": "10.0.0.1/24"})

	if !c.HasOp("addr_add") {
		t.Fatal("HasOp(addr_add) should be true")
	}
	if c.HasOp("route_add") {
		t.Fatal("HasOp(route_add) should be false")
	}
	if !c.Quiet() {
		t.Fatal("Quiet() should reflect the constructor argument")
	}
}
