package emitter

import (
	"regexp"
	"testing"

	"github.com/vishvananda/netlink"
)

func TestOptions_ignored(t *testing.T) {
	t.Parallel()

	opts := Options{Ignore: []*regexp.Regexp{regexp.MustCompile(`^docker`), regexp.MustCompile(`^veth`)}}
	if !opts.ignored("docker0") {
		t.Fatal("docker0 should be ignored")
	}
	if !opts.ignored("veth1234") {
		t.Fatal("veth1234 should be ignored")
	}
	if opts.ignored("eth0") {
		t.Fatal("eth0 should not be ignored")
	}
}

func TestEmitBrport_suppressesDefaultsUnlessShowAll(t *testing.T) {
	t.Parallel()

	pi := netlink.Protinfo{Learning: true, Flood: true} // both at their kernel default

	if out := emitBrport(pi, false); out != nil {
		t.Fatalf("emitBrport() = %v, want nil when every knob is at its default", out)
	}

	pi.Hairpin = true
	out := emitBrport(pi, false)
	if out == nil || out["hairpin"] != true {
		t.Fatalf("emitBrport() = %v, want hairpin=true surfaced", out)
	}
	if _, ok := out["learning"]; ok {
		t.Fatal("learning at its default should stay suppressed")
	}

	full := emitBrport(pi, true)
	if len(full) != 7 {
		t.Fatalf("emitBrport(showAll) returned %d knobs, want all 7", len(full))
	}
}

func TestBuiltinIgnoreRouteProtos_coversKernelManaged(t *testing.T) {
	t.Parallel()
	for _, proto := range []int{2, 8, 9, 186} {
		if !builtinIgnoreRouteProtos[proto] {
			t.Fatalf("proto %d should be in the built-in ignore set", proto)
		}
	}
	if builtinIgnoreRouteProtos[4] {
		t.Fatal("proto 4 (static) should not be ignored")
	}
}
