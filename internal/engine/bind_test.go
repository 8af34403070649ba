package engine

import (
	"testing"

	"github.com/liske/ifstated/internal/model"
)

func TestBindMountPath_rootVsNamedNamespace(t *testing.T) {
	t.Parallel()

	if got, want := bindMountPath(model.RootNS, 7), "/run/libifstate/bind/7.mount"; got != want {
		t.Fatalf("bindMountPath(root, 7) = %q, want %q", got, want)
	}
	if got, want := bindMountPath("app", 7), "/run/libifstate/netns/app/bind/7.mount"; got != want {
		t.Fatalf("bindMountPath(app, 7) = %q, want %q", got, want)
	}
}

func TestBindNetnsDrifted_noPriorRecordIsNotDrift(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	lm := &model.LinkModel{IfName: "vx0", NS: model.RootNS, BindNetns: "app"}

	// No bind-mount record has ever been written for this ifindex, so the
	// absence must not be treated as drift (and must not need e.Contexts
	// populated, since the read returns before it is consulted).
	drifted, err := e.bindNetnsDrifted(lm, 999999991)
	if err != nil {
		t.Fatalf("bindNetnsDrifted() error = %v, want nil for a missing record", err)
	}
	if drifted {
		t.Fatal("bindNetnsDrifted() = true, want false when no record was ever written")
	}
}
