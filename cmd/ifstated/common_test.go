package main

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/liske/ifstated/internal/config"
)

func TestExitCodeFor_nilIsZero(t *testing.T) {
	t.Parallel()
	if got := exitCodeFor(nil); got != 0 {
		t.Fatalf("exitCodeFor(nil) = %d, want 0", got)
	}
}

func TestExitCodeFor_featureMissingIsFive(t *testing.T) {
	t.Parallel()
	err := &config.FeatureMissingError{Feature: "wireguard", Err: errors.New("no kernel support")}
	if got := exitCodeFor(err); got != 5 {
		t.Fatalf("exitCodeFor(FeatureMissingError) = %d, want 5", got)
	}
}

func TestExitCodeFor_wrappedFeatureMissingIsFive(t *testing.T) {
	t.Parallel()
	inner := &config.FeatureMissingError{Feature: "xdp", Err: errors.New("no bpf support")}
	wrapped := errWrap("loading config", inner)
	if got := exitCodeFor(wrapped); got != 5 {
		t.Fatalf("exitCodeFor(wrapped FeatureMissingError) = %d, want 5", got)
	}
}

func TestExitCodeFor_missingFileIsOne(t *testing.T) {
	t.Parallel()
	if got := exitCodeFor(fs.ErrNotExist); got != 1 {
		t.Fatalf("exitCodeFor(fs.ErrNotExist) = %d, want 1", got)
	}
}

func TestExitCodeFor_noInterfacesIsFour(t *testing.T) {
	t.Parallel()
	if got := exitCodeFor(config.ErrNoInterfaces); got != 4 {
		t.Fatalf("exitCodeFor(ErrNoInterfaces) = %d, want 4", got)
	}
}

func errWrap(msg string, err error) error {
	return &wrappedErr{msg: msg, err: err}
}

type wrappedErr struct {
	msg string
	err error
}

func (w *wrappedErr) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrappedErr) Unwrap() error { return w.err }
