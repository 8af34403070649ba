package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoad_parseError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "interfaces: [this is not a map]")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error, want a parse error")
	}
}

func TestLoad_validationError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "namespaces: []\n")

	if _, err := Load(path); !errors.Is(err, ErrNoInterfaces) {
		t.Fatalf("Load() error = %v, want wrapping ErrNoInterfaces", err)
	}
}

func TestLoad_validDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
interfaces:
  eth0:
    state: up
    mtu: 1500
    addresses:
      - 192.0.2.1/24
`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	iface, ok := doc.Interfaces["eth0"]
	if !ok {
		t.Fatal("Load() document missing eth0")
	}
	if iface.MTU != 1500 {
		t.Fatalf("eth0.mtu = %d, want 1500", iface.MTU)
	}
	if len(iface.Addresses) != 1 || iface.Addresses[0] != "192.0.2.1/24" {
		t.Fatalf("eth0.addresses = %v, want [192.0.2.1/24]", iface.Addresses)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}
