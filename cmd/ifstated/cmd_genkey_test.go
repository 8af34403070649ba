package main

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/liske/ifstated/internal/config"
)

func TestRunGenkey_printsValidBase64Keys(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	genkeyCmd.SetOut(&stdout)
	genkeyCmd.SetErr(&stderr)
	t.Cleanup(func() {
		genkeyCmd.SetOut(nil)
		genkeyCmd.SetErr(nil)
	})

	if err := runGenkey(genkeyCmd, nil); err != nil {
		t.Fatalf("runGenkey() error = %v", err)
	}

	privLine := bytes.TrimSpace(stdout.Bytes())
	priv, err := base64.StdEncoding.DecodeString(string(privLine))
	if err != nil {
		t.Fatalf("stdout is not valid base64: %v", err)
	}
	if len(priv) != config.KeySize {
		t.Fatalf("private key length = %d, want %d", len(priv), config.KeySize)
	}

	if !bytes.Contains(stderr.Bytes(), []byte("public key: ")) {
		t.Fatalf("stderr = %q, want it to contain the public key", stderr.String())
	}
}
