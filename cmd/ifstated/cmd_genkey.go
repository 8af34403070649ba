package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liske/ifstated/internal/config"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a new WireGuard private key",
	Long: `Generate a new Curve25519 private key suitable for a wireguard
interface's private_key. The private key is printed to stdout as
base64; the corresponding public key (for peers' public_key entries)
is printed to stderr.

Example:
  ifstated genkey                    # print private key
  ifstated genkey 2>/dev/null        # private key only (pipe-friendly)`,
	RunE: runGenkey,
}

func runGenkey(cmd *cobra.Command, args []string) error {
	privKey, err := config.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	pubKey := config.PublicKey(privKey)

	fmt.Fprintln(cmd.OutOrStdout(), privKey.String())
	fmt.Fprintf(cmd.ErrOrStderr(), "public key: %s\n", pubKey.String())

	return nil
}
