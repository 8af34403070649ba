package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liske/ifstated/internal/engine"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile live kernel state against the configuration",
	Long: `apply loads the configuration and drives the kernel via netlink until
live state in every tracked namespace matches.

SIGINT/SIGTERM/SIGHUP cancel the command's context, but per the engine's
concurrency model a signal never interrupts a reconciliation pass already
in progress — it is only consulted between runs.`,
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	// The context is intentionally never threaded into any netlink call:
	// a signal cancels ctx, but Engine.Reconcile is not passed ctx, so an
	// in-progress pass always finishes before this command returns.
	run := runReconcile(engine.Apply)
	err := run(cmd, args)
	if ctx.Err() != nil {
		globalLogger.Info("ifstated apply interrupted, pass completed before exit")
	}
	return err
}
