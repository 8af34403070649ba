package main

import (
	"github.com/spf13/cobra"

	"github.com/liske/ifstated/internal/engine"
	"github.com/liske/ifstated/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show what would change without touching the kernel",
	Long: `check loads the configuration, diffs it against live kernel state in
every tracked namespace, and reports what would be added, changed, or
removed — without issuing any netlink mutation.`,
	RunE: runReconcile(engine.Check),
}

func runReconcile(mode engine.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt := model.LoadRTTables()
		resolved, err := loadResolved(globalConfigPath, rt)
		if err != nil {
			return err
		}

		logger := newReportLogger()
		e, closeAll, err := buildEngine(resolved, rt, logger)
		defer closeAll()
		if err != nil {
			return err
		}

		return e.Reconcile(resolved.Plan, mode, nil)
	}
}
