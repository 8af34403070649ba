package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liske/ifstated/internal/engine"
	"github.com/liske/ifstated/internal/model"
)

var vrrpCmd = &cobra.Command{
	Use:   "vrrp TYPE NAME STATE",
	Short: "Reconcile the links tagged for a VRRP transition, plus routing",
	Long: `vrrp is the entrypoint a keepalived notify script calls on a state
transition. TYPE is "group" or "instance", NAME is the keepalived
group/instance name, and STATE is one of "master", "backup", "fault"
or "unknown". Links are reconciled only when tagged with a matching
vrrp block; routes and rules without a vrrp block are reconciled as
usual, tagged ones only when their tag and STATE match (§4.6 step 5's
"optional VRRP tuple restricts reconciliation").`,
	Args: cobra.ExactArgs(3),
	RunE: runVrrp,
}

func runVrrp(cmd *cobra.Command, args []string) error {
	selector, err := parseVrrpArgs(args)
	if err != nil {
		return err
	}

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

	return e.Reconcile(resolved.Plan, engine.Apply, selector)
}

func parseVrrpArgs(args []string) (*engine.VrrpSelector, error) {
	var typ model.VrrpType
	switch args[0] {
	case string(model.VrrpGroup):
		typ = model.VrrpGroup
	case string(model.VrrpInstance):
		typ = model.VrrpInstance
	default:
		return nil, fmt.Errorf("vrrp: unknown TYPE %q, want %q or %q", args[0], model.VrrpGroup, model.VrrpInstance)
	}

	var state model.VrrpState
	switch args[2] {
	case string(model.VrrpMaster):
		state = model.VrrpMaster
	case string(model.VrrpBackup):
		state = model.VrrpBackup
	case string(model.VrrpFault):
		state = model.VrrpFault
	case string(model.VrrpUnknown):
		state = model.VrrpUnknown
	default:
		return nil, fmt.Errorf("vrrp: unknown STATE %q", args[2])
	}

	return &engine.VrrpSelector{Type: typ, Name: args[1], State: state}, nil
}
