package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liske/ifstated/internal/emitter"
	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/nsctx"
	"github.com/liske/ifstated/internal/registry"
)

var (
	showAll      bool
	showIgnore   []string
	showNetnames []string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Emit a configuration document from live kernel state",
	Long: `show walks the live state of every named namespace (plus the root
namespace) and prints a configuration document shaped like the one
"apply" consumes, suitable for round-tripping into a starting
configuration.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showAll, "showall", false, "include default-valued knobs and dynamic addresses")
	showCmd.Flags().StringSliceVar(&showIgnore, "ignore", nil, "regex of interface names to omit (repeatable)")
	showCmd.Flags().StringSliceVar(&showNetnames, "netns", nil, "additional namespace to include besides the root namespace")
}

func runShow(cmd *cobra.Command, args []string) error {
	rt := model.LoadRTTables()

	contexts := map[string]*nsctx.NamespaceContext{}
	root, err := nsctx.Open(model.RootNS)
	if err != nil {
		return fmt.Errorf("opening root namespace: %w", err)
	}
	defer root.Close()
	contexts[model.RootNS] = root

	for _, name := range showNetnames {
		nc, err := nsctx.Open(name)
		if err != nil {
			return fmt.Errorf("opening namespace %s: %w", name, err)
		}
		defer nc.Close()
		contexts[name] = nc
	}

	opts := emitter.Options{ShowAll: showAll}
	for _, pattern := range showIgnore {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("--ignore %q: %w", pattern, err)
		}
		opts.Ignore = append(opts.Ignore, re)
	}

	reg := registry.New()
	if err := reg.Enumerate(contexts); err != nil {
		return fmt.Errorf("enumerating live links: %w", err)
	}

	doc, err := emitter.Emit(contexts, reg, rt, opts)
	if err != nil {
		return fmt.Errorf("emitting configuration: %w", err)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding emitted configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
