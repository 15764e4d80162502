package cmd

import (
	"fmt"

	"github.com/encodeous/ripd/core"
	"github.com/encodeous/ripd/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <config>",
	Aliases: []string{"i"},
	Short:   "Inspects the route table of a running router",
	Args:    configArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.LoadConfig(args[0])
		if err != nil {
			return err
		}
		result, err := core.IPCGet(cfg.GetCtlPath())
		if err != nil {
			return fmt.Errorf("router %d is not reachable: %w", cfg.Id, err)
		}
		fmt.Print(result)
		return nil
	},
	GroupID: "rip",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
