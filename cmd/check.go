package cmd

import (
	"fmt"

	"github.com/encodeous/ripd/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <config>",
	Short: "Validates a router config and prints it with defaults applied",
	Args:  configArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.LoadConfig(args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
