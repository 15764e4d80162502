package cmd

import (
	"log/slog"

	"github.com/encodeous/ripd/core"
	"github.com/encodeous/ripd/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Run the routing daemon",
	Long:  `This will run one router on the current host. It binds every input port in the config on the loopback interface.`,
	Args:  configArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.LoadConfig(args[0])
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		return core.Start(*cfg, level)
	},
	GroupID: "rip",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output, includes route changes and table dumps")
}
