package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/encodeous/ripd/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	newId        uint16
	newPorts     []uint
	newNeighbors []string
	newForce     bool
)

// parseNeighbor reads a neighbour in the form id:port:cost
func parseNeighbor(s string) (state.NeighborLink, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return state.NeighborLink{}, fmt.Errorf("neighbour %q is not of the form id:port:cost", s)
	}
	vals := make([]uint64, 3)
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return state.NeighborLink{}, fmt.Errorf("neighbour %q: %w", s, err)
		}
		vals[i] = v
	}
	return state.NeighborLink{
		Id:   state.RouterId(vals[0]),
		Port: state.Port(vals[1]),
		Cost: state.Metric(vals[2]),
	}, nil
}

func buildConfig() (*state.RouterCfg, error) {
	cfg := &state.RouterCfg{
		Id:     state.RouterId(newId),
		Timers: state.DefaultTimers(),
	}
	for _, p := range newPorts {
		cfg.InputPorts = append(cfg.InputPorts, state.Port(p))
	}
	for _, n := range newNeighbors {
		link, err := parseNeighbor(n)
		if err != nil {
			return nil, err
		}
		cfg.Neighbors = append(cfg.Neighbors, link)
	}
	if err := state.RouterConfigValidator(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var newCmd = &cobra.Command{
	Use:   "new <config>",
	Short: "Writes a new router config",
	Args:  configArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil && !newForce {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		err = os.WriteFile(path, out, 0600)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote config for router %d to %s\n", cfg.Id, path)
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().Uint16VarP(&newId, "id", "i", 1, "router id")
	newCmd.Flags().UintSliceVarP(&newPorts, "port", "p", nil, "input port, may be repeated")
	newCmd.Flags().StringArrayVarP(&newNeighbors, "neighbor", "n", nil, "neighbour as id:port:cost, may be repeated")
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "overwrite an existing file")
}
