package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtopt/config"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List configured districts and their technologies",
	RunE:  listDistricts,
}

func init() {
	rootCmd.AddCommand(districtsCmd)
}

func listDistricts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, d := range cfg.Districts {
		keys := d.Keys()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = string(k)
		}
		techs := strings.Join(names, ", ")
		if techs == "" {
			techs = "grid only"
		}
		fmt.Fprintf(out, "%-20s %-30s %s\n", d.Name, d.Profiles, techs)
	}
	return nil
}
