package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtopt/app"
	"github.com/kilianp07/districtopt/config"
	"github.com/kilianp07/districtopt/pkg/export"
)

var (
	lpDistrict string
	lpOutput   string
)

var lpCmd = &cobra.Command{
	Use:   "lp",
	Short: "Write the linear program of one district in CPLEX LP format",
	RunE:  writeLP,
}

func init() {
	lpCmd.Flags().StringVar(&lpDistrict, "district", "", "district name")
	lpCmd.Flags().StringVarP(&lpOutput, "output", "o", "", "output file (stdout when empty)")
	_ = lpCmd.MarkFlagRequired("district")
	rootCmd.AddCommand(lpCmd)
}

func writeLP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	p, err := app.Problem(cfg, lpDistrict)
	if err != nil {
		return err
	}
	var w io.Writer = cmd.OutOrStdout()
	if lpOutput != "" {
		f, err := os.Create(lpOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.WriteLP(w, p, lpDistrict)
}
