package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtopt/app"
	"github.com/kilianp07/districtopt/config"
	"github.com/kilianp07/districtopt/infra/logger"

	// Built-in solvers and sinks register themselves.
	_ "github.com/kilianp07/districtopt/infra/kpi"
	_ "github.com/kilianp07/districtopt/infra/metrics"
	_ "github.com/kilianp07/districtopt/infra/mqtt"
	_ "github.com/kilianp07/districtopt/infra/solver"
	_ "github.com/kilianp07/districtopt/pkg/export"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "districtopt",
	Short: "District energy dispatch against wholesale markets",
	RunE:  run,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve every configured district and write the results",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", report.RunID)
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "  %-20s FAILED  %v\n", res.District, res.Err)
			continue
		}
		fmt.Fprintf(out, "  %-20s %-10s objective %14.2f  income %12.2f  expenses %12.2f\n",
			res.District, res.Status, res.Summary.Objective, res.Summary.TotalIncome, res.Summary.Expenses.Total())
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d districts failed", n, len(report.Results))
	}
	return nil
}
