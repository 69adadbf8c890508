package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtopt/config"
	"github.com/kilianp07/districtopt/infra/logger"
	"github.com/kilianp07/districtopt/infra/rte"
)

var (
	pricesStart    string
	pricesDays     int
	pricesLocation string
	pricesOutput   string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch day-ahead exchange prices from RTE and write a market price file",
	RunE:  fetchPrices,
}

func init() {
	pricesCmd.Flags().StringVar(&pricesStart, "start", "", "first delivery day (YYYY-MM-DD)")
	pricesCmd.Flags().IntVar(&pricesDays, "days", 1, "number of delivery days")
	pricesCmd.Flags().StringVar(&pricesLocation, "tz", "Europe/Paris", "delivery time zone")
	pricesCmd.Flags().StringVarP(&pricesOutput, "output", "o", "", "output file (stdout when empty)")
	_ = pricesCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(pricesCmd)
}

func fetchPrices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := time.LoadLocation(pricesLocation)
	if err != nil {
		return err
	}
	start, err := time.ParseInLocation(time.DateOnly, pricesStart, loc)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if pricesDays < 1 {
		return fmt.Errorf("days must be positive, got %d", pricesDays)
	}
	end := start.AddDate(0, 0, pricesDays)

	client, err := rte.NewClient(cfg.RTE)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	prices, err := client.DayAhead(ctx, start, end)
	if err != nil {
		return err
	}
	step := time.Duration(cfg.Horizon.StepMinutes) * time.Minute
	n := int(end.Sub(start) / step)
	rows, err := rte.Rows(prices, start, step, n)
	if err != nil {
		return err
	}
	logger.New("prices").Infof("fetched %d exchange prices, writing %d steps", len(prices), n)

	var w io.Writer = cmd.OutOrStdout()
	if pricesOutput != "" {
		f, err := os.Create(pricesOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return rte.WriteCSV(w, rows)
}
