package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
	"oddlybrilliant/internal/platform/config"
)

var giniCmd = &cobra.Command{
	Use:   "gini amount...",
	Short: "Compute the Gini coefficient of payout amounts",
	Long: `Gini prints the coefficient (0 = equal, 1 = one recipient takes all) and
the reporting category for a list of payout amounts.

Usage:
  auditctl gini 400 350 250
  auditctl gini --thresholds limits.yaml 1000 0 0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGini,
}

func runGini(cmd *cobra.Command, args []string) error {
	amounts := make([]float64, 0, len(args))
	for _, arg := range args {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", arg, err)
		}
		amounts = append(amounts, value)
	}
	thresholds, err := loadThresholds()
	if err != nil {
		return err
	}
	gini := fairness.Gini(amounts)
	fmt.Fprintf(cmd.OutOrStdout(), "gini=%.4f category=%s\n", gini, fairness.Categorize(gini, thresholds.Buckets))
	return nil
}

func loadThresholds() (fairness.Thresholds, error) {
	path := rootFlags.thresholdsFile
	if path == "" {
		path = os.Getenv("FAIRNESS_THRESHOLDS_FILE")
	}
	thresholds := fairness.DefaultThresholds()
	if err := config.LoadYAMLOverlay(path, &thresholds); err != nil {
		return fairness.Thresholds{}, err
	}
	return thresholds, nil
}
