package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"oddlybrilliant/contexts/finance-core/payout-fairness-engine/domain/fairness"
)

var splitFlags struct {
	bounty float64
	asJSON bool
}

var splitCmd = &cobra.Command{
	Use:   "split contributor=weight...",
	Short: "Split a bounty proportionally to contribution weights",
	Long: `Split divides a bounty across contributors in whole cents. Amounts always
sum to the bounty and percentages to 100; the rounding residual goes to the
contributor with the largest weight.

Usage:
  auditctl split --bounty 1000 alice=30 bob=25 carol=20
  auditctl split --bounty 99.99 --json a=1 b=1 c=1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSplit,
}

func init() {
	f := splitCmd.Flags()
	f.Float64Var(&splitFlags.bounty, "bounty", 0, "Bounty amount to distribute")
	f.BoolVar(&splitFlags.asJSON, "json", false, "Print shares as JSON")
	_ = splitCmd.MarkFlagRequired("bounty")
}

func runSplit(cmd *cobra.Command, args []string) error {
	weights, err := parseWeights(args)
	if err != nil {
		return err
	}
	shares, err := fairness.CalculateSplit(splitFlags.bounty, weights)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if splitFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(shares)
	}
	for _, share := range shares {
		fmt.Fprintf(out, "%-24s %8.2f%% %12.2f\n", share.ContributorID, share.Percentage, share.Amount)
	}
	return nil
}

func parseWeights(args []string) ([]fairness.WeightedContributor, error) {
	weights := make([]fairness.WeightedContributor, 0, len(args))
	for _, arg := range args {
		id, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("expected contributor=weight, got %q", arg)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", id, err)
		}
		weights = append(weights, fairness.WeightedContributor{
			ContributorID: strings.TrimSpace(id),
			Weight:        weight,
		})
	}
	return weights, nil
}
