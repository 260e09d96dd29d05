// auditctl runs the payout fairness math and evidence hash checks offline.
//
// Usage:
//
//	auditctl split --bounty 1000 alice=30 bob=25 carol=20
//	auditctl gini 400 350 250
//	auditctl hash path/to/package.pdf
//	auditctl verify path/to/package.pdf --sha256 <hex>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "auditctl",
	Short: "Offline payout fairness and evidence integrity checks",
	Long:  "auditctl computes payout splits and Gini coefficients with the same\nrules the engine uses, and checks evidence package hashes on disk.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

var rootFlags struct {
	thresholdsFile string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.thresholdsFile, "thresholds", "", "YAML overlay for fairness thresholds (default: $FAIRNESS_THRESHOLDS_FILE)")
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(giniCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
