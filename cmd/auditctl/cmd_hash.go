package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash file",
	Short: "Print the SHA-256 of a downloaded evidence package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := fileSHA256(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, args[0])
		return nil
	},
}

var verifyFlags struct {
	expected string
}

var verifyCmd = &cobra.Command{
	Use:   "verify file",
	Short: "Compare a package on disk against its recorded SHA-256",
	Long: `Verify recomputes the SHA-256 of a downloaded evidence package and compares
it with the hash recorded at generation time (the X-Content-SHA256 header or
the sha256 field of the verification response). Exits non-zero on mismatch.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlags.expected, "sha256", "", "Recorded hex SHA-256")
	_ = verifyCmd.MarkFlagRequired("sha256")
}

func runVerify(cmd *cobra.Command, args []string) error {
	sum, err := fileSHA256(args[0])
	if err != nil {
		return err
	}
	expected := strings.ToLower(strings.TrimSpace(verifyFlags.expected))
	if sum != expected {
		return fmt.Errorf("integrity mismatch: recorded %s, recomputed %s", expected, sum)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "valid  %s\n", sum)
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
