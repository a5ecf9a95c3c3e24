// Package cli wires the prover and reference verifier into cobra commands
// for local development: key setup, test data generation, proving, and
// acceptance-rule verification.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagDepth   int
	flagKeyDir  string
	flagOutDir  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "private_inventory",
	Short: "Privacy-preserving inventory proofs over BN254",
	Long: "Generates and checks zero-knowledge proofs over hidden inventories\n" +
		"against a single public commitment. The prove and verify commands\n" +
		"cover deposit and withdraw state transitions; transfer, existence and\n" +
		"capacity proofs are not exposed as commands.",
}

// Logger builds the process logger honoring the verbosity flag.
func Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagDepth, "depth", 12, "sparse Merkle tree depth")
	rootCmd.PersistentFlags().StringVar(&flagKeyDir, "keys", "out/keys", "directory holding proving/verifying keys")
	rootCmd.PersistentFlags().StringVar(&flagOutDir, "out", "out", "directory for generated artifacts")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}
