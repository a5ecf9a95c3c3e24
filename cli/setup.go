package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zkvault.io/private_inventory/core"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Compile the circuits and generate Groth16 key pairs",
	Long: "Compiles all four circuits (state transition, item exists, capacity,\n" +
		"transfer) for the configured tree depth, runs the Groth16 setup, and\n" +
		"writes the proving/verifying key pairs into the key directory.\n" +
		"Development only: production keys come from a key ceremony.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := Logger()
		log.Info().Int("depth", flagDepth).Msg("compiling circuits and running setup")
		ctx, err := core.NewProvingContext(flagDepth)
		if err != nil {
			return err
		}
		if err := ctx.Save(flagKeyDir); err != nil {
			return err
		}
		fmt.Println("keys written to " + flagKeyDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
