package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"zkvault.io/private_inventory/circuit"
	"zkvault.io/private_inventory/core"
)

var generateCmd = &cobra.Command{
	Use:   "generate [itemCount] [seed]",
	Short: "Generate a deterministic registry and populated inventory for testing",
	Long: "Writes a volume registry and one populated inventory snapshot into the\n" +
		"output directory. The snapshot contains the inventory secrets and is for\n" +
		"development only; nothing under the output directory should be published\n" +
		"except proof files.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemCount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("parsing itemCount: %w", err)
		}
		seed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing seed: %w", err)
		}
		if err := os.MkdirAll(flagOutDir, 0o755); err != nil {
			return err
		}

		registry := core.GenerateTestRegistry(itemCount, seed)
		if err := core.WriteRegistryToFile(filepath.Join(flagOutDir, "registry.json"), registry); err != nil {
			return err
		}

		instanceID := circuit.FieldFromUint64(uint64(seed) + 1)
		state, err := core.GenerateTestInventory(flagDepth, itemCount, seed, registry, instanceID, 1_000_000)
		if err != nil {
			return err
		}
		if err := core.WriteDataToFile(filepath.Join(flagOutDir, "inventory.json"), core.SnapshotState(state)); err != nil {
			return err
		}
		fmt.Println("registry and inventory written to " + flagOutDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
