package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"zkvault.io/private_inventory/core"
)

var flagCommit bool

var proveCmd = &cobra.Command{
	Use:   "prove [deposit|withdraw] [itemID] [amount]",
	Short: "Prove one state transition against the stored inventory",
	Long: "Loads the inventory snapshot and registry from the output directory,\n" +
		"proves the requested operation, and writes the proof bundle to\n" +
		"proof_<nonce>.json. The updated inventory is written to\n" +
		"inventory.pending.json; pass --commit to overwrite inventory.json\n" +
		"directly once the external verifier has accepted the proof.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		opType, err := core.ParseOperationType(args[0])
		if err != nil {
			return err
		}
		itemID, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("parsing itemID: %w", err)
		}
		amount, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing amount: %w", err)
		}

		log := Logger()
		registry, err := core.ReadRegistryFromFile(filepath.Join(flagOutDir, "registry.json"))
		if err != nil {
			return err
		}
		snap, err := core.ReadDataFromFile[core.InventorySnapshot](filepath.Join(flagOutDir, "inventory.json"))
		if err != nil {
			return err
		}
		state, err := core.RestoreState(snap, registry)
		if err != nil {
			return err
		}
		ctx, err := core.LoadProvingContext(flagKeyDir, snap.Depth)
		if err != nil {
			return err
		}

		prover := core.NewProver(ctx, registry, log)
		bundle, next, err := prover.ProveStateTransition(state, core.Operation{
			Type:   opType,
			ItemID: uint32(itemID),
			Amount: amount,
		})
		if err != nil {
			return err
		}

		proofPath := filepath.Join(flagOutDir, fmt.Sprintf("proof_%d.json", bundle.Nonce))
		if err := core.WriteDataToFile(proofPath, *bundle); err != nil {
			return err
		}
		statePath := filepath.Join(flagOutDir, "inventory.pending.json")
		if flagCommit {
			statePath = filepath.Join(flagOutDir, "inventory.json")
		}
		if err := core.WriteDataToFile(statePath, core.SnapshotState(next)); err != nil {
			return err
		}
		fmt.Println("proof written to " + proofPath)
		return nil
	},
}

func init() {
	proveCmd.Flags().BoolVar(&flagCommit, "commit", false, "adopt the successor state immediately")
	rootCmd.AddCommand(proveCmd)
}
