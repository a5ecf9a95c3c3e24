package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"zkvault.io/private_inventory/core"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path/to/proof.json]",
	Short: "Replay a state-transition proof through the reference acceptance rule",
	Long: "Reconstructs the host verifier's stored record from the inventory\n" +
		"snapshot the proof was generated against, then applies the full\n" +
		"acceptance rule: nonce match, instance match, registry digest match,\n" +
		"signal-hash recomputation, and Groth16 verification. Intended to\n" +
		"validate proof bundles before submitting them to the real host.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := Logger()
		bundle, err := core.ReadDataFromFile[core.StateTransitionProof](args[0])
		if err != nil {
			return err
		}
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
		if state.Nonce != bundle.Nonce {
			return fmt.Errorf("proof nonce %d does not match stored inventory nonce %d: %w",
				bundle.Nonce, state.Nonce, core.ErrStaleOrInconsistent)
		}
		ctx, err := core.LoadProvingContext(flagKeyDir, snap.Depth)
		if err != nil {
			return err
		}

		verifier := core.NewVerifier(ctx, registry.Root(), log)
		verifier.Register(state.InstanceID, state.Commitment(), state.MaxCapacity)
		if err := verifier.AcceptStateTransition(&bundle); err != nil {
			return err
		}
		fmt.Println("Verification succeeded!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
