package circuit

import (
	"github.com/consensys/gnark/frontend"
)

// StateTransitionCircuit proves one deposit or withdraw against a committed
// inventory. The four public inputs, in declaration order, form the public
// input vector the verifier expects: signal_hash, nonce, instance_id,
// registry_root. Everything else — both inventory states, the touched slot,
// the authentication path, the registered item volume, and the capacity
// bound — stays witness.
type StateTransitionCircuit struct {
	SignalHash   frontend.Variable `gnark:",public"`
	Nonce        frontend.Variable `gnark:",public"`
	InstanceID   frontend.Variable `gnark:",public"`
	RegistryRoot frontend.Variable `gnark:",public"`

	OldRoot     frontend.Variable
	OldVolume   frontend.Variable
	OldBlinding frontend.Variable
	NewRoot     frontend.Variable
	NewVolume   frontend.Variable
	NewBlinding frontend.Variable

	ItemID      frontend.Variable
	OldQuantity frontend.Variable
	NewQuantity frontend.Variable
	Amount      frontend.Variable
	OpType      frontend.Variable
	ItemVolume  frontend.Variable
	MaxCapacity frontend.Variable

	InventoryProof MerkleProof
}

// NewStateTransitionCircuit returns the compile-time skeleton for a tree of
// the given depth.
func NewStateTransitionCircuit(depth int) *StateTransitionCircuit {
	return &StateTransitionCircuit{InventoryProof: NewMerkleProof(depth)}
}

// Define lays down the constraints in logical dependency order: tree
// update, operation validity, quantity arithmetic and range, volume
// arithmetic and range, capacity, commitments, signal binding.
func (c *StateTransitionCircuit) Define(api frontend.API) error {
	hasher := NewPoseidon(api)

	computedNewRoot := verifyAndUpdate(api, &hasher, c.OldRoot, c.ItemID, c.OldQuantity, c.NewQuantity, c.InventoryProof)
	api.AssertIsEqual(computedNewRoot, c.NewRoot)

	api.AssertIsBoolean(c.OpType)

	// OpType 0 deposits, 1 withdraws.
	deposited := api.Add(c.OldQuantity, c.Amount)
	withdrawn := api.Sub(c.OldQuantity, c.Amount)
	expectedNewQuantity := api.Select(c.OpType, withdrawn, deposited)
	api.AssertIsEqual(c.NewQuantity, expectedNewQuantity)

	// On withdraw a field-wrapped "negative" quantity cannot fit in 32 bits.
	enforceU32(api, c.NewQuantity)

	delta := api.Mul(c.ItemVolume, c.Amount)
	grown := api.Add(c.OldVolume, delta)
	shrunk := api.Sub(c.OldVolume, delta)
	expectedNewVolume := api.Select(c.OpType, shrunk, grown)
	api.AssertIsEqual(c.NewVolume, expectedNewVolume)

	enforceU32(api, c.NewVolume)
	enforceGeq(api, c.MaxCapacity, c.NewVolume)

	oldCommitment := commitmentVar(&hasher, c.OldRoot, c.OldVolume, c.OldBlinding)
	newCommitment := commitmentVar(&hasher, c.NewRoot, c.NewVolume, c.NewBlinding)

	signal := signalHashVar(&hasher,
		oldCommitment, newCommitment, c.RegistryRoot,
		c.MaxCapacity, c.ItemID, c.Amount, c.OpType, c.Nonce, c.InstanceID)
	api.AssertIsEqual(signal, c.SignalHash)

	return nil
}
