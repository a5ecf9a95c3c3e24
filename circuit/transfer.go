package circuit

import (
	"github.com/consensys/gnark/frontend"
)

// TransferCircuit proves an atomic move of Amount units of ItemID from a
// source inventory to a destination inventory: the source side carries the
// constraints of a withdraw, the destination side those of a deposit, over
// two independent trees. Both sides bind into a single public signal hash
// Poseidon(src_signal, dst_signal), where each side's signal is the
// standard nine-element layout with op_type Withdraw and Deposit
// respectively. The verifier accepts only when both instances' stored
// commitments and nonces match, and advances both atomically.
type TransferCircuit struct {
	SignalHash    frontend.Variable `gnark:",public"`
	SrcNonce      frontend.Variable `gnark:",public"`
	DstNonce      frontend.Variable `gnark:",public"`
	SrcInstanceID frontend.Variable `gnark:",public"`
	DstInstanceID frontend.Variable `gnark:",public"`
	RegistryRoot  frontend.Variable `gnark:",public"`

	SrcOldRoot     frontend.Variable
	SrcOldVolume   frontend.Variable
	SrcOldBlinding frontend.Variable
	SrcNewRoot     frontend.Variable
	SrcNewVolume   frontend.Variable
	SrcNewBlinding frontend.Variable
	SrcOldQuantity frontend.Variable
	SrcNewQuantity frontend.Variable
	SrcMaxCapacity frontend.Variable
	SrcProof       MerkleProof

	DstOldRoot     frontend.Variable
	DstOldVolume   frontend.Variable
	DstOldBlinding frontend.Variable
	DstNewRoot     frontend.Variable
	DstNewVolume   frontend.Variable
	DstNewBlinding frontend.Variable
	DstOldQuantity frontend.Variable
	DstNewQuantity frontend.Variable
	DstMaxCapacity frontend.Variable
	DstProof       MerkleProof

	ItemID     frontend.Variable
	Amount     frontend.Variable
	ItemVolume frontend.Variable
}

// NewTransferCircuit returns the compile-time skeleton for trees of the
// given depth. Both inventories must use the same depth.
func NewTransferCircuit(depth int) *TransferCircuit {
	return &TransferCircuit{
		SrcProof: NewMerkleProof(depth),
		DstProof: NewMerkleProof(depth),
	}
}

// Define lays down the withdraw-side and deposit-side constraints and the
// paired signal binding.
func (c *TransferCircuit) Define(api frontend.API) error {
	hasher := NewPoseidon(api)

	// Source loses Amount.
	srcNewRoot := verifyAndUpdate(api, &hasher, c.SrcOldRoot, c.ItemID, c.SrcOldQuantity, c.SrcNewQuantity, c.SrcProof)
	api.AssertIsEqual(srcNewRoot, c.SrcNewRoot)
	api.AssertIsEqual(c.SrcNewQuantity, api.Sub(c.SrcOldQuantity, c.Amount))
	enforceU32(api, c.SrcNewQuantity)

	delta := api.Mul(c.ItemVolume, c.Amount)
	api.AssertIsEqual(c.SrcNewVolume, api.Sub(c.SrcOldVolume, delta))
	enforceU32(api, c.SrcNewVolume)
	enforceGeq(api, c.SrcMaxCapacity, c.SrcNewVolume)

	// Destination gains Amount.
	dstNewRoot := verifyAndUpdate(api, &hasher, c.DstOldRoot, c.ItemID, c.DstOldQuantity, c.DstNewQuantity, c.DstProof)
	api.AssertIsEqual(dstNewRoot, c.DstNewRoot)
	api.AssertIsEqual(c.DstNewQuantity, api.Add(c.DstOldQuantity, c.Amount))
	enforceU32(api, c.DstNewQuantity)

	api.AssertIsEqual(c.DstNewVolume, api.Add(c.DstOldVolume, delta))
	enforceU32(api, c.DstNewVolume)
	enforceGeq(api, c.DstMaxCapacity, c.DstNewVolume)

	// Per-side commitments and signals.
	srcOldCommitment := commitmentVar(&hasher, c.SrcOldRoot, c.SrcOldVolume, c.SrcOldBlinding)
	srcNewCommitment := commitmentVar(&hasher, c.SrcNewRoot, c.SrcNewVolume, c.SrcNewBlinding)
	dstOldCommitment := commitmentVar(&hasher, c.DstOldRoot, c.DstOldVolume, c.DstOldBlinding)
	dstNewCommitment := commitmentVar(&hasher, c.DstNewRoot, c.DstNewVolume, c.DstNewBlinding)

	srcSignal := signalHashVar(&hasher,
		srcOldCommitment, srcNewCommitment, c.RegistryRoot,
		c.SrcMaxCapacity, c.ItemID, c.Amount, int(Withdraw), c.SrcNonce, c.SrcInstanceID)
	dstSignal := signalHashVar(&hasher,
		dstOldCommitment, dstNewCommitment, c.RegistryRoot,
		c.DstMaxCapacity, c.ItemID, c.Amount, int(Deposit), c.DstNonce, c.DstInstanceID)

	signal := hasher.Hash2(srcSignal, dstSignal)
	api.AssertIsEqual(signal, c.SignalHash)

	return nil
}
