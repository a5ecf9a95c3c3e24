package circuit

import (
	"github.com/consensys/gnark/frontend"
)

// ItemExistsCircuit proves the committed inventory holds at least
// MinQuantity of ItemID. The single public input aggregates
// (commitment, item_id, min_qty) into one hash, matching the verifier's
// constrained public-input budget and binding the three inseparably.
type ItemExistsCircuit struct {
	PublicHash frontend.Variable `gnark:",public"`

	Root     frontend.Variable
	Volume   frontend.Variable
	Blinding frontend.Variable

	ItemID         frontend.Variable
	ActualQuantity frontend.Variable
	MinQuantity    frontend.Variable

	InventoryProof MerkleProof
}

// NewItemExistsCircuit returns the compile-time skeleton for a tree of the
// given depth.
func NewItemExistsCircuit(depth int) *ItemExistsCircuit {
	return &ItemExistsCircuit{InventoryProof: NewMerkleProof(depth)}
}

// Define verifies slot membership, the quantity bound, and the aggregated
// public hash. The quantity bound is enforced in-circuit: without it a
// prover could claim any minimum regardless of holdings.
func (c *ItemExistsCircuit) Define(api frontend.API) error {
	hasher := NewPoseidon(api)

	verifyMembership(api, &hasher, c.Root, c.ItemID, c.ActualQuantity, c.InventoryProof)

	enforceGeq(api, c.ActualQuantity, c.MinQuantity)

	commitment := commitmentVar(&hasher, c.Root, c.Volume, c.Blinding)
	computed := hasher.Hash3(commitment, c.ItemID, c.MinQuantity)
	api.AssertIsEqual(computed, c.PublicHash)

	return nil
}
