package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/rangecheck"
)

// MerkleProof carries the witnessed authentication path for one slot: the
// sibling hash at every level from the leaf, and the direction bit telling
// whether the running node is the right child at that level. Direction bits
// are constrained boolean in-circuit; the prover derives them from the
// binary expansion of the slot index (least-significant bit at level 0).
type MerkleProof struct {
	Path       []frontend.Variable
	Directions []frontend.Variable
}

// NewMerkleProof allocates an unassigned proof skeleton of the given depth,
// for use in the compile-time circuit definition.
func NewMerkleProof(depth int) MerkleProof {
	return MerkleProof{
		Path:       make([]frontend.Variable, depth),
		Directions: make([]frontend.Variable, depth),
	}
}

// enforceU32 proves 0 <= v < 2^32 by boolean decomposition into
// QuantityBits bits. Checking only the declared width is strictly cheaper
// than a full field-width decomposition.
func enforceU32(api frontend.API, v frontend.Variable) {
	ranger := rangecheck.New(api)
	ranger.Check(v, QuantityBits)
}

// enforceGeq proves a >= b for 32-bit operands. When a < b the field
// subtraction wraps to a ~254-bit value that cannot be reconstructed from
// 32 bits, so the range check is unsatisfiable.
func enforceGeq(api frontend.API, a, b frontend.Variable) {
	enforceU32(api, api.Sub(a, b))
}

// computeRootFromPath walks the authentication path from a leaf hash to the
// root. At each level the direction bit selects the operand order.
func computeRootFromPath(api frontend.API, h *Poseidon, leaf frontend.Variable, proof MerkleProof) frontend.Variable {
	cur := leaf
	for i := range proof.Path {
		dir := proof.Directions[i]
		api.AssertIsBoolean(dir)
		left := api.Select(dir, proof.Path[i], cur)
		right := api.Select(dir, cur, proof.Path[i])
		cur = h.Hash2(left, right)
	}
	return cur
}

// verifyMembership asserts that slot item_id holds quantity under root.
func verifyMembership(api frontend.API, h *Poseidon, root, itemID, quantity frontend.Variable, proof MerkleProof) {
	leaf := h.Hash2(itemID, quantity)
	computed := computeRootFromPath(api, h, leaf, proof)
	api.AssertIsEqual(computed, root)
}

// verifyAndUpdate asserts the old leaf under oldRoot and returns the root
// obtained by rewriting the same slot with newQuantity.
//
// Insertion special case: when oldQuantity is zero the slot was never
// occupied and the old leaf is the canonical empty-leaf constant
// Poseidon(0,0), not Poseidon(item_id, 0). The two are never treated as
// equivalent: a slot withdrawn to zero leaves Poseidon(item_id, 0) behind
// and cannot satisfy a later insertion proof (see the prover's retired-slot
// policy).
func verifyAndUpdate(api frontend.API, h *Poseidon, oldRoot, itemID, oldQuantity, newQuantity frontend.Variable, proof MerkleProof) frontend.Variable {
	isInsertion := api.IsZero(oldQuantity)
	occupiedLeaf := h.Hash2(itemID, oldQuantity)
	oldLeaf := api.Select(isInsertion, h.EmptyLeaf(), occupiedLeaf)

	computedOld := computeRootFromPath(api, h, oldLeaf, proof)
	api.AssertIsEqual(computedOld, oldRoot)

	newLeaf := h.Hash2(itemID, newQuantity)
	return computeRootFromPath(api, h, newLeaf, proof)
}

// commitmentVar composes the inventory commitment Poseidon(root, volume,
// blinding).
func commitmentVar(h *Poseidon, root, volume, blinding frontend.Variable) frontend.Variable {
	return h.Hash3(root, volume, blinding)
}

// signalHashVar composes the nine-element signal hash binding every
// semantically relevant public parameter of a state transition into one
// public input. The preimage order is part of the proof contract.
func signalHashVar(h *Poseidon, oldCommitment, newCommitment, registryRoot, maxCapacity, itemID, amount, opType, nonce, instanceID frontend.Variable) frontend.Variable {
	return h.Hash9([9]frontend.Variable{
		oldCommitment,
		newCommitment,
		registryRoot,
		maxCapacity,
		itemID,
		amount,
		opType,
		nonce,
		instanceID,
	})
}
