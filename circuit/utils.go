package circuit

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// The Go-native mirrors below replicate every hash composition the circuits
// perform, so the prover can precompute witnesses and the verifier can
// recompute public inputs without touching a constraint system. Each mirror
// returns a result byte-identical to its in-circuit twin.

// FieldFromUint64 lifts a non-negative integer into the scalar field.
func FieldFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// GoEmptyLeaf returns the canonical empty-leaf constant Poseidon(0, 0).
func GoEmptyLeaf() fr.Element {
	var zero fr.Element
	return Hash2(zero, zero)
}

// GoComputeLeafHash hashes an occupied slot. A slot withdrawn to zero
// hashes as Poseidon(item_id, 0), which is distinct from the canonical
// empty leaf.
func GoComputeLeafHash(itemID uint32, quantity uint64) fr.Element {
	return Hash2(FieldFromUint64(uint64(itemID)), FieldFromUint64(quantity))
}

// GoComputeEmptyRoot returns the root of an all-empty tree of the given
// depth.
func GoComputeEmptyRoot(depth int) fr.Element {
	cur := GoEmptyLeaf()
	for i := 0; i < depth; i++ {
		cur = Hash2(cur, cur)
	}
	return cur
}

// GoComputeCommitment mirrors the in-circuit commitment composer
// Poseidon(root, total_volume, blinding).
func GoComputeCommitment(root fr.Element, volume uint64, blinding fr.Element) fr.Element {
	return Hash3(root, FieldFromUint64(volume), blinding)
}

// GoComputeSignalHash mirrors the in-circuit nine-element signal-hash
// composer. The preimage order is fixed by the proof contract.
func GoComputeSignalHash(
	oldCommitment, newCommitment, registryRoot fr.Element,
	maxCapacity uint64,
	itemID uint32,
	amount uint64,
	opType OperationType,
	nonce uint64,
	instanceID fr.Element,
) fr.Element {
	return Hash9([9]fr.Element{
		oldCommitment,
		newCommitment,
		registryRoot,
		FieldFromUint64(maxCapacity),
		FieldFromUint64(uint64(itemID)),
		FieldFromUint64(amount),
		FieldFromUint64(uint64(opType)),
		FieldFromUint64(nonce),
		instanceID,
	})
}

// GoComputeTransferSignalHash pairs the withdraw-side and deposit-side
// signal hashes of a transfer into the single public input.
func GoComputeTransferSignalHash(srcSignal, dstSignal fr.Element) fr.Element {
	return Hash2(srcSignal, dstSignal)
}

// GoComputeItemExistsHash mirrors the aggregated public input of
// ItemExistsCircuit: Poseidon(commitment, item_id, min_qty).
func GoComputeItemExistsHash(commitment fr.Element, itemID uint32, minQuantity uint64) fr.Element {
	return Hash3(commitment, FieldFromUint64(uint64(itemID)), FieldFromUint64(minQuantity))
}

// GoComputeCapacityHash mirrors the aggregated public input of
// CapacityCircuit: Poseidon(commitment, max_capacity).
func GoComputeCapacityHash(commitment fr.Element, maxCapacity uint64) fr.Element {
	return Hash2(commitment, FieldFromUint64(maxCapacity))
}

// FieldToBig converts a field element into a fresh big.Int, the form gnark
// witness assignment expects.
func FieldToBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
