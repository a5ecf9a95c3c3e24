package core

import (
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkvault.io/private_inventory/circuit"
)

const maxU32 = uint64(math.MaxUint32)

// Operation is one requested state change.
type Operation struct {
	Type   circuit.OperationType
	ItemID uint32
	Amount uint64
}

// InventoryState is the prover's complete view of one live inventory: the
// full tree, the running volume, the blinding secret, the operation counter,
// and the public instance identity with its capacity bound. The public side
// only ever sees Commitment().
type InventoryState struct {
	Tree        *SparseMerkleTree
	Volume      uint64
	Blinding    fr.Element
	Nonce       uint64
	InstanceID  fr.Element
	MaxCapacity uint64
}

// NewInventoryState creates an empty inventory with a fresh random
// blinding.
func NewInventoryState(depth int, instanceID fr.Element, maxCapacity uint64) (*InventoryState, error) {
	blinding, err := SampleBlinding()
	if err != nil {
		return nil, err
	}
	return &InventoryState{
		Tree:        NewSparseMerkleTree(depth),
		Blinding:    blinding,
		InstanceID:  instanceID,
		MaxCapacity: maxCapacity,
	}, nil
}

// SampleBlinding draws a uniform field element from crypto/rand.
func SampleBlinding() (fr.Element, error) {
	var b fr.Element
	if _, err := b.SetRandom(); err != nil {
		return fr.Element{}, fmt.Errorf("sampling blinding: %w", err)
	}
	return b, nil
}

// Commitment returns Poseidon(root, total_volume, blinding), the only value
// published for this inventory.
func (s *InventoryState) Commitment() fr.Element {
	return circuit.GoComputeCommitment(s.Tree.Root(), s.Volume, s.Blinding)
}

// Clone deep-copies the state for speculative application.
func (s *InventoryState) Clone() *InventoryState {
	c := *s
	c.Tree = s.Tree.Clone()
	return &c
}

// transition captures everything one accepted operation changes plus the
// witness material the circuit needs.
type transition struct {
	op          Operation
	itemVolume  uint64
	oldQuantity uint64
	newQuantity uint64
	oldState    *InventoryState
	newState    *InventoryState
	path        MerklePath
}

// applyOperation validates op against the current state and registry,
// then produces the successor state with a fresh blinding and bumped nonce.
// The receiver is never mutated; callers adopt the returned state only
// after external acceptance. Validation failures carry the §7 taxonomy:
// quantity underflow, capacity overflow, and unknown items are
// ErrWitnessUnsatisfiable; 32-bit arithmetic overflow is ErrOverflow;
// deposits into retired slots are ErrSlotRetired.
func (s *InventoryState) applyOperation(op Operation, registry *VolumeRegistry) (*transition, error) {
	itemVolume, err := registry.Volume(op.ItemID)
	if err != nil {
		return nil, err
	}
	if op.Amount > maxU32 {
		return nil, fmt.Errorf("amount %d exceeds 32 bits: %w", op.Amount, ErrOverflow)
	}
	if itemVolume != 0 && op.Amount > maxU32/itemVolume {
		return nil, fmt.Errorf("amount %d x volume %d exceeds 32 bits: %w", op.Amount, itemVolume, ErrOverflow)
	}
	delta := op.Amount * itemVolume

	oldQuantity := s.Tree.Quantity(op.ItemID)
	var newQuantity, newVolume uint64
	switch op.Type {
	case circuit.Deposit:
		if oldQuantity == 0 && s.Tree.Retired(op.ItemID) {
			return nil, fmt.Errorf("deposit into slot %d: %w", op.ItemID, ErrSlotRetired)
		}
		newQuantity = oldQuantity + op.Amount
		if newQuantity > maxU32 {
			return nil, fmt.Errorf("quantity %d exceeds 32 bits: %w", newQuantity, ErrOverflow)
		}
		newVolume = s.Volume + delta
		if newVolume > maxU32 {
			return nil, fmt.Errorf("volume %d exceeds 32 bits: %w", newVolume, ErrOverflow)
		}
		if newVolume > s.MaxCapacity {
			return nil, fmt.Errorf("volume %d exceeds capacity %d: %w", newVolume, s.MaxCapacity, ErrWitnessUnsatisfiable)
		}
	case circuit.Withdraw:
		if op.Amount > oldQuantity {
			return nil, fmt.Errorf("withdraw %d exceeds held %d: %w", op.Amount, oldQuantity, ErrWitnessUnsatisfiable)
		}
		newQuantity = oldQuantity - op.Amount
		newVolume = s.Volume - delta
	default:
		return nil, fmt.Errorf("unknown operation type %d: %w", op.Type, ErrWitnessUnsatisfiable)
	}

	// The path is identical before and after a single-slot rewrite; take it
	// from the pre-state.
	path, err := s.Tree.Proof(op.ItemID)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	if err := next.Tree.Update(op.ItemID, newQuantity); err != nil {
		return nil, err
	}
	next.Volume = newVolume
	next.Nonce = s.Nonce + 1
	if next.Blinding, err = SampleBlinding(); err != nil {
		return nil, err
	}

	return &transition{
		op:          op,
		itemVolume:  itemVolume,
		oldQuantity: oldQuantity,
		newQuantity: newQuantity,
		oldState:    s,
		newState:    next,
		path:        path,
	}, nil
}
