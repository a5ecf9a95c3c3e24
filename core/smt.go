package core

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkvault.io/private_inventory/circuit"
)

// leafState records one touched slot. A slot with Quantity 0 that was
// previously occupied is retired: its leaf is Poseidon(item_id, 0), which
// the circuits never treat as the canonical empty leaf, so the slot can no
// longer host an insertion.
type leafState struct {
	ItemID   uint32
	Quantity uint64
}

// SparseMerkleTree is the prover's full copy of one inventory tree. Only
// touched slots are stored; untouched subtrees hash to per-level empty
// constants. The slot index is the item identifier itself — no hash-to-slot
// is performed — so the direction bits of an authentication path are the
// binary expansion of the item id, least-significant bit at level 0.
type SparseMerkleTree struct {
	depth  int
	leaves map[uint64]leafState
	// nodes[level][index]; level 0 is the leaf level, level depth the root.
	nodes []map[uint64]fr.Element
	// empty[level] is the hash of an untouched subtree of that height.
	empty []fr.Element
}

// NewSparseMerkleTree builds an empty tree of the given depth.
func NewSparseMerkleTree(depth int) *SparseMerkleTree {
	if depth <= 0 {
		panic("tree depth must be positive")
	}
	t := &SparseMerkleTree{
		depth:  depth,
		leaves: make(map[uint64]leafState),
		nodes:  make([]map[uint64]fr.Element, depth+1),
		empty:  make([]fr.Element, depth+1),
	}
	for i := range t.nodes {
		t.nodes[i] = make(map[uint64]fr.Element)
	}
	t.empty[0] = circuit.GoEmptyLeaf()
	for i := 1; i <= depth; i++ {
		t.empty[i] = circuit.Hash2(t.empty[i-1], t.empty[i-1])
	}
	return t
}

// Depth returns the tree depth.
func (t *SparseMerkleTree) Depth() int { return t.depth }

func (t *SparseMerkleTree) node(level int, index uint64) fr.Element {
	if h, ok := t.nodes[level][index]; ok {
		return h
	}
	return t.empty[level]
}

// Root returns the current root hash.
func (t *SparseMerkleTree) Root() fr.Element {
	return t.node(t.depth, 0)
}

// Quantity returns the stored quantity for a slot; zero for empty and
// retired slots alike.
func (t *SparseMerkleTree) Quantity(itemID uint32) uint64 {
	return t.leaves[uint64(itemID)].Quantity
}

// Occupied reports whether the slot holds a non-zero quantity.
func (t *SparseMerkleTree) Occupied(itemID uint32) bool {
	return t.leaves[uint64(itemID)].Quantity > 0
}

// Retired reports whether the slot was withdrawn to zero and can no longer
// host an insertion.
func (t *SparseMerkleTree) Retired(itemID uint32) bool {
	l, touched := t.leaves[uint64(itemID)]
	return touched && l.Quantity == 0
}

func (t *SparseMerkleTree) checkIndex(itemID uint32) error {
	idx := uint64(itemID)
	if itemID == circuit.EmptySlotSentinel {
		return fmt.Errorf("item id 0 is the empty-slot sentinel: %w", ErrWitnessUnsatisfiable)
	}
	if idx >= circuit.MaxSlots(t.depth) {
		return fmt.Errorf("item id %d does not fit a depth-%d tree: %w", itemID, t.depth, ErrWitnessUnsatisfiable)
	}
	return nil
}

// Update rewrites the slot for itemID with the given quantity and
// recomputes the path to the root. Writing zero retires the slot.
func (t *SparseMerkleTree) Update(itemID uint32, quantity uint64) error {
	if err := t.checkIndex(itemID); err != nil {
		return err
	}
	idx := uint64(itemID)
	t.leaves[idx] = leafState{ItemID: itemID, Quantity: quantity}

	cur := circuit.GoComputeLeafHash(itemID, quantity)
	t.nodes[0][idx] = cur
	for level := 0; level < t.depth; level++ {
		sibling := t.node(level, idx^1)
		if idx&1 == 0 {
			cur = circuit.Hash2(cur, sibling)
		} else {
			cur = circuit.Hash2(sibling, cur)
		}
		idx >>= 1
		t.nodes[level+1][idx] = cur
	}
	return nil
}

// MerklePath is a witnessed authentication path: sibling hashes from the
// leaf up, and direction bits (true when the running node is the right
// child at that level).
type MerklePath struct {
	Siblings   []fr.Element
	Directions []bool
}

// Proof builds the authentication path for a slot. The same path witnesses
// both the old and the new leaf of a single-slot update.
func (t *SparseMerkleTree) Proof(itemID uint32) (MerklePath, error) {
	if err := t.checkIndex(itemID); err != nil {
		return MerklePath{}, err
	}
	idx := uint64(itemID)
	p := MerklePath{
		Siblings:   make([]fr.Element, t.depth),
		Directions: make([]bool, t.depth),
	}
	for level := 0; level < t.depth; level++ {
		p.Siblings[level] = t.node(level, idx^1)
		p.Directions[level] = idx&1 == 1
		idx >>= 1
	}
	return p, nil
}

// Clone deep-copies the tree. The prover simulates operations on clones and
// adopts them only after external acceptance.
func (t *SparseMerkleTree) Clone() *SparseMerkleTree {
	c := &SparseMerkleTree{
		depth:  t.depth,
		leaves: make(map[uint64]leafState, len(t.leaves)),
		nodes:  make([]map[uint64]fr.Element, len(t.nodes)),
		empty:  t.empty,
	}
	for k, v := range t.leaves {
		c.leaves[k] = v
	}
	for i := range t.nodes {
		c.nodes[i] = make(map[uint64]fr.Element, len(t.nodes[i]))
		for k, v := range t.nodes[i] {
			c.nodes[i][k] = v
		}
	}
	return c
}

// Items returns the occupied slots as an item → quantity map.
func (t *SparseMerkleTree) Items() map[uint32]uint64 {
	items := make(map[uint32]uint64)
	for _, l := range t.leaves {
		if l.Quantity > 0 {
			items[l.ItemID] = l.Quantity
		}
	}
	return items
}

// Leaves returns every touched slot, retired slots included. Retired slots
// carry the non-empty leaf Poseidon(item_id, 0) and must survive
// persistence round trips for the root to be reproducible.
func (t *SparseMerkleTree) Leaves() map[uint32]uint64 {
	leaves := make(map[uint32]uint64, len(t.leaves))
	for _, l := range t.leaves {
		leaves[l.ItemID] = l.Quantity
	}
	return leaves
}
