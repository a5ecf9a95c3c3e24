package circuit

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

// testDepth keeps gadget and circuit tests on a 16-slot tree.
const testDepth = 4

// testTreeLeaves materializes the full leaf level for a tiny tree.
// Untouched slots get the canonical empty leaf; entries with quantity 0
// model retired slots and hash as Poseidon(item_id, 0).
func testTreeLeaves(items map[uint32]uint64) []fr.Element {
	leaves := make([]fr.Element, 1<<testDepth)
	empty := GoEmptyLeaf()
	for i := range leaves {
		leaves[i] = empty
	}
	for id, qty := range items {
		leaves[id] = GoComputeLeafHash(id, qty)
	}
	return leaves
}

func testTreeRoot(leaves []fr.Element) fr.Element {
	level := append([]fr.Element(nil), leaves...)
	for len(level) > 1 {
		next := make([]fr.Element, len(level)/2)
		for i := range next {
			next[i] = Hash2(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func testTreeProof(leaves []fr.Element, index uint32) ([]fr.Element, []bool) {
	siblings := make([]fr.Element, testDepth)
	directions := make([]bool, testDepth)
	level := append([]fr.Element(nil), leaves...)
	idx := index
	for l := 0; l < testDepth; l++ {
		siblings[l] = level[idx^1]
		directions[l] = idx&1 == 1
		next := make([]fr.Element, len(level)/2)
		for i := range next {
			next[i] = Hash2(level[2*i], level[2*i+1])
		}
		level = next
		idx >>= 1
	}
	return siblings, directions
}

func merkleProofWitness(siblings []fr.Element, directions []bool) MerkleProof {
	mp := NewMerkleProof(len(siblings))
	for i := range siblings {
		mp.Path[i] = FieldToBig(siblings[i])
		if directions[i] {
			mp.Directions[i] = 1
		} else {
			mp.Directions[i] = 0
		}
	}
	return mp
}

type membershipCircuit struct {
	Root     frontend.Variable `gnark:",public"`
	ItemID   frontend.Variable
	Quantity frontend.Variable
	Proof    MerkleProof
}

func (c *membershipCircuit) Define(api frontend.API) error {
	h := NewPoseidon(api)
	verifyMembership(api, &h, c.Root, c.ItemID, c.Quantity, c.Proof)
	return nil
}

func newMembershipCircuit() *membershipCircuit {
	return &membershipCircuit{Proof: NewMerkleProof(testDepth)}
}

func TestMembershipGadget(t *testing.T) {
	assert := test.NewAssert(t)

	items := map[uint32]uint64{3: 10, 5: 2}
	leaves := testTreeLeaves(items)
	root := testTreeRoot(leaves)
	siblings, directions := testTreeProof(leaves, 3)

	assignment := newMembershipCircuit()
	assignment.Root = FieldToBig(root)
	assignment.ItemID = 3
	assignment.Quantity = 10
	assignment.Proof = merkleProofWitness(siblings, directions)
	assert.ProverSucceeded(newMembershipCircuit(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	// Wrong quantity under the same path must fail.
	bad := newMembershipCircuit()
	bad.Root = FieldToBig(root)
	bad.ItemID = 3
	bad.Quantity = 11
	bad.Proof = merkleProofWitness(siblings, directions)
	assert.ProverFailed(newMembershipCircuit(), bad,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

type updateCircuit struct {
	OldRoot frontend.Variable `gnark:",public"`
	NewRoot frontend.Variable `gnark:",public"`
	ItemID  frontend.Variable
	OldQty  frontend.Variable
	NewQty  frontend.Variable
	Proof   MerkleProof
}

func (c *updateCircuit) Define(api frontend.API) error {
	h := NewPoseidon(api)
	computed := verifyAndUpdate(api, &h, c.OldRoot, c.ItemID, c.OldQty, c.NewQty, c.Proof)
	api.AssertIsEqual(computed, c.NewRoot)
	return nil
}

func newUpdateCircuit() *updateCircuit {
	return &updateCircuit{Proof: NewMerkleProof(testDepth)}
}

func TestVerifyAndUpdateCoherence(t *testing.T) {
	assert := test.NewAssert(t)

	oldItems := map[uint32]uint64{3: 10, 7: 4}
	newItems := map[uint32]uint64{3: 6, 7: 4}
	oldLeaves := testTreeLeaves(oldItems)
	newLeaves := testTreeLeaves(newItems)
	siblings, directions := testTreeProof(oldLeaves, 3)

	assignment := newUpdateCircuit()
	assignment.OldRoot = FieldToBig(testTreeRoot(oldLeaves))
	assignment.NewRoot = FieldToBig(testTreeRoot(newLeaves))
	assignment.ItemID = 3
	assignment.OldQty = 10
	assignment.NewQty = 6
	assignment.Proof = merkleProofWitness(siblings, directions)
	assert.ProverSucceeded(newUpdateCircuit(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestInsertionUsesCanonicalEmptyLeaf(t *testing.T) {
	assert := test.NewAssert(t)

	// Slot 5 was never touched: inserting with old_qty = 0 must verify the
	// canonical empty leaf and succeed.
	oldItems := map[uint32]uint64{3: 10}
	newItems := map[uint32]uint64{3: 10, 5: 8}
	oldLeaves := testTreeLeaves(oldItems)
	newLeaves := testTreeLeaves(newItems)
	siblings, directions := testTreeProof(oldLeaves, 5)

	assignment := newUpdateCircuit()
	assignment.OldRoot = FieldToBig(testTreeRoot(oldLeaves))
	assignment.NewRoot = FieldToBig(testTreeRoot(newLeaves))
	assignment.ItemID = 5
	assignment.OldQty = 0
	assignment.NewQty = 8
	assignment.Proof = merkleProofWitness(siblings, directions)
	assert.ProverSucceeded(newUpdateCircuit(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestInsertionRejectsRetiredLeaf(t *testing.T) {
	assert := test.NewAssert(t)

	// Slot 5 carries the post-deletion leaf Poseidon(5, 0). An insertion
	// with old_qty = 0 selects the canonical empty leaf, which no longer
	// matches the old root: the circuit must not treat the two as
	// equivalent.
	oldItems := map[uint32]uint64{3: 10, 5: 0}
	newItems := map[uint32]uint64{3: 10, 5: 8}
	oldLeaves := testTreeLeaves(oldItems)
	newLeaves := testTreeLeaves(newItems)
	siblings, directions := testTreeProof(oldLeaves, 5)

	assignment := newUpdateCircuit()
	assignment.OldRoot = FieldToBig(testTreeRoot(oldLeaves))
	assignment.NewRoot = FieldToBig(testTreeRoot(newLeaves))
	assignment.ItemID = 5
	assignment.OldQty = 0
	assignment.NewQty = 8
	assignment.Proof = merkleProofWitness(siblings, directions)
	assert.ProverFailed(newUpdateCircuit(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

type geqCircuit struct {
	A frontend.Variable `gnark:",public"`
	B frontend.Variable `gnark:",public"`
}

func (c *geqCircuit) Define(api frontend.API) error {
	enforceGeq(api, c.A, c.B)
	return nil
}

func TestEnforceGeq(t *testing.T) {
	assert := test.NewAssert(t)

	cases := []struct {
		a, b uint64
		ok   bool
	}{
		{100, 50, true},
		{100, 100, true},
		{0, 0, true},
		{1<<32 - 1, 0, true},
		{50, 100, false},
		{0, 1, false},
	}
	for _, tc := range cases {
		assignment := &geqCircuit{A: tc.a, B: tc.b}
		if tc.ok {
			assert.ProverSucceeded(&geqCircuit{}, assignment,
				test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
		} else {
			assert.ProverFailed(&geqCircuit{}, assignment,
				test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
		}
	}
}

type u32Circuit struct {
	V frontend.Variable `gnark:",public"`
}

func (c *u32Circuit) Define(api frontend.API) error {
	enforceU32(api, c.V)
	return nil
}

func TestEnforceU32RejectsWideValues(t *testing.T) {
	assert := test.NewAssert(t)

	assert.ProverSucceeded(&u32Circuit{}, &u32Circuit{V: uint64(1<<32 - 1)},
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
	assert.ProverFailed(&u32Circuit{}, &u32Circuit{V: uint64(1 << 32)},
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}
