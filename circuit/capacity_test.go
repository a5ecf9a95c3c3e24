package circuit

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
)

func capacityAssignment(volume, maxCapacity uint64) *CapacityCircuit {
	blinding := FieldFromUint64(7)
	leaves := testTreeLeaves(map[uint32]uint64{3: 10})
	root := testTreeRoot(leaves)
	commitment := GoComputeCommitment(root, volume, blinding)
	publicHash := GoComputeCapacityHash(commitment, maxCapacity)

	return &CapacityCircuit{
		PublicHash:  FieldToBig(publicHash),
		Root:        FieldToBig(root),
		Volume:      volume,
		Blinding:    FieldToBig(blinding),
		MaxCapacity: maxCapacity,
	}
}

func TestCapacityWithinBound(t *testing.T) {
	assert := test.NewAssert(t)

	assert.ProverSucceeded(&CapacityCircuit{}, capacityAssignment(10, 1000),
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestCapacityAtBound(t *testing.T) {
	assert := test.NewAssert(t)

	assert.ProverSucceeded(&CapacityCircuit{}, capacityAssignment(1000, 1000),
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestCapacityExceededFails(t *testing.T) {
	assert := test.NewAssert(t)

	assert.ProverFailed(&CapacityCircuit{}, capacityAssignment(1001, 1000),
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}
