package circuit

import (
	"github.com/consensys/gnark-crypto/ecc"
)

const (
	// TreeDepth is the default sparse Merkle tree depth, giving 2^12 = 4096
	// addressable item slots. Provers and verifiers must agree on the depth
	// for a given set of circuit keys.
	TreeDepth = 12

	// QuantityBits bounds item quantities and inventory volumes. The bound is
	// a security invariant: every freshly computed quantity and volume is
	// range checked to this width in-circuit so field wrap-around cannot
	// smuggle a negative value past a constraint.
	QuantityBits = 32

	// EmptySlotSentinel is the reserved item identifier for an unoccupied
	// slot. Real items must use identifiers in [1, 2^TreeDepth).
	EmptySlotSentinel = 0
)

// OperationType tags a state-changing operation. The field encoding is part
// of the proof contract: Deposit = 0, Withdraw = 1, and the circuits enforce
// booleanness of the encoded value.
type OperationType uint8

const (
	Deposit OperationType = iota
	Withdraw
)

func (t OperationType) String() string {
	switch t {
	case Deposit:
		return "deposit"
	case Withdraw:
		return "withdraw"
	}
	return "unknown"
}

// MaxSlots returns the number of addressable slots for a tree of the given
// depth.
func MaxSlots(depth int) uint64 {
	return 1 << uint(depth)
}

// ModBytes is the serialized width of a BN254 scalar field element.
var ModBytes = len(ecc.BN254.ScalarField().Bytes())
