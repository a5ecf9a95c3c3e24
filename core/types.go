package core

import (
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"

	"zkvault.io/private_inventory/circuit"
)

// circuitKind enumerates the circuits a ProvingContext owns keys for.
type circuitKind int

const (
	kindStateTransition circuitKind = iota
	kindItemExists
	kindCapacity
	kindTransfer
)

var circuitKindNames = map[circuitKind]string{
	kindStateTransition: "state_transition",
	kindItemExists:      "item_exists",
	kindCapacity:        "capacity",
	kindTransfer:        "transfer",
}

// provingEntry holds the compiled constraint system and Groth16 key pair
// for one circuit.
type provingEntry struct {
	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// StateTransitionProof is what the prover publishes for one deposit or
// withdraw. Field elements travel as 32-byte little-endian strings; the
// proof is the base64 Groth16 encoding. The verifier recomputes the signal
// hash from the declared fields and its own stored state, so the carried
// SignalHash is informational.
type StateTransitionProof struct {
	InstanceID    []byte
	Nonce         uint64
	OpType        circuit.OperationType
	ItemID        uint32
	Amount        uint64
	NewCommitment []byte
	RegistryRoot  []byte
	SignalHash    []byte
	Proof         string
}

// ItemExistsProof is the published claim "this inventory holds at least
// MinQuantity of ItemID".
type ItemExistsProof struct {
	InstanceID  []byte
	ItemID      uint32
	MinQuantity uint64
	PublicHash  []byte
	Proof       string
}

// CapacityProof is the published claim "this inventory's volume is at most
// MaxCapacity".
type CapacityProof struct {
	InstanceID  []byte
	MaxCapacity uint64
	PublicHash  []byte
	Proof       string
}

// TransferProof is the published record of an atomic move between two
// inventories.
type TransferProof struct {
	SrcInstanceID    []byte
	DstInstanceID    []byte
	SrcNonce         uint64
	DstNonce         uint64
	ItemID           uint32
	Amount           uint64
	SrcNewCommitment []byte
	DstNewCommitment []byte
	RegistryRoot     []byte
	SignalHash       []byte
	Proof            string
}
