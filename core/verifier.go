package core

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"zkvault.io/private_inventory/circuit"
)

// InstanceRecord is the public state the host stores per inventory. The
// blinding, tree contents, and volume never appear here.
type InstanceRecord struct {
	Commitment  fr.Element
	Nonce       uint64
	InstanceID  fr.Element
	MaxCapacity uint64
}

// Verifier is a reference implementation of the host's acceptance rule. An
// on-chain contract performs the same checks; this one exists so the rule
// is executable in tests and in the CLI.
type Verifier struct {
	keys         map[circuitKind]groth16.VerifyingKey
	registryRoot fr.Element
	instances    map[string]*InstanceRecord
	log          zerolog.Logger
}

// NewVerifier pins the verifying keys and the trusted registry digest.
func NewVerifier(ctx *ProvingContext, registryRoot fr.Element, log zerolog.Logger) *Verifier {
	keys := make(map[circuitKind]groth16.VerifyingKey, len(ctx.entries))
	for kind, entry := range ctx.entries {
		keys[kind] = entry.vk
	}
	return &Verifier{
		keys:         keys,
		registryRoot: registryRoot,
		instances:    make(map[string]*InstanceRecord),
		log:          log,
	}
}

func instanceKey(id fr.Element) string {
	return id.String()
}

// Register creates the stored record for a new inventory with its initial
// commitment C0 and nonce 0.
func (v *Verifier) Register(instanceID fr.Element, initialCommitment fr.Element, maxCapacity uint64) {
	v.instances[instanceKey(instanceID)] = &InstanceRecord{
		Commitment:  initialCommitment,
		InstanceID:  instanceID,
		MaxCapacity: maxCapacity,
	}
}

// Instance returns a copy of the stored record.
func (v *Verifier) Instance(instanceID fr.Element) (InstanceRecord, bool) {
	rec, ok := v.instances[instanceKey(instanceID)]
	if !ok {
		return InstanceRecord{}, false
	}
	return *rec, true
}

func (v *Verifier) lookup(instanceID []byte) (*InstanceRecord, fr.Element, error) {
	id, err := FieldFromBytesLE(instanceID)
	if err != nil {
		return nil, fr.Element{}, err
	}
	rec, ok := v.instances[instanceKey(id)]
	if !ok {
		return nil, fr.Element{}, fmt.Errorf("unknown instance %s: %w", id.String(), ErrStaleOrInconsistent)
	}
	return rec, id, nil
}

func (v *Verifier) verify(kind circuitKind, encoded string, publicAssignment frontend.Circuit) error {
	proof, err := DecodeProof(encoded)
	if err != nil {
		return err
	}
	pub, err := frontend.NewWitness(publicAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("building public witness: %w", err)
	}
	if err := groth16.Verify(proof, v.keys[kind], pub); err != nil {
		return fmt.Errorf("%s proof rejected: %w", circuitKindNames[kind], ErrStaleOrInconsistent)
	}
	return nil
}

// AcceptStateTransition applies the acceptance rule for one deposit or
// withdraw: nonce match, instance match, registry digest match, signal
// hash recomputed from stored state and declared fields, Groth16
// verification. On success the stored commitment is replaced and the nonce
// bumped atomically; on any failure the record is untouched.
func (v *Verifier) AcceptStateTransition(b *StateTransitionProof) error {
	rec, _, err := v.lookup(b.InstanceID)
	if err != nil {
		return err
	}
	if b.Nonce != rec.Nonce {
		return fmt.Errorf("nonce %d, stored %d: %w", b.Nonce, rec.Nonce, ErrStaleOrInconsistent)
	}
	declaredRoot, err := FieldFromBytesLE(b.RegistryRoot)
	if err != nil {
		return err
	}
	if !declaredRoot.Equal(&v.registryRoot) {
		return fmt.Errorf("registry root mismatch: %w", ErrStaleOrInconsistent)
	}
	newCommitment, err := FieldFromBytesLE(b.NewCommitment)
	if err != nil {
		return err
	}

	// The signal hash is recomputed here from the stored commitment and
	// capacity; the prover's own copy is never trusted.
	signal := circuit.GoComputeSignalHash(
		rec.Commitment, newCommitment, v.registryRoot,
		rec.MaxCapacity, b.ItemID, b.Amount, b.OpType, rec.Nonce, rec.InstanceID)

	public := &circuit.StateTransitionCircuit{
		SignalHash:   circuit.FieldToBig(signal),
		Nonce:        rec.Nonce,
		InstanceID:   circuit.FieldToBig(rec.InstanceID),
		RegistryRoot: circuit.FieldToBig(v.registryRoot),
	}
	if err := v.verify(kindStateTransition, b.Proof, public); err != nil {
		return err
	}

	rec.Commitment = newCommitment
	rec.Nonce++
	v.log.Info().
		Str("op", b.OpType.String()).
		Uint64("nonce", rec.Nonce).
		Msg("state transition accepted")
	return nil
}

// CheckItemExists verifies an existence claim against the stored
// commitment. Read-only.
func (v *Verifier) CheckItemExists(b *ItemExistsProof) error {
	rec, _, err := v.lookup(b.InstanceID)
	if err != nil {
		return err
	}
	publicHash := circuit.GoComputeItemExistsHash(rec.Commitment, b.ItemID, b.MinQuantity)
	public := &circuit.ItemExistsCircuit{PublicHash: circuit.FieldToBig(publicHash)}
	return v.verify(kindItemExists, b.Proof, public)
}

// CheckCapacity verifies a capacity claim against the stored commitment.
// Read-only.
func (v *Verifier) CheckCapacity(b *CapacityProof) error {
	rec, _, err := v.lookup(b.InstanceID)
	if err != nil {
		return err
	}
	publicHash := circuit.GoComputeCapacityHash(rec.Commitment, b.MaxCapacity)
	public := &circuit.CapacityCircuit{PublicHash: circuit.FieldToBig(publicHash)}
	return v.verify(kindCapacity, b.Proof, public)
}

// AcceptTransfer applies the acceptance rule to both sides of a transfer
// and advances both records atomically: neither is mutated unless every
// check passes.
func (v *Verifier) AcceptTransfer(b *TransferProof) error {
	srcRec, _, err := v.lookup(b.SrcInstanceID)
	if err != nil {
		return err
	}
	dstRec, _, err := v.lookup(b.DstInstanceID)
	if err != nil {
		return err
	}
	if b.SrcNonce != srcRec.Nonce {
		return fmt.Errorf("source nonce %d, stored %d: %w", b.SrcNonce, srcRec.Nonce, ErrStaleOrInconsistent)
	}
	if b.DstNonce != dstRec.Nonce {
		return fmt.Errorf("destination nonce %d, stored %d: %w", b.DstNonce, dstRec.Nonce, ErrStaleOrInconsistent)
	}
	declaredRoot, err := FieldFromBytesLE(b.RegistryRoot)
	if err != nil {
		return err
	}
	if !declaredRoot.Equal(&v.registryRoot) {
		return fmt.Errorf("registry root mismatch: %w", ErrStaleOrInconsistent)
	}
	srcNewC, err := FieldFromBytesLE(b.SrcNewCommitment)
	if err != nil {
		return err
	}
	dstNewC, err := FieldFromBytesLE(b.DstNewCommitment)
	if err != nil {
		return err
	}

	srcSignal := circuit.GoComputeSignalHash(srcRec.Commitment, srcNewC, v.registryRoot,
		srcRec.MaxCapacity, b.ItemID, b.Amount, circuit.Withdraw, srcRec.Nonce, srcRec.InstanceID)
	dstSignal := circuit.GoComputeSignalHash(dstRec.Commitment, dstNewC, v.registryRoot,
		dstRec.MaxCapacity, b.ItemID, b.Amount, circuit.Deposit, dstRec.Nonce, dstRec.InstanceID)
	signal := circuit.GoComputeTransferSignalHash(srcSignal, dstSignal)

	public := &circuit.TransferCircuit{
		SignalHash:    circuit.FieldToBig(signal),
		SrcNonce:      srcRec.Nonce,
		DstNonce:      dstRec.Nonce,
		SrcInstanceID: circuit.FieldToBig(srcRec.InstanceID),
		DstInstanceID: circuit.FieldToBig(dstRec.InstanceID),
		RegistryRoot:  circuit.FieldToBig(v.registryRoot),
	}
	if err := v.verify(kindTransfer, b.Proof, public); err != nil {
		return err
	}

	srcRec.Commitment = srcNewC
	srcRec.Nonce++
	dstRec.Commitment = dstNewC
	dstRec.Nonce++
	v.log.Info().
		Uint32("item", b.ItemID).
		Uint64("amount", b.Amount).
		Msg("transfer accepted")
	return nil
}
