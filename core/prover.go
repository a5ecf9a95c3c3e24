package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"zkvault.io/private_inventory/circuit"
)

// ProvingContext owns the compiled constraint systems and Groth16 key
// pairs for every circuit at one tree depth. It is immutable after setup
// and freely shareable across goroutines; there is no process-wide cache.
type ProvingContext struct {
	depth   int
	entries map[circuitKind]*provingEntry
}

func circuitSkeleton(kind circuitKind, depth int) frontend.Circuit {
	switch kind {
	case kindStateTransition:
		return circuit.NewStateTransitionCircuit(depth)
	case kindItemExists:
		return circuit.NewItemExistsCircuit(depth)
	case kindCapacity:
		return &circuit.CapacityCircuit{}
	case kindTransfer:
		return circuit.NewTransferCircuit(depth)
	}
	panic("unknown circuit kind")
}

// NewProvingContext compiles all circuits for the given depth and runs the
// Groth16 setup for each. This is the development path; production keys
// come from a ceremony and are loaded with LoadProvingContext.
func NewProvingContext(depth int) (*ProvingContext, error) {
	ctx := &ProvingContext{depth: depth, entries: make(map[circuitKind]*provingEntry)}
	for kind, name := range circuitKindNames {
		cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuitSkeleton(kind, depth))
		if err != nil {
			return nil, fmt.Errorf("compiling %s circuit: %w", name, err)
		}
		pk, vk, err := groth16.Setup(cs)
		if err != nil {
			return nil, fmt.Errorf("setting up %s circuit: %w", name, err)
		}
		ctx.entries[kind] = &provingEntry{cs: cs, pk: pk, vk: vk}
	}
	return ctx, nil
}

// Depth returns the tree depth the keys were generated for.
func (ctx *ProvingContext) Depth() int { return ctx.depth }

// Save writes the proving and verifying keys under dir, one pair per
// circuit. Constraint systems are not persisted; compilation is
// deterministic and cheap relative to setup.
func (ctx *ProvingContext) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for kind, entry := range ctx.entries {
		name := circuitKindNames[kind]
		if err := writeKey(filepath.Join(dir, name+".pk"), entry.pk); err != nil {
			return err
		}
		if err := writeKey(filepath.Join(dir, name+".vk"), entry.vk); err != nil {
			return err
		}
	}
	return nil
}

func writeKey(path string, key io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := key.WriteTo(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readKeyFile(path string, key io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := key.ReadFrom(f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// LoadProvingContext recompiles the circuits for the given depth and reads
// previously saved key pairs from dir.
func LoadProvingContext(dir string, depth int) (*ProvingContext, error) {
	ctx := &ProvingContext{depth: depth, entries: make(map[circuitKind]*provingEntry)}
	for kind, name := range circuitKindNames {
		cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuitSkeleton(kind, depth))
		if err != nil {
			return nil, fmt.Errorf("compiling %s circuit: %w", name, err)
		}
		pk := groth16.NewProvingKey(ecc.BN254)
		if err := readKeyFile(filepath.Join(dir, name+".pk"), pk); err != nil {
			return nil, err
		}
		vk := groth16.NewVerifyingKey(ecc.BN254)
		if err := readKeyFile(filepath.Join(dir, name+".vk"), vk); err != nil {
			return nil, err
		}
		ctx.entries[kind] = &provingEntry{cs: cs, pk: pk, vk: vk}
	}
	return ctx, nil
}

// Prover turns validated operations into Groth16 proofs. It holds no
// inventory state of its own; callers own their InventoryState values and
// adopt successor states only after external acceptance.
type Prover struct {
	ctx      *ProvingContext
	registry *VolumeRegistry
	log      zerolog.Logger
}

// NewProver wires a prover to its keys and the public volume registry.
func NewProver(ctx *ProvingContext, registry *VolumeRegistry, log zerolog.Logger) *Prover {
	return &Prover{ctx: ctx, registry: registry, log: log}
}

// prove runs Groth16 on a full assignment and verifies the result locally
// before returning it. A locally unverifiable proof means the key pair is
// broken, which is fatal.
func (p *Prover) prove(kind circuitKind, assignment frontend.Circuit) (groth16.Proof, error) {
	entry := p.ctx.entries[kind]
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("building witness: %w", err)
	}
	start := time.Now()
	proof, err := groth16.Prove(entry.cs, entry.pk, w)
	if err != nil {
		return nil, fmt.Errorf("%s proving: %w", circuitKindNames[kind], err)
	}
	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("extracting public witness: %w", err)
	}
	if err := groth16.Verify(proof, entry.vk, pub); err != nil {
		return nil, fmt.Errorf("%s proof failed local verification: %w", circuitKindNames[kind], ErrKeyMismatch)
	}
	p.log.Debug().
		Str("circuit", circuitKindNames[kind]).
		Dur("took", time.Since(start)).
		Msg("proof generated")
	return proof, nil
}

func merkleProofAssignment(path MerklePath) circuit.MerkleProof {
	mp := circuit.NewMerkleProof(len(path.Siblings))
	for i := range path.Siblings {
		mp.Path[i] = circuit.FieldToBig(path.Siblings[i])
		if path.Directions[i] {
			mp.Directions[i] = 1
		} else {
			mp.Directions[i] = 0
		}
	}
	return mp
}

// ProveStateTransition validates op against state, generates the proof,
// and returns the bundle together with the successor state. The successor
// is not adopted here: callers commit it only once the host verifier
// accepts the bundle.
func (p *Prover) ProveStateTransition(state *InventoryState, op Operation) (*StateTransitionProof, *InventoryState, error) {
	tr, err := state.applyOperation(op, p.registry)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := p.proveTransition(tr)
	if err != nil {
		return nil, nil, err
	}
	return bundle, tr.newState, nil
}

func (p *Prover) proveTransition(tr *transition) (*StateTransitionProof, error) {
	registryRoot := p.registry.Root()
	oldState, newState := tr.oldState, tr.newState
	oldCommitment := oldState.Commitment()
	newCommitment := newState.Commitment()
	signal := circuit.GoComputeSignalHash(
		oldCommitment, newCommitment, registryRoot,
		oldState.MaxCapacity, tr.op.ItemID, tr.op.Amount, tr.op.Type,
		oldState.Nonce, oldState.InstanceID)

	assignment := circuit.NewStateTransitionCircuit(p.ctx.depth)
	assignment.SignalHash = circuit.FieldToBig(signal)
	assignment.Nonce = oldState.Nonce
	assignment.InstanceID = circuit.FieldToBig(oldState.InstanceID)
	assignment.RegistryRoot = circuit.FieldToBig(registryRoot)
	assignment.OldRoot = circuit.FieldToBig(oldState.Tree.Root())
	assignment.OldVolume = oldState.Volume
	assignment.OldBlinding = circuit.FieldToBig(oldState.Blinding)
	assignment.NewRoot = circuit.FieldToBig(newState.Tree.Root())
	assignment.NewVolume = newState.Volume
	assignment.NewBlinding = circuit.FieldToBig(newState.Blinding)
	assignment.ItemID = tr.op.ItemID
	assignment.OldQuantity = tr.oldQuantity
	assignment.NewQuantity = tr.newQuantity
	assignment.Amount = tr.op.Amount
	assignment.OpType = uint8(tr.op.Type)
	assignment.ItemVolume = tr.itemVolume
	assignment.MaxCapacity = oldState.MaxCapacity
	assignment.InventoryProof = merkleProofAssignment(tr.path)

	proof, err := p.prove(kindStateTransition, assignment)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeProof(proof)
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Str("op", tr.op.Type.String()).
		Uint32("item", tr.op.ItemID).
		Uint64("nonce", oldState.Nonce).
		Msg("state transition proved")
	return &StateTransitionProof{
		InstanceID:    FieldToBytesLE(oldState.InstanceID),
		Nonce:         oldState.Nonce,
		OpType:        tr.op.Type,
		ItemID:        tr.op.ItemID,
		Amount:        tr.op.Amount,
		NewCommitment: FieldToBytesLE(newCommitment),
		RegistryRoot:  FieldToBytesLE(registryRoot),
		SignalHash:    FieldToBytesLE(signal),
		Proof:         encoded,
	}, nil
}

// ProveBatch simulates ops sequentially against state — each operation
// sees its predecessor's tree, volume, and nonce — then generates the
// proofs concurrently and returns them in submission order together with
// the final state. Nothing is adopted until the whole batch is accepted
// externally in order.
func (p *Prover) ProveBatch(state *InventoryState, ops []Operation) ([]*StateTransitionProof, *InventoryState, error) {
	transitions := make([]*transition, len(ops))
	cur := state
	for i, op := range ops {
		tr, err := cur.applyOperation(op, p.registry)
		if err != nil {
			return nil, nil, fmt.Errorf("batch op %d: %w", i, err)
		}
		transitions[i] = tr
		cur = tr.newState
	}

	bundles := make([]*StateTransitionProof, len(ops))
	var g errgroup.Group
	for i, tr := range transitions {
		g.Go(func() error {
			bundle, err := p.proveTransition(tr)
			if err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
			bundles[i] = bundle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bundles, cur, nil
}

// ProveItemExists proves the inventory holds at least minQuantity of
// itemID. Read-only: no successor state is produced.
func (p *Prover) ProveItemExists(state *InventoryState, itemID uint32, minQuantity uint64) (*ItemExistsProof, error) {
	actual := state.Tree.Quantity(itemID)
	if !state.Tree.Occupied(itemID) && !state.Tree.Retired(itemID) {
		return nil, fmt.Errorf("slot %d has no leaf to open: %w", itemID, ErrWitnessUnsatisfiable)
	}
	if actual < minQuantity {
		return nil, fmt.Errorf("held %d below claimed minimum %d: %w", actual, minQuantity, ErrWitnessUnsatisfiable)
	}
	path, err := state.Tree.Proof(itemID)
	if err != nil {
		return nil, err
	}

	commitment := state.Commitment()
	publicHash := circuit.GoComputeItemExistsHash(commitment, itemID, minQuantity)

	assignment := circuit.NewItemExistsCircuit(p.ctx.depth)
	assignment.PublicHash = circuit.FieldToBig(publicHash)
	assignment.Root = circuit.FieldToBig(state.Tree.Root())
	assignment.Volume = state.Volume
	assignment.Blinding = circuit.FieldToBig(state.Blinding)
	assignment.ItemID = itemID
	assignment.ActualQuantity = actual
	assignment.MinQuantity = minQuantity
	assignment.InventoryProof = merkleProofAssignment(path)

	proof, err := p.prove(kindItemExists, assignment)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeProof(proof)
	if err != nil {
		return nil, err
	}
	return &ItemExistsProof{
		InstanceID:  FieldToBytesLE(state.InstanceID),
		ItemID:      itemID,
		MinQuantity: minQuantity,
		PublicHash:  FieldToBytesLE(publicHash),
		Proof:       encoded,
	}, nil
}

// ProveCapacity proves the committed volume is at most maxCapacity.
func (p *Prover) ProveCapacity(state *InventoryState, maxCapacity uint64) (*CapacityProof, error) {
	if state.Volume > maxCapacity {
		return nil, fmt.Errorf("volume %d above claimed capacity %d: %w", state.Volume, maxCapacity, ErrWitnessUnsatisfiable)
	}
	commitment := state.Commitment()
	publicHash := circuit.GoComputeCapacityHash(commitment, maxCapacity)

	assignment := &circuit.CapacityCircuit{
		PublicHash:  circuit.FieldToBig(publicHash),
		Root:        circuit.FieldToBig(state.Tree.Root()),
		Volume:      state.Volume,
		Blinding:    circuit.FieldToBig(state.Blinding),
		MaxCapacity: maxCapacity,
	}

	proof, err := p.prove(kindCapacity, assignment)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeProof(proof)
	if err != nil {
		return nil, err
	}
	return &CapacityProof{
		InstanceID:  FieldToBytesLE(state.InstanceID),
		MaxCapacity: maxCapacity,
		PublicHash:  FieldToBytesLE(publicHash),
		Proof:       encoded,
	}, nil
}

// ProveTransfer moves amount of itemID from src to dst in one proof and
// returns the bundle plus both successor states, neither adopted.
func (p *Prover) ProveTransfer(src, dst *InventoryState, itemID uint32, amount uint64) (*TransferProof, *InventoryState, *InventoryState, error) {
	srcTr, err := src.applyOperation(Operation{Type: circuit.Withdraw, ItemID: itemID, Amount: amount}, p.registry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transfer source: %w", err)
	}
	dstTr, err := dst.applyOperation(Operation{Type: circuit.Deposit, ItemID: itemID, Amount: amount}, p.registry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transfer destination: %w", err)
	}

	registryRoot := p.registry.Root()
	srcOldC, srcNewC := src.Commitment(), srcTr.newState.Commitment()
	dstOldC, dstNewC := dst.Commitment(), dstTr.newState.Commitment()
	srcSignal := circuit.GoComputeSignalHash(srcOldC, srcNewC, registryRoot,
		src.MaxCapacity, itemID, amount, circuit.Withdraw, src.Nonce, src.InstanceID)
	dstSignal := circuit.GoComputeSignalHash(dstOldC, dstNewC, registryRoot,
		dst.MaxCapacity, itemID, amount, circuit.Deposit, dst.Nonce, dst.InstanceID)
	signal := circuit.GoComputeTransferSignalHash(srcSignal, dstSignal)

	assignment := circuit.NewTransferCircuit(p.ctx.depth)
	assignment.SignalHash = circuit.FieldToBig(signal)
	assignment.SrcNonce = src.Nonce
	assignment.DstNonce = dst.Nonce
	assignment.SrcInstanceID = circuit.FieldToBig(src.InstanceID)
	assignment.DstInstanceID = circuit.FieldToBig(dst.InstanceID)
	assignment.RegistryRoot = circuit.FieldToBig(registryRoot)

	assignment.SrcOldRoot = circuit.FieldToBig(src.Tree.Root())
	assignment.SrcOldVolume = src.Volume
	assignment.SrcOldBlinding = circuit.FieldToBig(src.Blinding)
	assignment.SrcNewRoot = circuit.FieldToBig(srcTr.newState.Tree.Root())
	assignment.SrcNewVolume = srcTr.newState.Volume
	assignment.SrcNewBlinding = circuit.FieldToBig(srcTr.newState.Blinding)
	assignment.SrcOldQuantity = srcTr.oldQuantity
	assignment.SrcNewQuantity = srcTr.newQuantity
	assignment.SrcMaxCapacity = src.MaxCapacity
	assignment.SrcProof = merkleProofAssignment(srcTr.path)

	assignment.DstOldRoot = circuit.FieldToBig(dst.Tree.Root())
	assignment.DstOldVolume = dst.Volume
	assignment.DstOldBlinding = circuit.FieldToBig(dst.Blinding)
	assignment.DstNewRoot = circuit.FieldToBig(dstTr.newState.Tree.Root())
	assignment.DstNewVolume = dstTr.newState.Volume
	assignment.DstNewBlinding = circuit.FieldToBig(dstTr.newState.Blinding)
	assignment.DstOldQuantity = dstTr.oldQuantity
	assignment.DstNewQuantity = dstTr.newQuantity
	assignment.DstMaxCapacity = dst.MaxCapacity
	assignment.DstProof = merkleProofAssignment(dstTr.path)

	assignment.ItemID = itemID
	assignment.Amount = amount
	assignment.ItemVolume = srcTr.itemVolume

	proof, err := p.prove(kindTransfer, assignment)
	if err != nil {
		return nil, nil, nil, err
	}
	encoded, err := EncodeProof(proof)
	if err != nil {
		return nil, nil, nil, err
	}
	p.log.Info().
		Uint32("item", itemID).
		Uint64("amount", amount).
		Msg("transfer proved")
	return &TransferProof{
		SrcInstanceID:    FieldToBytesLE(src.InstanceID),
		DstInstanceID:    FieldToBytesLE(dst.InstanceID),
		SrcNonce:         src.Nonce,
		DstNonce:         dst.Nonce,
		ItemID:           itemID,
		Amount:           amount,
		SrcNewCommitment: FieldToBytesLE(srcNewC),
		DstNewCommitment: FieldToBytesLE(dstNewC),
		RegistryRoot:     FieldToBytesLE(registryRoot),
		SignalHash:       FieldToBytesLE(signal),
		Proof:            encoded,
	}, srcTr.newState, dstTr.newState, nil
}
