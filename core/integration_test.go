package core

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zkvault.io/private_inventory/circuit"
)

// Compilation and Groth16 setup dominate test runtime, so one context at
// the test depth is shared by every integration test.
var (
	integrationOnce sync.Once
	integrationCtx  *ProvingContext
	integrationErr  error
)

func integrationContext(t *testing.T) *ProvingContext {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}
	integrationOnce.Do(func() {
		integrationCtx, integrationErr = NewProvingContext(testDepth)
	})
	require.NoError(t, integrationErr)
	return integrationCtx
}

// testEnv wires a prover and verifier around a unit-volume registry, the
// configuration the concrete acceptance scenarios use.
type testEnv struct {
	ctx      *ProvingContext
	registry *VolumeRegistry
	prover   *Prover
	verifier *Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := integrationContext(t)
	registry := NewVolumeRegistry(map[uint32]uint64{1: 1, 2: 1, 3: 1, 5: 1})
	return &testEnv{
		ctx:      ctx,
		registry: registry,
		prover:   NewProver(ctx, registry, zerolog.Nop()),
		verifier: NewVerifier(ctx, registry.Root(), zerolog.Nop()),
	}
}

func (e *testEnv) newInventory(t *testing.T, instance uint64, maxCapacity uint64) *InventoryState {
	t.Helper()
	state, err := NewInventoryState(testDepth, circuit.FieldFromUint64(instance), maxCapacity)
	require.NoError(t, err)
	e.verifier.Register(state.InstanceID, state.Commitment(), maxCapacity)
	return state
}

func TestEndToEndDepositThenWithdraw(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 77, 1000)

	// Fresh deposit: slot 3 gains 10, volume 10, nonce advances to 1.
	bundle, next, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	state = next

	rec, ok := env.verifier.Instance(state.InstanceID)
	require.True(t, ok)
	require.Equal(t, uint64(1), rec.Nonce)
	wantC := state.Commitment()
	require.True(t, rec.Commitment.Equal(&wantC))
	require.Equal(t, uint64(10), state.Tree.Quantity(3))
	require.Equal(t, uint64(10), state.Volume)

	// Withdraw within balance: slot 3 drops to 6, nonce to 2.
	bundle, next, err = env.prover.ProveStateTransition(state, Operation{Type: circuit.Withdraw, ItemID: 3, Amount: 4})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	state = next

	rec, _ = env.verifier.Instance(state.InstanceID)
	require.Equal(t, uint64(2), rec.Nonce)
	require.Equal(t, uint64(6), state.Tree.Quantity(3))
	require.Equal(t, uint64(6), state.Volume)
}

func TestOverWithdrawRejectedBeforeProving(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 78, 1000)

	_, next, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 6})
	require.NoError(t, err)

	_, _, err = env.prover.ProveStateTransition(next, Operation{Type: circuit.Withdraw, ItemID: 3, Amount: 100})
	require.ErrorIs(t, err, ErrWitnessUnsatisfiable)
}

func TestReplayRejected(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 79, 1000)

	bundle, _, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)

	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	// The stored nonce advanced to 1; the same bundle still declares 0.
	require.ErrorIs(t, env.verifier.AcceptStateTransition(bundle), ErrStaleOrInconsistent)
}

func TestCrossInstanceRejected(t *testing.T) {
	env := newTestEnv(t)
	stateA := env.newInventory(t, 80, 1000)
	stateB := env.newInventory(t, 81, 1000)

	bundle, _, err := env.prover.ProveStateTransition(stateA, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)

	// Redirect the bundle at instance B: the recomputed signal hash no
	// longer matches the proof's public input.
	bundle.InstanceID = FieldToBytesLE(stateB.InstanceID)
	require.ErrorIs(t, env.verifier.AcceptStateTransition(bundle), ErrStaleOrInconsistent)
}

func TestStaleNonceRetryAfterRefresh(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 82, 1000)

	// Two proofs from the same pre-state race; the second is stale.
	first, afterFirst, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)
	second, _, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 5, Amount: 1})
	require.NoError(t, err)

	require.NoError(t, env.verifier.AcceptStateTransition(first))
	require.ErrorIs(t, env.verifier.AcceptStateTransition(second), ErrStaleOrInconsistent)

	// Refresh against the accepted state and re-prove.
	retried, _, err := env.prover.ProveStateTransition(afterFirst, Operation{Type: circuit.Deposit, ItemID: 5, Amount: 1})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(retried))
}

func TestBatchProvingSubmitsInOrder(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 83, 1000)

	ops := []Operation{
		{Type: circuit.Deposit, ItemID: 3, Amount: 10},
		{Type: circuit.Deposit, ItemID: 5, Amount: 2},
		{Type: circuit.Withdraw, ItemID: 3, Amount: 4},
	}
	bundles, final, err := env.prover.ProveBatch(state, ops)
	require.NoError(t, err)
	require.Len(t, bundles, len(ops))

	for i, bundle := range bundles {
		require.Equal(t, uint64(i), bundle.Nonce)
		require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	}

	rec, _ := env.verifier.Instance(final.InstanceID)
	require.Equal(t, uint64(3), rec.Nonce)
	wantC := final.Commitment()
	require.True(t, rec.Commitment.Equal(&wantC))
	require.Equal(t, uint64(6), final.Tree.Quantity(3))
	require.Equal(t, uint64(2), final.Tree.Quantity(5))
	require.Equal(t, uint64(8), final.Volume)
}

func TestItemExistsClaims(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 84, 1000)

	bundle, next, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	state = next

	claim, err := env.prover.ProveItemExists(state, 3, 7)
	require.NoError(t, err)
	require.NoError(t, env.verifier.CheckItemExists(claim))

	// Holding 10, a minimum of 11 is refused locally.
	_, err = env.prover.ProveItemExists(state, 3, 11)
	require.ErrorIs(t, err, ErrWitnessUnsatisfiable)

	// A tampered minimum invalidates the aggregated hash.
	claim.MinQuantity = 1
	require.ErrorIs(t, env.verifier.CheckItemExists(claim), ErrStaleOrInconsistent)
}

func TestCapacityClaim(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 85, 1000)

	bundle, next, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	state = next

	claim, err := env.prover.ProveCapacity(state, 500)
	require.NoError(t, err)
	require.NoError(t, env.verifier.CheckCapacity(claim))

	_, err = env.prover.ProveCapacity(state, 9)
	require.ErrorIs(t, err, ErrWitnessUnsatisfiable)
}

func TestTransferEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	src := env.newInventory(t, 86, 1000)
	dst := env.newInventory(t, 87, 1000)

	bundle, next, err := env.prover.ProveStateTransition(src, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(bundle))
	src = next

	transfer, srcNext, dstNext, err := env.prover.ProveTransfer(src, dst, 3, 4)
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptTransfer(transfer))

	require.Equal(t, uint64(6), srcNext.Tree.Quantity(3))
	require.Equal(t, uint64(4), dstNext.Tree.Quantity(3))
	require.Equal(t, uint64(6), srcNext.Volume)
	require.Equal(t, uint64(4), dstNext.Volume)

	srcRec, _ := env.verifier.Instance(srcNext.InstanceID)
	dstRec, _ := env.verifier.Instance(dstNext.InstanceID)
	require.Equal(t, uint64(2), srcRec.Nonce)
	require.Equal(t, uint64(1), dstRec.Nonce)
	wantSrc, wantDst := srcNext.Commitment(), dstNext.Commitment()
	require.True(t, srcRec.Commitment.Equal(&wantSrc))
	require.True(t, dstRec.Commitment.Equal(&wantDst))

	// Replaying the transfer fails on both advanced nonces.
	require.ErrorIs(t, env.verifier.AcceptTransfer(transfer), ErrStaleOrInconsistent)
}

func TestProofBundleFileRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	state := env.newInventory(t, 88, 1000)

	bundle, _, err := env.prover.ProveStateTransition(state, Operation{Type: circuit.Deposit, ItemID: 3, Amount: 10})
	require.NoError(t, err)

	path := t.TempDir() + "/proof_0.json"
	require.NoError(t, WriteDataToFile(path, *bundle))
	loaded, err := ReadDataFromFile[StateTransitionProof](path)
	require.NoError(t, err)
	require.NoError(t, env.verifier.AcceptStateTransition(&loaded))
}
