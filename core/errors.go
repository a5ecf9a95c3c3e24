// Package core implements the off-chain side of the private inventory
// system: the sparse Merkle state each prover maintains, witness assembly
// and Groth16 proving, the public-input codec, and a reference
// implementation of the host verifier's acceptance rule.
package core

import "errors"

// Failure taxonomy. Every entry point surfaces one of these as the tagged
// variant in its error chain; callers branch with errors.Is. The core never
// retries internally.
var (
	// ErrWitnessUnsatisfiable marks an operation the prover's own state
	// cannot satisfy (withdraw above holdings, capacity exceeded, unknown
	// item). This is the honest-prover analogue of "operation rejected" and
	// is never transmitted.
	ErrWitnessUnsatisfiable = errors.New("witness unsatisfiable")

	// ErrOverflow marks prover-side arithmetic that would exceed the 32-bit
	// quantity/volume domain before a circuit ever sees it.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrKeyMismatch marks a proving/verifying key pair that cannot verify
	// its own freshly generated proofs. Fatal for the process.
	ErrKeyMismatch = errors.New("proving/verifying key mismatch")

	// ErrStaleOrInconsistent marks an externally rejected proof: stale
	// nonce, unknown instance, or registry digest drift. Callers refresh
	// state and re-prove.
	ErrStaleOrInconsistent = errors.New("stale or inconsistent state")

	// ErrEncoding marks malformed proof or public-input bytes. Terminal for
	// the request, non-fatal for the process.
	ErrEncoding = errors.New("encoding error")

	// ErrSlotRetired marks a deposit into a slot that was previously
	// withdrawn to zero. Such a slot carries the non-canonical leaf
	// Poseidon(item_id, 0), which the insertion branch of the circuit will
	// never accept, so the prover rejects the operation up front.
	ErrSlotRetired = errors.New("slot retired after deletion")
)
