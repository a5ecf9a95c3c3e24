package circuit

import (
	"github.com/consensys/gnark/frontend"
)

// CapacityCircuit proves the committed volume does not exceed a declared
// maximum. Like ItemExistsCircuit it exposes a single aggregated public
// input, Poseidon(commitment, max_capacity).
type CapacityCircuit struct {
	PublicHash frontend.Variable `gnark:",public"`

	Root     frontend.Variable
	Volume   frontend.Variable
	Blinding frontend.Variable

	MaxCapacity frontend.Variable
}

// Define verifies the commitment opening and the volume bound.
func (c *CapacityCircuit) Define(api frontend.API) error {
	hasher := NewPoseidon(api)

	commitment := commitmentVar(&hasher, c.Root, c.Volume, c.Blinding)

	enforceGeq(api, c.MaxCapacity, c.Volume)

	computed := hasher.Hash2(commitment, c.MaxCapacity)
	api.AssertIsEqual(computed, c.PublicHash)

	return nil
}
