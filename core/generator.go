package core

import (
	"math/rand"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkvault.io/private_inventory/circuit"
)

// GenerateTestRegistry builds a deterministic registry of itemCount items
// with ids 1..itemCount and volumes in [1, 8], for development and testing.
func GenerateTestRegistry(itemCount int, seed int64) *VolumeRegistry {
	rng := rand.New(rand.NewSource(seed))
	volumes := make(map[uint32]uint64, itemCount)
	for id := uint32(1); id <= uint32(itemCount); id++ {
		volumes[id] = uint64(rng.Intn(8) + 1)
	}
	return NewVolumeRegistry(volumes)
}

// GenerateTestInventory builds a populated inventory with deterministic
// contents drawn from the registry, bypassing the proof pipeline. Slots and
// quantities are seeded so repeated runs agree.
func GenerateTestInventory(depth, itemCount int, seed int64, registry *VolumeRegistry, instanceID fr.Element, maxCapacity uint64) (*InventoryState, error) {
	rng := rand.New(rand.NewSource(seed))
	state, err := NewInventoryState(depth, instanceID, maxCapacity)
	if err != nil {
		return nil, err
	}
	for id := uint32(1); id <= uint32(itemCount); id++ {
		if uint64(id) >= circuit.MaxSlots(depth) {
			break
		}
		quantity := uint64(rng.Intn(50) + 1)
		itemVolume, err := registry.Volume(id)
		if err != nil {
			return nil, err
		}
		if state.Volume+quantity*itemVolume > maxCapacity {
			continue
		}
		if err := state.Tree.Update(id, quantity); err != nil {
			return nil, err
		}
		state.Volume += quantity * itemVolume
	}
	return state, nil
}
