package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkvault.io/private_inventory/circuit"
)

// VolumeRegistry is the public item_id → item_volume mapping. The circuits
// take item_volume as a witness; authenticity comes from the verifier
// cross-checking the registry digest out-of-circuit, so an honest prover
// must read volumes from here and the verifier must pin Root() from a
// trusted source.
type VolumeRegistry struct {
	volumes map[uint32]uint64
	root    fr.Element
	dirty   bool
}

// NewVolumeRegistry builds a registry from an item → volume map.
func NewVolumeRegistry(volumes map[uint32]uint64) *VolumeRegistry {
	r := &VolumeRegistry{volumes: make(map[uint32]uint64, len(volumes)), dirty: true}
	for id, v := range volumes {
		r.volumes[id] = v
	}
	return r
}

// Volume looks up the registered volume for an item.
func (r *VolumeRegistry) Volume(itemID uint32) (uint64, error) {
	v, ok := r.volumes[itemID]
	if !ok {
		return 0, fmt.Errorf("item %d not registered: %w", itemID, ErrWitnessUnsatisfiable)
	}
	return v, nil
}

// Set registers or updates an item volume.
func (r *VolumeRegistry) Set(itemID uint32, volume uint64) {
	r.volumes[itemID] = volume
	r.dirty = true
}

// Root returns the registry digest: a Poseidon chain over the registered
// pairs in ascending item order. Verifiers pin this value; any change to
// any registered volume changes it.
func (r *VolumeRegistry) Root() fr.Element {
	if !r.dirty {
		return r.root
	}
	ids := make([]uint32, 0, len(r.volumes))
	for id := range r.volumes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var digest fr.Element
	for _, id := range ids {
		digest = circuit.Hash3(digest, circuit.FieldFromUint64(uint64(id)), circuit.FieldFromUint64(r.volumes[id]))
	}
	r.root = digest
	r.dirty = false
	return digest
}

// WriteRegistryToFile persists the public mapping as JSON.
func WriteRegistryToFile(filePath string, r *VolumeRegistry) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filePath, err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r.volumes); err != nil {
		return fmt.Errorf("writing %s: %w", filePath, err)
	}
	return nil
}

// ReadRegistryFromFile loads a registry written by WriteRegistryToFile.
func ReadRegistryFromFile(filePath string) (*VolumeRegistry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer file.Close()
	var volumes map[uint32]uint64
	if err := json.NewDecoder(file).Decode(&volumes); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, ErrEncoding)
	}
	return NewVolumeRegistry(volumes), nil
}
