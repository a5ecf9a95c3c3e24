package core

import (
	"encoding/json"
	"fmt"
	"os"

	"zkvault.io/private_inventory/circuit"
)

// InventorySnapshot is the JSON form of an InventoryState. It contains the
// secrets (blinding, contents) and must never be published; it exists so
// the CLI can persist prover state between invocations. Leaves carries
// every touched slot including retired ones (quantity 0), because retired
// slots still contribute non-empty leaves to the root.
type InventorySnapshot struct {
	Depth       int
	InstanceID  []byte
	MaxCapacity uint64
	Blinding    []byte
	Nonce       uint64
	Leaves      map[uint32]uint64
}

// SnapshotState captures a state for persistence.
func SnapshotState(s *InventoryState) InventorySnapshot {
	return InventorySnapshot{
		Depth:       s.Tree.Depth(),
		InstanceID:  FieldToBytesLE(s.InstanceID),
		MaxCapacity: s.MaxCapacity,
		Blinding:    FieldToBytesLE(s.Blinding),
		Nonce:       s.Nonce,
		Leaves:      s.Tree.Leaves(),
	}
}

// RestoreState rebuilds a full InventoryState, recomputing the tree and
// volume against the registry.
func RestoreState(snap InventorySnapshot, registry *VolumeRegistry) (*InventoryState, error) {
	instanceID, err := FieldFromBytesLE(snap.InstanceID)
	if err != nil {
		return nil, err
	}
	blinding, err := FieldFromBytesLE(snap.Blinding)
	if err != nil {
		return nil, err
	}
	tree := NewSparseMerkleTree(snap.Depth)
	var volume uint64
	for itemID, quantity := range snap.Leaves {
		if err := tree.Update(itemID, quantity); err != nil {
			return nil, err
		}
		if quantity == 0 {
			continue
		}
		itemVolume, err := registry.Volume(itemID)
		if err != nil {
			return nil, err
		}
		volume += quantity * itemVolume
	}
	return &InventoryState{
		Tree:        tree,
		Volume:      volume,
		Blinding:    blinding,
		Nonce:       snap.Nonce,
		InstanceID:  instanceID,
		MaxCapacity: snap.MaxCapacity,
	}, nil
}

// WriteDataToFile writes one artifact as indented JSON.
func WriteDataToFile[D StateTransitionProof | ItemExistsProof | CapacityProof | TransferProof | InventorySnapshot](filePath string, data D) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filePath, err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("writing %s: %w", filePath, err)
	}
	return nil
}

// ReadDataFromFile reads one artifact written by WriteDataToFile.
func ReadDataFromFile[D StateTransitionProof | ItemExistsProof | CapacityProof | TransferProof | InventorySnapshot](filePath string) (D, error) {
	var data D
	file, err := os.Open(filePath)
	if err != nil {
		return data, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return data, fmt.Errorf("reading %s: %w", filePath, ErrEncoding)
	}
	return data, nil
}

// ParseOperationType maps the CLI spelling of an operation to its field
// encoding.
func ParseOperationType(s string) (circuit.OperationType, error) {
	switch s {
	case "deposit":
		return circuit.Deposit, nil
	case "withdraw":
		return circuit.Withdraw, nil
	}
	return 0, fmt.Errorf("unknown operation %q: %w", s, ErrEncoding)
}
