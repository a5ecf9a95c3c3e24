package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"

	"zkvault.io/private_inventory/circuit"
)

// Public-input wire format: each input is one field element serialized as
// 32 little-endian bytes, zero-extended. Integers (nonce, capacity, item
// id, amount) embed as their canonical field representative. The vector
// order per circuit is part of the proof contract:
//
//	StateTransition: signal_hash, nonce, instance_id, registry_root
//	ItemExists:      public_hash
//	Capacity:        public_hash
//	Transfer:        signal_hash, src_nonce, dst_nonce,
//	                 src_instance_id, dst_instance_id, registry_root

// FieldToBytesLE serializes a field element as 32 little-endian bytes.
func FieldToBytesLE(e fr.Element) []byte {
	be := e.Bytes()
	le := make([]byte, circuit.ModBytes)
	for i := range le {
		le[i] = be[len(be)-1-i]
	}
	return le
}

// FieldFromBytesLE parses 32 little-endian bytes into a field element,
// rejecting wrong lengths and non-canonical values.
func FieldFromBytesLE(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != circuit.ModBytes {
		return e, fmt.Errorf("field element must be %d bytes, got %d: %w", circuit.ModBytes, len(b), ErrEncoding)
	}
	be := make([]byte, len(b))
	for i := range be {
		be[i] = b[len(b)-1-i]
	}
	v := new(big.Int).SetBytes(be)
	if v.Cmp(fr.Modulus()) >= 0 {
		return e, fmt.Errorf("value exceeds field modulus: %w", ErrEncoding)
	}
	e.SetBigInt(v)
	return e, nil
}

// Uint64ToBytesLE serializes an integer as its canonical 32-byte field
// representative.
func Uint64ToBytesLE(v uint64) []byte {
	return FieldToBytesLE(circuit.FieldFromUint64(v))
}

// EncodeProof serializes a Groth16 proof in the backend's byte encoding and
// wraps it base64 for JSON artifacts.
func EncodeProof(proof groth16.Proof) (string, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("serializing proof: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeProof parses a base64 proof back into a Groth16 proof object.
func DecodeProof(encoded string) (groth16.Proof, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding proof base64: %w", ErrEncoding)
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserializing proof: %w", ErrEncoding)
	}
	return proof, nil
}

// EncodeVerifyingKey serializes a verifying key for publication to the
// host.
func EncodeVerifyingKey(vk groth16.VerifyingKey) (string, error) {
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("serializing verifying key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeVerifyingKey parses a base64 verifying key.
func DecodeVerifyingKey(encoded string) (groth16.VerifyingKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding verifying key base64: %w", ErrEncoding)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserializing verifying key: %w", ErrEncoding)
	}
	return vk, nil
}
