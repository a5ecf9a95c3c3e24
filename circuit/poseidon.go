// Package circuit provides the arithmetic circuits that authorize private
// inventory operations, the gadgets they compose, and Go-native mirrors of
// every in-circuit hash so provers and verifiers can reproduce the same
// values outside the constraint system.
package circuit

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Poseidon permutation shape: width 3 (rate 2, capacity 1), S-box x^5,
// 8 full rounds split around 57 partial rounds. The native and in-circuit
// implementations share the parameters below and must produce identical
// outputs for identical inputs.
const (
	poseidonWidth         = 3
	poseidonFullRounds    = 8
	poseidonPartialRounds = 57
	poseidonRounds        = poseidonFullRounds + poseidonPartialRounds
)

// poseidonSeed feeds the deterministic round-constant derivation.
var poseidonSeed = []byte("PoseidonBN254")

// PoseidonParams holds the round constants and MDS matrix shared by the
// native hash and the circuit gadget.
type PoseidonParams struct {
	// RoundConstants[r][i] is the additive constant for state element i in
	// round r.
	RoundConstants [poseidonRounds][poseidonWidth]fr.Element
	// MDS is the mixing matrix.
	MDS [poseidonWidth][poseidonWidth]fr.Element
}

var (
	poseidonOnce   sync.Once
	poseidonParams *PoseidonParams
)

// GetPoseidonParams returns the process-wide Poseidon parameters. The
// derivation is deterministic: round constant k is (seed + k)^5 in F, and
// the MDS matrix is the Cauchy construction 1/(x_i + y_j) with x_i = i,
// y_j = width + j.
func GetPoseidonParams() *PoseidonParams {
	poseidonOnce.Do(func() {
		poseidonParams = newPoseidonParams()
	})
	return poseidonParams
}

func newPoseidonParams() *PoseidonParams {
	p := &PoseidonParams{}

	seed := new(big.Int).SetBytes(poseidonSeed)
	five := big.NewInt(5)
	k := 0
	for r := 0; r < poseidonRounds; r++ {
		for i := 0; i < poseidonWidth; i++ {
			c := new(big.Int).Add(seed, big.NewInt(int64(k)))
			c.Exp(c, five, fr.Modulus())
			p.RoundConstants[r][i].SetBigInt(c)
			k++
		}
	}

	for i := 0; i < poseidonWidth; i++ {
		for j := 0; j < poseidonWidth; j++ {
			var sum fr.Element
			sum.SetUint64(uint64(i + poseidonWidth + j))
			p.MDS[i][j].Inverse(&sum)
		}
	}
	return p
}

// sbox computes x^5 in place.
func sbox(x *fr.Element) {
	var x2, x4 fr.Element
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(&x4, x)
}

func (p *PoseidonParams) mix(state *[poseidonWidth]fr.Element) {
	var out [poseidonWidth]fr.Element
	for i := 0; i < poseidonWidth; i++ {
		var acc, t fr.Element
		for j := 0; j < poseidonWidth; j++ {
			t.Mul(&p.MDS[i][j], &state[j])
			acc.Add(&acc, &t)
		}
		out[i] = acc
	}
	*state = out
}

// Permute applies the full Poseidon permutation to the state.
func (p *PoseidonParams) Permute(state *[poseidonWidth]fr.Element) {
	half := poseidonFullRounds / 2
	r := 0
	for ; r < half; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i].Add(&state[i], &p.RoundConstants[r][i])
			sbox(&state[i])
		}
		p.mix(state)
	}
	for ; r < half+poseidonPartialRounds; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i].Add(&state[i], &p.RoundConstants[r][i])
		}
		sbox(&state[0])
		p.mix(state)
	}
	for ; r < poseidonRounds; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i].Add(&state[i], &p.RoundConstants[r][i])
			sbox(&state[i])
		}
		p.mix(state)
	}
}

// hashElements runs the rate-2 sponge: inputs are absorbed two at a time
// into state positions 0 and 1, position 2 is the capacity, and the first
// state element is squeezed after the final permutation. A trailing odd
// input occupies position 0 alone.
func hashElements(inputs []fr.Element) fr.Element {
	p := GetPoseidonParams()
	var state [poseidonWidth]fr.Element
	for i := 0; i < len(inputs); i += 2 {
		state[0].Add(&state[0], &inputs[i])
		if i+1 < len(inputs) {
			state[1].Add(&state[1], &inputs[i+1])
		}
		p.Permute(&state)
	}
	if len(inputs) == 0 {
		p.Permute(&state)
	}
	return state[0]
}

// Hash2 hashes two field elements. This is the node and leaf hash of the
// sparse Merkle tree and the capacity public-hash composer.
func Hash2(a, b fr.Element) fr.Element {
	return hashElements([]fr.Element{a, b})
}

// Hash3 hashes three field elements. Used for inventory commitments and the
// item-existence public hash.
func Hash3(a, b, c fr.Element) fr.Element {
	return hashElements([]fr.Element{a, b, c})
}

// Hash9 hashes nine field elements. This is the signal-hash composer: one
// sponge run over every semantically relevant public parameter of a state
// transition.
func Hash9(in [9]fr.Element) fr.Element {
	return hashElements(in[:])
}
