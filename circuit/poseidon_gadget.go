package circuit

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark/frontend"
)

// poseidonConstants are the big.Int copies of the shared parameters, baked
// into the constraint system as compile-time constants rather than
// witnesses.
type poseidonConstants struct {
	roundConstants [poseidonRounds][poseidonWidth]*big.Int
	mds            [poseidonWidth][poseidonWidth]*big.Int
	emptyLeaf      *big.Int
}

var (
	poseidonConstOnce sync.Once
	poseidonConst     *poseidonConstants
)

func getPoseidonConstants() *poseidonConstants {
	poseidonConstOnce.Do(func() {
		p := GetPoseidonParams()
		c := &poseidonConstants{}
		for r := 0; r < poseidonRounds; r++ {
			for i := 0; i < poseidonWidth; i++ {
				c.roundConstants[r][i] = p.RoundConstants[r][i].BigInt(new(big.Int))
			}
		}
		for i := 0; i < poseidonWidth; i++ {
			for j := 0; j < poseidonWidth; j++ {
				c.mds[i][j] = p.MDS[i][j].BigInt(new(big.Int))
			}
		}
		empty := GoEmptyLeaf()
		c.emptyLeaf = empty.BigInt(new(big.Int))
		poseidonConst = c
	})
	return poseidonConst
}

// Poseidon emits R1CS constraints replicating the native permutation. One
// instance is created per Define call and shared by every gadget in the
// circuit.
type Poseidon struct {
	api   frontend.API
	konst *poseidonConstants
}

// NewPoseidon builds the in-circuit hasher.
func NewPoseidon(api frontend.API) Poseidon {
	return Poseidon{api: api, konst: getPoseidonConstants()}
}

func (h *Poseidon) sbox(x frontend.Variable) frontend.Variable {
	x2 := h.api.Mul(x, x)
	x4 := h.api.Mul(x2, x2)
	return h.api.Mul(x4, x)
}

func (h *Poseidon) mix(state *[poseidonWidth]frontend.Variable) {
	var out [poseidonWidth]frontend.Variable
	for i := 0; i < poseidonWidth; i++ {
		out[i] = h.api.Add(
			h.api.Mul(h.konst.mds[i][0], state[0]),
			h.api.Mul(h.konst.mds[i][1], state[1]),
			h.api.Mul(h.konst.mds[i][2], state[2]),
		)
	}
	*state = out
}

func (h *Poseidon) permute(state *[poseidonWidth]frontend.Variable) {
	half := poseidonFullRounds / 2
	r := 0
	for ; r < half; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i] = h.sbox(h.api.Add(state[i], h.konst.roundConstants[r][i]))
		}
		h.mix(state)
	}
	for ; r < half+poseidonPartialRounds; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i] = h.api.Add(state[i], h.konst.roundConstants[r][i])
		}
		state[0] = h.sbox(state[0])
		h.mix(state)
	}
	for ; r < poseidonRounds; r++ {
		for i := 0; i < poseidonWidth; i++ {
			state[i] = h.sbox(h.api.Add(state[i], h.konst.roundConstants[r][i]))
		}
		h.mix(state)
	}
}

func (h *Poseidon) hash(inputs ...frontend.Variable) frontend.Variable {
	state := [poseidonWidth]frontend.Variable{0, 0, 0}
	for i := 0; i < len(inputs); i += 2 {
		state[0] = h.api.Add(state[0], inputs[i])
		if i+1 < len(inputs) {
			state[1] = h.api.Add(state[1], inputs[i+1])
		}
		h.permute(&state)
	}
	if len(inputs) == 0 {
		h.permute(&state)
	}
	return state[0]
}

// Hash2 mirrors the native Hash2.
func (h *Poseidon) Hash2(a, b frontend.Variable) frontend.Variable {
	return h.hash(a, b)
}

// Hash3 mirrors the native Hash3.
func (h *Poseidon) Hash3(a, b, c frontend.Variable) frontend.Variable {
	return h.hash(a, b, c)
}

// Hash9 mirrors the native Hash9.
func (h *Poseidon) Hash9(in [9]frontend.Variable) frontend.Variable {
	return h.hash(in[:]...)
}

// EmptyLeaf returns the canonical empty-leaf constant Poseidon(0, 0) as a
// compile-time value.
func (h *Poseidon) EmptyLeaf() frontend.Variable {
	return h.konst.emptyLeaf
}
