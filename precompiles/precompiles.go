// Package precompiles implements the native contracts of the execution
// engine. Each contract reports its gas demand for a given input and
// computes the corresponding output; pricing constants are not hard-coded
// but provided by the chain specification, which activates and re-prices
// contracts at fork boundaries.
package precompiles

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/ArthurTh0mas/martinez/chain"
)

// Contract is a single native contract instance with fixed pricing.
type Contract interface {
	// RequiredGas returns the gas demanded for processing the given input.
	RequiredGas(input []byte) uint64

	// Run computes the output of the contract. An error indicates an
	// execution failure that consumes all gas of the calling frame.
	Run(input []byte) ([]byte, error)
}

// New instantiates the contract described by the given pricing entry of a
// chain specification.
func New(spec chain.PrecompileSpec) (Contract, error) {
	switch spec.Kind {
	case chain.EcRecover:
		return &ecrecover{base: spec.Base}, nil
	case chain.Sha256:
		return &sha256hash{base: spec.Base, word: spec.Word}, nil
	case chain.Ripemd160:
		return &ripemd160hash{base: spec.Base, word: spec.Word}, nil
	case chain.Identity:
		return &identity{base: spec.Base, word: spec.Word}, nil
	case chain.ModExp:
		return &modExp{version: spec.ModExp}, nil
	case chain.AltBn128Add:
		return &bn256Add{base: spec.Base}, nil
	case chain.AltBn128Mul:
		return &bn256Mul{base: spec.Base}, nil
	case chain.AltBn128Pairing:
		return &bn256Pairing{base: spec.Base, pair: spec.Pair}, nil
	case chain.Blake2F:
		return &blake2F{perRound: spec.PerRound}, nil
	}
	return nil, fmt.Errorf("unknown precompiled contract kind %q", spec.Kind)
}

// wordPrice computes base + word * ceil(size/32), saturating on overflow.
func wordPrice(base, word uint64, size int) uint64 {
	words := (uint64(size) + 31) / 32
	cost := base + word*words
	if word != 0 && (cost < base || words > (1<<63)/word) {
		return 1<<64 - 1
	}
	return cost
}

// getData returns a slice of the given size, zero padded beyond the input.
func getData(data []byte, start, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	return common.RightPadBytes(data[start:end], int(size))
}

// ----------------------------------------------------------------------------
// ecrecover
// ----------------------------------------------------------------------------

type ecrecover struct {
	base uint64
}

func (c *ecrecover) RequiredGas([]byte) uint64 {
	return c.base
}

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const inputLength = 128
	input = common.RightPadBytes(input, inputLength)

	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	v := input[63] - 27

	// The recovery identifier occupies a full word but only the values 27
	// and 28 are valid. Invalid signatures produce empty output, not an
	// execution failure.
	if !allZero(input[32:63]) || !crypto.ValidateSignatureValues(v, r, s, false) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v

	pubKey, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	return common.LeftPadBytes(crypto.Keccak256(pubKey[1:])[12:], 32), nil
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// sha256
// ----------------------------------------------------------------------------

type sha256hash struct {
	base uint64
	word uint64
}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return wordPrice(c.base, c.word, len(input))
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	sum := sha256.Sum256(input)
	return sum[:], nil
}

// ----------------------------------------------------------------------------
// ripemd160
// ----------------------------------------------------------------------------

type ripemd160hash struct {
	base uint64
	word uint64
}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return wordPrice(c.base, c.word, len(input))
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	hasher := ripemd160.New()
	hasher.Write(input)
	return common.LeftPadBytes(hasher.Sum(nil), 32), nil
}

// ----------------------------------------------------------------------------
// identity
// ----------------------------------------------------------------------------

type identity struct {
	base uint64
	word uint64
}

func (c *identity) RequiredGas(input []byte) uint64 {
	return wordPrice(c.base, c.word, len(input))
}

func (c *identity) Run(input []byte) ([]byte, error) {
	return common.CopyBytes(input), nil
}
