package precompiles

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/crypto/blake2b"
)

const blake2FInputLength = 213

var (
	errBlake2FInvalidInputLength = errors.New("invalid input length")
	errBlake2FInvalidFinalFlag   = errors.New("invalid final flag")
)

// blake2F exposes the BLAKE2b compression function. The input encodes the
// round count (big endian), the state vector, the message block, the offset
// counters (all little endian), and a final-block flag; it must be exactly
// 213 bytes.
type blake2F struct {
	perRound uint64
}

func (c *blake2F) RequiredGas(input []byte) uint64 {
	if len(input) != blake2FInputLength {
		return 0
	}
	return c.perRound * uint64(binary.BigEndian.Uint32(input[0:4]))
}

func (c *blake2F) Run(input []byte) ([]byte, error) {
	if len(input) != blake2FInputLength {
		return nil, errBlake2FInvalidInputLength
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, errBlake2FInvalidFinalFlag
	}

	var (
		rounds = binary.BigEndian.Uint32(input[0:4])
		final  = input[212] == 1
		h      [8]uint64
		m      [16]uint64
		t      [2]uint64
	)
	for i := 0; i < 8; i++ {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8:])
	}
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8:])
	}
	t[0] = binary.LittleEndian.Uint64(input[196:204])
	t[1] = binary.LittleEndian.Uint64(input[204:212])

	blake2b.F(&h, m, t, final, rounds)

	output := make([]byte, 64)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(output[i*8:], h[i])
	}
	return output, nil
}
