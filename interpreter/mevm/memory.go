package mevm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/ArthurTh0mas/martinez/evm"
)

// maxMemoryExpansionSize is the largest memory size whose expansion cost
// still fits an int64 gas value. Larger requests are priced out of reach.
const maxMemoryExpansionSize = 0x1FFFFFFFE0

// memory is the volatile byte-addressed memory of a single execution frame.
// It grows in 32-byte words and charges the quadratic expansion fee on
// growth. Reads beyond the current size behave as zero after the charged
// expansion.
type memory struct {
	store             []byte
	currentMemoryCost evm.Gas
}

func newMemory() *memory {
	return &memory{}
}

func toValidMemorySize(size uint64) uint64 {
	fullWordsSize := evm.SizeInWords(size) * 32
	if size != 0 && fullWordsSize < size {
		return math.MaxUint64
	}
	return fullWordsSize
}

func (m *memory) length() uint64 {
	return uint64(len(m.store))
}

// getExpansionCosts computes the fee for growing the memory to hold at least
// size bytes. Memory already large enough is free.
func (m *memory) getExpansionCosts(size uint64) evm.Gas {
	if m.length() >= size {
		return 0
	}
	size = toValidMemorySize(size)
	if size > maxMemoryExpansionSize {
		return evm.Gas(math.MaxInt64)
	}
	words := evm.SizeInWords(size)
	costs := evm.Gas((words*words)/512 + 3*words)
	return costs - m.currentMemoryCost
}

// expand grows the memory to hold offset+size bytes, charging the expansion
// fee to the given context. A size of zero never expands, independent of the
// offset.
func (m *memory) expand(offset, size uint64, c *context) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset { // overflow
		return evm.ErrGasUintOverflow
	}
	if m.length() < needed {
		fee := m.getExpansionCosts(needed)
		if err := c.useGas(fee); err != nil {
			return err
		}
		needed = toValidMemorySize(needed)
		m.currentMemoryCost += fee
		m.store = append(m.store, make([]byte, needed-m.length())...)
	}
	return nil
}

// getSlice obtains a slice of size bytes at the given offset, expanding and
// charging as needed. The slice aliases the memory's internal buffer and is
// invalidated by any subsequent expansion.
func (m *memory) getSlice(offset, size uint64, c *context) ([]byte, error) {
	if err := m.expand(offset, size, c); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

// readWord reads the 32-byte word at the given offset into target,
// expanding and charging as needed.
func (m *memory) readWord(offset uint64, target *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

// setByte writes a single byte at the given offset, expanding and charging
// as needed.
func (m *memory) setByte(offset uint64, value byte, c *context) error {
	if err := m.expand(offset, 1, c); err != nil {
		return err
	}
	m.store[offset] = value
	return nil
}

// setWord writes the 32-byte big-endian encoding of value at the given
// offset, expanding and charging as needed.
func (m *memory) setWord(offset uint64, value *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	value.WriteToSlice(data)
	return nil
}

// set copies value into memory at the given offset, expanding and charging
// as needed. Only size bytes are written; a shorter value is zero-padded.
func (m *memory) set(offset, size uint64, value []byte, c *context) error {
	data, err := m.getSlice(offset, size, c)
	if err != nil {
		return err
	}
	covered := copy(data, value)
	for i := covered; i < len(data); i++ {
		data[i] = 0
	}
	return nil
}

// copyData copies memory content starting at the given offset into target,
// zero-padding where the memory is shorter. No expansion takes place.
func (m *memory) copyData(offset uint64, target []byte) {
	if m.length() < offset {
		for i := range target {
			target[i] = 0
		}
		return
	}
	covered := copy(target, m.store[offset:])
	for i := covered; i < len(target); i++ {
		target[i] = 0
	}
}
