package evm

import "math"

// SizeInWords returns the number of 32-byte words required to store the
// given number of bytes, saturating instead of overflowing uint64.
func SizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}
