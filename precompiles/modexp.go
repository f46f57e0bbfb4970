package precompiles

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ArthurTh0mas/martinez/chain"
)

// modExp is the modular exponentiation contract. Its input is three 32-byte
// length words followed by the base, exponent, and modulus as big-endian
// byte strings of the declared lengths. Two cost models exist: the original
// quadratic one and the cheaper model introduced later, selected by the
// chain specification.
type modExp struct {
	version chain.ModExpVersion
}

func (c *modExp) RequiredGas(input []byte) uint64 {
	baseLen := new(big.Int).SetBytes(getData(input, 0, 32))
	expLen := new(big.Int).SetBytes(getData(input, 32, 32))
	modLen := new(big.Int).SetBytes(getData(input, 64, 32))

	// The leading bytes of the exponent determine the iteration count. Only
	// the head that is actually present in the input matters.
	var expHead *big.Int
	if big.NewInt(int64(len(input))).Cmp(big.NewInt(96)) <= 0 {
		expHead = new(big.Int)
	} else {
		offset := new(big.Int).Add(baseLen, big.NewInt(96))
		if expLen.Cmp(big.NewInt(32)) > 0 {
			expHead = new(big.Int).SetBytes(getDataBig(input, offset, big.NewInt(32)))
		} else {
			expHead = new(big.Int).SetBytes(getDataBig(input, offset, expLen))
		}
	}

	adjExpLen := new(big.Int)
	if expLen.Cmp(big.NewInt(32)) > 0 {
		adjExpLen.Sub(expLen, big.NewInt(32))
		adjExpLen.Mul(adjExpLen, big.NewInt(8))
	}
	if bitlen := expHead.BitLen(); bitlen > 0 {
		adjExpLen.Add(adjExpLen, big.NewInt(int64(bitlen-1)))
	}

	gas := new(big.Int)
	maxLen := new(big.Int).Set(baseLen)
	if modLen.Cmp(maxLen) > 0 {
		maxLen.Set(modLen)
	}

	switch c.version {
	case chain.ModExp2565:
		// ceil(maxLen/8)^2 words, divisor 3, floor of 200.
		gas.Add(maxLen, big.NewInt(7))
		gas.Rsh(gas, 3)
		gas.Mul(gas, gas)
		if adjExpLen.Cmp(big.NewInt(1)) > 0 {
			gas.Mul(gas, adjExpLen)
		}
		gas.Div(gas, big.NewInt(3))
		if gas.BitLen() > 64 {
			return 1<<64 - 1
		}
		if gas.Uint64() < 200 {
			return 200
		}
		return gas.Uint64()
	default:
		// Quadratic complexity, divisor 20.
		gas.Set(multComplexity(maxLen))
		if adjExpLen.Cmp(big.NewInt(1)) > 0 {
			gas.Mul(gas, adjExpLen)
		}
		gas.Div(gas, big.NewInt(20))
		if gas.BitLen() > 64 {
			return 1<<64 - 1
		}
		return gas.Uint64()
	}
}

func (c *modExp) Run(input []byte) ([]byte, error) {
	baseLen := new(big.Int).SetBytes(getData(input, 0, 32)).Uint64()
	expLen := new(big.Int).SetBytes(getData(input, 32, 32)).Uint64()
	modLen := new(big.Int).SetBytes(getData(input, 64, 32)).Uint64()

	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}

	if baseLen == 0 && modLen == 0 {
		return []byte{}, nil
	}

	base := new(big.Int).SetBytes(getData(input, 0, baseLen))
	exp := new(big.Int).SetBytes(getData(input, baseLen, expLen))
	mod := new(big.Int).SetBytes(getData(input, baseLen+expLen, modLen))

	if mod.BitLen() == 0 {
		return make([]byte, modLen), nil
	}
	return common.LeftPadBytes(base.Exp(base, exp, mod).Bytes(), int(modLen)), nil
}

// multComplexity is the piecewise quadratic complexity function of the
// original cost model.
func multComplexity(x *big.Int) *big.Int {
	switch {
	case x.Cmp(big.NewInt(64)) <= 0:
		return new(big.Int).Mul(x, x)
	case x.Cmp(big.NewInt(1024)) <= 0:
		// x^2/4 + 96x - 3072
		res := new(big.Int).Mul(x, x)
		res.Div(res, big.NewInt(4))
		res.Add(res, new(big.Int).Mul(big.NewInt(96), x))
		return res.Sub(res, big.NewInt(3072))
	default:
		// x^2/16 + 480x - 199680
		res := new(big.Int).Mul(x, x)
		res.Div(res, big.NewInt(16))
		res.Add(res, new(big.Int).Mul(big.NewInt(480), x))
		return res.Sub(res, big.NewInt(199680))
	}
}

// getDataBig is getData for offsets exceeding the uint64 range; regions
// beyond the input read as zero. The size is at most 32 at all call sites.
func getDataBig(data []byte, start, size *big.Int) []byte {
	if size.BitLen() == 0 {
		return nil
	}
	if !start.IsUint64() {
		return make([]byte, size.Uint64())
	}
	return getData(data, start.Uint64(), size.Uint64())
}
