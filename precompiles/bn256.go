package precompiles

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/bn256"
)

var errBadPairingInput = errors.New("bad elliptic curve pairing input size")

// newCurvePoint unmarshals a 64-byte curve point, rejecting points outside
// the group.
func newCurvePoint(blob []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}
	return p, nil
}

// newTwistPoint unmarshals a 128-byte twist point.
func newTwistPoint(blob []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}
	return p, nil
}

// bn256Add performs point addition on the alt_bn128 curve. Inputs shorter
// than 128 bytes are zero padded.
type bn256Add struct {
	base uint64
}

func (c *bn256Add) RequiredGas([]byte) uint64 {
	return c.base
}

func (c *bn256Add) Run(input []byte) ([]byte, error) {
	x, err := newCurvePoint(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	y, err := newCurvePoint(getData(input, 64, 64))
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1)
	res.Add(x, y)
	return res.Marshal(), nil
}

// bn256Mul performs scalar multiplication on the alt_bn128 curve.
type bn256Mul struct {
	base uint64
}

func (c *bn256Mul) RequiredGas([]byte) uint64 {
	return c.base
}

func (c *bn256Mul) Run(input []byte) ([]byte, error) {
	p, err := newCurvePoint(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1)
	res.ScalarMult(p, new(big.Int).SetBytes(getData(input, 64, 32)))
	return res.Marshal(), nil
}

// bn256Pairing checks a pairing equation over pairs of (G1, G2) points. The
// input must be a multiple of 192 bytes.
type bn256Pairing struct {
	base uint64
	pair uint64
}

func (c *bn256Pairing) RequiredGas(input []byte) uint64 {
	return c.base + c.pair*uint64(len(input)/192)
}

var (
	// true32Byte is the canonical encoding of a successful pairing check.
	true32Byte  = make([]byte, 32)
	false32Byte = make([]byte, 32)
)

func init() {
	true32Byte[31] = 1
}

func (c *bn256Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}
	var (
		cs []*bn256.G1
		ts []*bn256.G2
	)
	for i := 0; i < len(input); i += 192 {
		p, err := newCurvePoint(input[i : i+64])
		if err != nil {
			return nil, err
		}
		t, err := newTwistPoint(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}
		cs = append(cs, p)
		ts = append(ts, t)
	}
	if bn256.PairingCheck(cs, ts) {
		return true32Byte, nil
	}
	return false32Byte, nil
}
