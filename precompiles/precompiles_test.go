package precompiles

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ArthurTh0mas/martinez/chain"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex constant: %v", err)
	}
	return data
}

func mustNew(t *testing.T, spec chain.PrecompileSpec) Contract {
	t.Helper()
	contract, err := New(spec)
	if err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}
	return contract
}

func TestNew_UnknownKindIsRejected(t *testing.T) {
	if _, err := New(chain.PrecompileSpec{Kind: "no-such-contract"}); err == nil {
		t.Errorf("expected an error for unknown contract kind")
	}
}

func TestEcRecover_KnownSignature(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.EcRecover, Base: 3000})

	input := fromHex(t,
		"456e9aea5e197a1f1af7a3e85a3212fa4049a3ba34c2289b4c860fc0b0c64ef3"+
			"000000000000000000000000000000000000000000000000000000000000001c"+
			"9242685bf161793cc25603c231bc2f568eb630ea16aa137d2664ac8038825608"+
			"4f8ae3bd7535248d0bd448298cc2e2071e56992d0774dc340c368ae950852ada")
	want := fromHex(t, "0000000000000000000000007156526fbd7a3c72969b54f64e42c10fbb768c8a")

	if got := contract.RequiredGas(input); got != 3000 {
		t.Errorf("wrong gas, wanted 3000, got %d", got)
	}
	got, err := contract.Run(input)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("wrong address, wanted 0x%x, got 0x%x", want, got)
	}
}

func TestEcRecover_InvalidSignatureYieldsEmptyOutput(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.EcRecover, Base: 3000})

	tests := map[string][]byte{
		"empty input": nil,
		"bad recovery id": fromHex(t,
			"456e9aea5e197a1f1af7a3e85a3212fa4049a3ba34c2289b4c860fc0b0c64ef3"+
				"00000000000000000000000000000000000000000000000000000000000000ff"+
				"9242685bf161793cc25603c231bc2f568eb630ea16aa137d2664ac8038825608"+
				"4f8ae3bd7535248d0bd448298cc2e2071e56992d0774dc340c368ae950852ada"),
		"dirty upper v bytes": fromHex(t,
			"456e9aea5e197a1f1af7a3e85a3212fa4049a3ba34c2289b4c860fc0b0c64ef3"+
				"010000000000000000000000000000000000000000000000000000000000001c"+
				"9242685bf161793cc25603c231bc2f568eb630ea16aa137d2664ac8038825608"+
				"4f8ae3bd7535248d0bd448298cc2e2071e56992d0774dc340c368ae950852ada"),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := contract.Run(input)
			if err != nil {
				t.Fatalf("invalid signatures must not fail, got %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected empty output, got 0x%x", got)
			}
		})
	}
}

func TestSha256_KnownDigest(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.Sha256, Base: 60, Word: 12})

	want := fromHex(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	got, err := contract.Run([]byte("abc"))
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("wrong digest, wanted 0x%x, got 0x%x", want, got)
	}
	if gas := contract.RequiredGas([]byte("abc")); gas != 72 {
		t.Errorf("wrong gas, wanted 72, got %d", gas)
	}
	if gas := contract.RequiredGas(make([]byte, 64)); gas != 84 {
		t.Errorf("wrong gas for two words, wanted 84, got %d", gas)
	}
}

func TestRipemd160_KnownDigest(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.Ripemd160, Base: 600, Word: 120})

	want := fromHex(t, "0000000000000000000000009c1185a5c5e9fc54612808977ee8f548b2258d31")
	got, err := contract.Run(nil)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("wrong digest, wanted 0x%x, got 0x%x", want, got)
	}
	if gas := contract.RequiredGas(nil); gas != 600 {
		t.Errorf("wrong gas, wanted 600, got %d", gas)
	}
}

func TestIdentity_CopiesInput(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.Identity, Base: 15, Word: 3})

	input := []byte{1, 2, 3}
	got, err := contract.Run(input)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(input, got) {
		t.Errorf("wrong output, wanted 0x%x, got 0x%x", input, got)
	}
	got[0] = 0xff
	if input[0] != 1 {
		t.Errorf("output aliases the input")
	}
	if gas := contract.RequiredGas(input); gas != 18 {
		t.Errorf("wrong gas, wanted 18, got %d", gas)
	}
}

func TestModExp_SmallExponentiation(t *testing.T) {
	// 3^5 mod 100 = 43
	input := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"03"+
			"05"+
			"64")

	for _, version := range []chain.ModExpVersion{chain.ModExp198, chain.ModExp2565} {
		contract := mustNew(t, chain.PrecompileSpec{Kind: chain.ModExp, ModExp: version})
		got, err := contract.Run(input)
		if err != nil {
			t.Fatalf("%v: execution failed: %v", version, err)
		}
		if want := []byte{0x2b}; !bytes.Equal(want, got) {
			t.Errorf("%v: wrong result, wanted 0x%x, got 0x%x", version, want, got)
		}
	}
}

func TestModExp_ZeroModulusYieldsZeroes(t *testing.T) {
	input := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000002"+
			"03"+
			"05"+
			"0000")

	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.ModExp, ModExp: chain.ModExp2565})
	got, err := contract.Run(input)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if want := []byte{0, 0}; !bytes.Equal(want, got) {
		t.Errorf("wrong result, wanted 0x%x, got 0x%x", want, got)
	}
}

func TestModExp_GasFloor(t *testing.T) {
	input := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"03"+
			"05"+
			"64")

	legacy := mustNew(t, chain.PrecompileSpec{Kind: chain.ModExp, ModExp: chain.ModExp198})
	if gas := legacy.RequiredGas(input); gas != 0 {
		t.Errorf("wrong legacy gas, wanted 0, got %d", gas)
	}

	current := mustNew(t, chain.PrecompileSpec{Kind: chain.ModExp, ModExp: chain.ModExp2565})
	if gas := current.RequiredGas(input); gas != 200 {
		t.Errorf("gas floor not applied, wanted 200, got %d", gas)
	}
}

func TestBn256Add_AddingInfinityIsIdentity(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.AltBn128Add, Base: 150})

	generator := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000002")

	// The second operand is the point at infinity, provided by padding.
	got, err := contract.Run(generator)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(generator, got) {
		t.Errorf("wrong sum, wanted 0x%x, got 0x%x", generator, got)
	}
	if gas := contract.RequiredGas(generator); gas != 150 {
		t.Errorf("wrong gas, wanted 150, got %d", gas)
	}
}

func TestBn256Add_RejectsPointsOffTheCurve(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.AltBn128Add, Base: 150})

	input := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000003")
	if _, err := contract.Run(input); err == nil {
		t.Errorf("expected an error for a point off the curve")
	}
}

func TestBn256Mul_ScalingByOneIsIdentity(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.AltBn128Mul, Base: 6000})

	input := fromHex(t,
		"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000002"+
			"0000000000000000000000000000000000000000000000000000000000000001")
	want := input[:64]

	got, err := contract.Run(input)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("wrong product, wanted 0x%x, got 0x%x", want, got)
	}
}

func TestBn256Pairing_EmptyInputIsTrue(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.AltBn128Pairing, Base: 45000, Pair: 34000})

	got, err := contract.Run(nil)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(true32Byte, got) {
		t.Errorf("empty pairing should hold, got 0x%x", got)
	}
	if gas := contract.RequiredGas(make([]byte, 384)); gas != 45000+2*34000 {
		t.Errorf("wrong gas for two pairs, got %d", gas)
	}
}

func TestBn256Pairing_RejectsTruncatedInput(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.AltBn128Pairing, Base: 45000, Pair: 34000})
	if _, err := contract.Run(make([]byte, 191)); err == nil {
		t.Errorf("expected an error for truncated input")
	}
}

func TestBlake2F_KnownCompression(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.Blake2F, PerRound: 1})

	input := fromHex(t,
		"0000000c"+
			"48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5"+
			"d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b"+
			"6162630000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0300000000000000"+
			"0000000000000000"+
			"01")
	want := fromHex(t,
		"ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d1"+
			"7d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923")

	if gas := contract.RequiredGas(input); gas != 12 {
		t.Errorf("wrong gas, wanted 12, got %d", gas)
	}
	got, err := contract.Run(input)
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("wrong state, wanted 0x%x, got 0x%x", want, got)
	}
}

func TestBlake2F_MalformedInputIsRejected(t *testing.T) {
	contract := mustNew(t, chain.PrecompileSpec{Kind: chain.Blake2F, PerRound: 1})

	if _, err := contract.Run(make([]byte, 212)); err == nil {
		t.Errorf("expected an error for a short input")
	}
	if gas := contract.RequiredGas(make([]byte, 212)); gas != 0 {
		t.Errorf("malformed input must not be priced, got %d", gas)
	}

	badFlag := make([]byte, blake2FInputLength)
	badFlag[212] = 2
	if _, err := contract.Run(badFlag); err == nil {
		t.Errorf("expected an error for an invalid final flag")
	}
}
