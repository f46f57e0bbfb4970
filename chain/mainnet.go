package chain

import "github.com/ArthurTh0mas/martinez/evm"

func u64(v uint64) *uint64 { return &v }

func precompileAddress(low byte) evm.Address {
	var addr evm.Address
	addr[19] = low
	return addr
}

// Mainnet is the specification of the Ethereum main network, embedded so the
// engine works without any external configuration.
func Mainnet() Spec {
	return Spec{
		Name: "mainnet",
		Upgrades: Upgrades{
			Homestead:      u64(1_150_000),
			Tangerine:      u64(2_463_000),
			Spurious:       u64(2_675_000),
			Byzantium:      u64(4_370_000),
			Constantinople: u64(7_280_000),
			Petersburg:     u64(7_280_000),
			Istanbul:       u64(9_069_000),
			Berlin:         u64(12_244_000),
			London:         u64(12_965_000),
			ShanghaiTime:   u64(1_681_338_455),
		},
		Params: Params{
			ChainID:              1,
			NetworkID:            1,
			MaximumExtraDataSize: 32,
			MinGasLimit:          5000,
		},
		Genesis: Genesis{
			GasLimit:  5000,
			Timestamp: 0,
		},
		Contracts: mainnetContracts(),
	}
}

func mainnetContracts() []ContractOverlay {
	byzantium := uint64(4_370_000)
	istanbul := uint64(9_069_000)
	berlin := uint64(12_244_000)

	return []ContractOverlay{
		// Available since genesis.
		{Height: 0, Address: precompileAddress(0x01), Precompile: PrecompileSpec{Kind: EcRecover, Base: 3000}},
		{Height: 0, Address: precompileAddress(0x02), Precompile: PrecompileSpec{Kind: Sha256, Base: 60, Word: 12}},
		{Height: 0, Address: precompileAddress(0x03), Precompile: PrecompileSpec{Kind: Ripemd160, Base: 600, Word: 120}},
		{Height: 0, Address: precompileAddress(0x04), Precompile: PrecompileSpec{Kind: Identity, Base: 15, Word: 3}},

		// Byzantium additions.
		{Height: byzantium, Address: precompileAddress(0x05), Precompile: PrecompileSpec{Kind: ModExp, ModExp: ModExp198}},
		{Height: byzantium, Address: precompileAddress(0x06), Precompile: PrecompileSpec{Kind: AltBn128Add, Base: 500}},
		{Height: byzantium, Address: precompileAddress(0x07), Precompile: PrecompileSpec{Kind: AltBn128Mul, Base: 40_000}},
		{Height: byzantium, Address: precompileAddress(0x08), Precompile: PrecompileSpec{Kind: AltBn128Pairing, Base: 100_000, Pair: 80_000}},

		// Istanbul re-pricings and the blake2 compression function.
		{Height: istanbul, Address: precompileAddress(0x06), Precompile: PrecompileSpec{Kind: AltBn128Add, Base: 150}},
		{Height: istanbul, Address: precompileAddress(0x07), Precompile: PrecompileSpec{Kind: AltBn128Mul, Base: 6000}},
		{Height: istanbul, Address: precompileAddress(0x08), Precompile: PrecompileSpec{Kind: AltBn128Pairing, Base: 45_000, Pair: 34_000}},
		{Height: istanbul, Address: precompileAddress(0x09), Precompile: PrecompileSpec{Kind: Blake2F, PerRound: 1}},

		// Berlin switches modexp to the linear cost model.
		{Height: berlin, Address: precompileAddress(0x05), Precompile: PrecompileSpec{Kind: ModExp, ModExp: ModExp2565}},
	}
}
