// Package chain defines the declarative chain specification used by the
// execution engine: the schedule of hard-fork activations and the per-height
// parameters active at each of them. A Spec is loaded (or embedded) once and
// never mutated afterwards; per-block parameters are resolved through
// BlockSpec exactly once per top-level message.
package chain

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/ArthurTh0mas/martinez/evm"
)

// Spec is the full chain specification: chain-wide parameters, the upgrade
// schedule, genesis information, and per-height precompile and balance
// overlays.
type Spec struct {
	Name      string            `json:"name" mapstructure:"name"`
	Upgrades  Upgrades          `json:"upgrades" mapstructure:"upgrades"`
	Params    Params            `json:"params" mapstructure:"params"`
	Genesis   Genesis           `json:"genesis" mapstructure:"genesis"`
	Contracts []ContractOverlay `json:"contracts" mapstructure:"contracts"`
	Balances  []BalanceOverlay  `json:"balances" mapstructure:"balances"`
}

// Upgrades holds the optional activation points of the supported hard forks.
// All activations are block heights, except Shanghai which activates by
// block timestamp. A nil entry means the fork never activates on this chain.
type Upgrades struct {
	Homestead      *uint64 `json:"homestead,omitempty" mapstructure:"homestead"`
	Tangerine      *uint64 `json:"tangerine,omitempty" mapstructure:"tangerine"`
	Spurious       *uint64 `json:"spurious,omitempty" mapstructure:"spurious"`
	Byzantium      *uint64 `json:"byzantium,omitempty" mapstructure:"byzantium"`
	Constantinople *uint64 `json:"constantinople,omitempty" mapstructure:"constantinople"`
	Petersburg     *uint64 `json:"petersburg,omitempty" mapstructure:"petersburg"`
	Istanbul       *uint64 `json:"istanbul,omitempty" mapstructure:"istanbul"`
	Berlin         *uint64 `json:"berlin,omitempty" mapstructure:"berlin"`
	London         *uint64 `json:"london,omitempty" mapstructure:"london"`
	ShanghaiTime   *uint64 `json:"shanghai_time,omitempty" mapstructure:"shanghai_time"`
}

// Params are chain-wide scalar parameters.
type Params struct {
	ChainID              uint64 `json:"chain_id" mapstructure:"chain_id"`
	NetworkID            uint64 `json:"network_id" mapstructure:"network_id"`
	MaximumExtraDataSize uint64 `json:"maximum_extra_data_size" mapstructure:"maximum_extra_data_size"`
	MinGasLimit          uint64 `json:"min_gas_limit" mapstructure:"min_gas_limit"`
}

// Genesis describes the parameters of block zero.
type Genesis struct {
	Author     evm.Address `json:"author" mapstructure:"author"`
	Difficulty evm.Word    `json:"difficulty" mapstructure:"difficulty"`
	GasLimit   uint64      `json:"gas_limit" mapstructure:"gas_limit"`
	Timestamp  uint64      `json:"timestamp" mapstructure:"timestamp"`
}

// ContractOverlay seeds or re-prices a native contract starting at the given
// block height. Later overlays for the same address replace earlier ones.
type ContractOverlay struct {
	Height     uint64         `json:"height" mapstructure:"height"`
	Address    evm.Address    `json:"address" mapstructure:"address"`
	Precompile PrecompileSpec `json:"precompile" mapstructure:"precompile"`
}

// BalanceOverlay credits an account with the given balance at exactly the
// given block height.
type BalanceOverlay struct {
	Height  uint64      `json:"height" mapstructure:"height"`
	Address evm.Address `json:"address" mapstructure:"address"`
	Balance evm.Value   `json:"balance" mapstructure:"balance"`
}

// PrecompileKind identifies one of the native contract implementations.
type PrecompileKind string

const (
	EcRecover       PrecompileKind = "ecrecover"
	Sha256          PrecompileKind = "sha256"
	Ripemd160       PrecompileKind = "ripemd160"
	Identity        PrecompileKind = "identity"
	ModExp          PrecompileKind = "modexp"
	AltBn128Add     PrecompileKind = "alt_bn128_add"
	AltBn128Mul     PrecompileKind = "alt_bn128_mul"
	AltBn128Pairing PrecompileKind = "alt_bn128_pairing"
	Blake2F         PrecompileKind = "blake2_f"
)

// ModExpVersion selects the cost model of the modular exponentiation
// contract: the quadratic EIP-198 model or the linear EIP-2565 model.
type ModExpVersion string

const (
	ModExp198  ModExpVersion = "eip198"
	ModExp2565 ModExpVersion = "eip2565"
)

// PrecompileSpec is the pricing of a native contract. The meaning of the
// cost fields depends on the kind; unused fields are zero.
type PrecompileSpec struct {
	Kind     PrecompileKind `json:"kind" mapstructure:"kind"`
	Base     uint64         `json:"base,omitempty" mapstructure:"base"`           // fixed cost, or pairing base
	Word     uint64         `json:"word,omitempty" mapstructure:"word"`           // cost per 32-byte input word
	Pair     uint64         `json:"pair,omitempty" mapstructure:"pair"`           // pairing cost per point pair
	PerRound uint64         `json:"per_round,omitempty" mapstructure:"per_round"` // blake2f cost per round
	ModExp   ModExpVersion  `json:"modexp,omitempty" mapstructure:"modexp"`
}

// BlockSpec is the parameter set active for one block: the resolved
// revision, the chain parameters, the set of native contracts with their
// pricing, and balance changes to apply at this exact height.
type BlockSpec struct {
	Revision       evm.Revision
	Params         Params
	Precompiles    map[evm.Address]PrecompileSpec
	BalanceChanges map[evm.Address]evm.Value
}

// Validate checks that the upgrade schedule is monotonic, non-decreasing in
// activation height in fork order. It is called once after loading a spec.
func (s *Spec) Validate() error {
	heights := []*uint64{
		s.Upgrades.Homestead,
		s.Upgrades.Tangerine,
		s.Upgrades.Spurious,
		s.Upgrades.Byzantium,
		s.Upgrades.Constantinople,
		s.Upgrades.Petersburg,
		s.Upgrades.Istanbul,
		s.Upgrades.Berlin,
		s.Upgrades.London,
	}
	last := uint64(0)
	for i, h := range heights {
		if h == nil {
			continue
		}
		if *h < last {
			return fmt.Errorf("chain %q: fork #%d activates at %d, before its predecessor at %d",
				s.Name, i, *h, last)
		}
		last = *h
	}
	return nil
}

// ResolveRevision determines the revision active at the given block height
// and timestamp. Heights before the first listed activation resolve to
// Frontier.
func (s *Spec) ResolveRevision(height uint64, time uint64) evm.Revision {
	if s.Upgrades.ShanghaiTime != nil && time >= *s.Upgrades.ShanghaiTime {
		return evm.Shanghai
	}
	for _, entry := range []struct {
		fork     *uint64
		revision evm.Revision
	}{
		{s.Upgrades.London, evm.London},
		{s.Upgrades.Berlin, evm.Berlin},
		{s.Upgrades.Istanbul, evm.Istanbul},
		{s.Upgrades.Petersburg, evm.Petersburg},
		{s.Upgrades.Constantinople, evm.Constantinople},
		{s.Upgrades.Byzantium, evm.Byzantium},
		{s.Upgrades.Spurious, evm.Spurious},
		{s.Upgrades.Tangerine, evm.Tangerine},
		{s.Upgrades.Homestead, evm.Homestead},
	} {
		if entry.fork != nil && height >= *entry.fork {
			return entry.revision
		}
	}
	return evm.Frontier
}

// BlockSpec resolves the full parameter set for the block at the given
// height and timestamp. The result is an independent value; callers may hold
// on to it for the duration of a message without synchronization.
func (s *Spec) BlockSpec(height uint64, time uint64) BlockSpec {
	precompiles := make(map[evm.Address]PrecompileSpec)
	for _, overlay := range s.Contracts {
		if overlay.Height <= height {
			precompiles[overlay.Address] = overlay.Precompile
		}
	}

	var balances map[evm.Address]evm.Value
	for _, overlay := range s.Balances {
		if overlay.Height == height {
			if balances == nil {
				balances = make(map[evm.Address]evm.Value)
			}
			balances[overlay.Address] = overlay.Balance
		}
	}

	return BlockSpec{
		Revision:       s.ResolveRevision(height, time),
		Params:         s.Params,
		Precompiles:    precompiles,
		BalanceChanges: balances,
	}
}

// GatherForks returns the sorted set of block heights at which anything
// changes on this chain: upgrade activations, contract overlays, and
// balance overlays. Height zero is excluded.
func (s *Spec) GatherForks() []uint64 {
	forks := map[uint64]struct{}{}
	for _, h := range []*uint64{
		s.Upgrades.Homestead,
		s.Upgrades.Tangerine,
		s.Upgrades.Spurious,
		s.Upgrades.Byzantium,
		s.Upgrades.Constantinople,
		s.Upgrades.Petersburg,
		s.Upgrades.Istanbul,
		s.Upgrades.Berlin,
		s.Upgrades.London,
	} {
		if h != nil {
			forks[*h] = struct{}{}
		}
	}
	for _, overlay := range s.Contracts {
		forks[overlay.Height] = struct{}{}
	}
	for _, overlay := range s.Balances {
		forks[overlay.Height] = struct{}{}
	}
	delete(forks, 0)

	res := maps.Keys(forks)
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
