package mevm

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"

	"github.com/ArthurTh0mas/martinez/evm"
)

type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

// keccak256 computes the Keccak-256 hash of the given data using a pooled
// hasher instance.
func keccak256(data []byte) evm.Hash {
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var res evm.Hash
	hasher.Read(res[:])
	keccakHasherPool.Put(hasher)
	return res
}

// Contracts frequently hash the same short inputs, in particular 64-byte
// mapping-slot derivations. Inputs up to this size are cached.
const maxCachedHashInputSize = 64

const hashCacheSize = 65536

// hashCache memoizes Keccak-256 results of short inputs across frames.
type hashCache struct {
	cache *lru.Cache[string, evm.Hash]
}

func newHashCache() *hashCache {
	cache, err := lru.New[string, evm.Hash](hashCacheSize)
	if err != nil {
		panic(err) // only reachable for non-positive sizes
	}
	return &hashCache{cache: cache}
}

func (h *hashCache) hash(data []byte) evm.Hash {
	if len(data) > maxCachedHashInputSize {
		return keccak256(data)
	}
	if res, found := h.cache.Get(string(data)); found {
		return res
	}
	res := keccak256(data)
	h.cache.Add(string(data), res)
	return res
}
