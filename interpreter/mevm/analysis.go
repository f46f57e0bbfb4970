package mevm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ArthurTh0mas/martinez/evm"
)

// bitvec marks the positions of a code array that hold instructions, as
// opposed to the data bytes trailing a PUSH instruction. Only instruction
// positions are valid jump destinations.
type bitvec []byte

func (b bitvec) set(pos uint64) {
	b[pos/8] |= 1 << (pos % 8)
}

func (b bitvec) isCode(pos uint64) bool {
	return b[pos/8]&(1<<(pos%8)) != 0
}

// analyzeCode scans the given code once and produces the bitmap of
// instruction positions. PUSH data bytes are skipped.
func analyzeCode(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		bits.set(pc)
		if PUSH1 <= op && op <= PUSH32 {
			pc += uint64(op-PUSH1) + 2
		} else {
			pc++
		}
	}
	return bits
}

// codeAnalysisCacheSize bounds the number of cached analysis results. With
// the 24KB code size limit this caps the cache at roughly 100 MB of code
// bitmaps plus code references.
const codeAnalysisCacheSize = 32768

// analysisCache caches code analysis results across frames and transactions,
// keyed by code hash. Contract code is immutable once deployed, so entries
// never become stale.
type analysisCache struct {
	cache *lru.Cache[evm.Hash, bitvec]
}

func newAnalysisCache() *analysisCache {
	cache, err := lru.New[evm.Hash, bitvec](codeAnalysisCacheSize)
	if err != nil {
		panic(err) // only reachable for non-positive sizes
	}
	return &analysisCache{cache: cache}
}

// get returns the analysis of the given code, computing and caching it on a
// miss. A nil hash skips the cache; this covers initialization code, which
// has no stable identity.
func (a *analysisCache) get(hash *evm.Hash, code []byte) bitvec {
	if hash == nil {
		return analyzeCode(code)
	}
	if res, found := a.cache.Get(*hash); found {
		return res
	}
	res := analyzeCode(code)
	a.cache.Add(*hash, res)
	return res
}
