// Package mevm provides the byte-code interpreter of the execution engine.
// It executes a single call frame over raw contract code using a per-revision
// dispatch table; recursive calls and transaction accounting are handled by
// the surrounding processor through the evm.RunContext interface.
package mevm

import (
	"github.com/ArthurTh0mas/martinez/evm"
)

// Registers the interpreter as an available implementation.
func init() {
	configs := map[string]Config{
		// The officially supported configuration for production use.
		"mevm": {
			WithShaCache: true,
		},

		// Reference configuration without hash memoization, kept for
		// differential testing of the cache.
		"mevm-no-sha-cache": {
			WithShaCache: false,
		},
	}

	for name, config := range configs {
		config := config
		if err := evm.RegisterInterpreterFactory(name, func(any) (evm.Interpreter, error) {
			return NewInterpreter(config), nil
		}); err != nil {
			panic(err)
		}
	}
}

type Config struct {
	WithShaCache bool
}

// mevm is the interpreter instance. It is safe for concurrent use; runs only
// share the internal caches, which are thread-safe.
type mevm struct {
	config   Config
	analysis *analysisCache
	shaCache *hashCache
}

func NewInterpreter(config Config) evm.Interpreter {
	res := &mevm{
		config:   config,
		analysis: newAnalysisCache(),
	}
	if config.WithShaCache {
		res.shaCache = newHashCache()
	}
	return res
}

func (v *mevm) Run(params evm.Parameters) (evm.Result, error) {
	return run(params, v.analysis, v.shaCache)
}
