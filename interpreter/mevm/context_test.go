package mevm

import (
	"github.com/ArthurTh0mas/martinez/evm"
)

// testRunContext is a minimal in-memory implementation of evm.RunContext for
// instruction-level tests. Nested calls are delegated to the configurable
// callHandler; everything else is backed by plain maps.
type testRunContext struct {
	balances       map[evm.Address]evm.Value
	nonces         map[evm.Address]uint64
	codes          map[evm.Address]evm.Code
	storage        map[evm.Address]map[evm.Key]evm.Word
	committed      map[evm.Address]map[evm.Key]evm.Word
	transient      map[evm.Address]map[evm.Key]evm.Word
	warmAccounts   map[evm.Address]bool
	warmSlots      map[evm.Address]map[evm.Key]bool
	selfDestructed map[evm.Address]bool
	logs           []evm.Log
	blockHashes    map[int64]evm.Hash

	callHandler func(kind evm.CallKind, params evm.CallParameters) (evm.CallResult, error)
}

func newTestRunContext() *testRunContext {
	return &testRunContext{
		balances:       map[evm.Address]evm.Value{},
		nonces:         map[evm.Address]uint64{},
		codes:          map[evm.Address]evm.Code{},
		storage:        map[evm.Address]map[evm.Key]evm.Word{},
		committed:      map[evm.Address]map[evm.Key]evm.Word{},
		transient:      map[evm.Address]map[evm.Key]evm.Word{},
		warmAccounts:   map[evm.Address]bool{},
		warmSlots:      map[evm.Address]map[evm.Key]bool{},
		selfDestructed: map[evm.Address]bool{},
		blockHashes:    map[int64]evm.Hash{},
	}
}

func (c *testRunContext) AccountExists(addr evm.Address) bool {
	_, exists := c.balances[addr]
	return exists
}

func (c *testRunContext) CreateAccount(addr evm.Address) {
	if _, exists := c.balances[addr]; !exists {
		c.balances[addr] = evm.Value{}
	}
}

func (c *testRunContext) GetBalance(addr evm.Address) evm.Value {
	return c.balances[addr]
}

func (c *testRunContext) SetBalance(addr evm.Address, balance evm.Value) {
	c.balances[addr] = balance
}

func (c *testRunContext) GetNonce(addr evm.Address) uint64 {
	return c.nonces[addr]
}

func (c *testRunContext) SetNonce(addr evm.Address, nonce uint64) {
	c.nonces[addr] = nonce
}

func (c *testRunContext) GetCode(addr evm.Address) evm.Code {
	return c.codes[addr]
}

func (c *testRunContext) GetCodeHash(addr evm.Address) evm.Hash {
	return keccak256(c.codes[addr])
}

func (c *testRunContext) GetCodeSize(addr evm.Address) int {
	return len(c.codes[addr])
}

func (c *testRunContext) SetCode(addr evm.Address, code evm.Code) {
	c.codes[addr] = code
}

func (c *testRunContext) GetStorage(addr evm.Address, key evm.Key) evm.Word {
	return c.storage[addr][key]
}

func (c *testRunContext) SetStorage(addr evm.Address, key evm.Key, value evm.Word) evm.StorageStatus {
	original := c.committed[addr][key]
	current := c.storage[addr][key]
	if c.storage[addr] == nil {
		c.storage[addr] = map[evm.Key]evm.Word{}
	}
	c.storage[addr][key] = value
	return evm.GetStorageStatus(original, current, value)
}

func (c *testRunContext) GetCommittedStorage(addr evm.Address, key evm.Key) evm.Word {
	return c.committed[addr][key]
}

func (c *testRunContext) SelfDestruct(addr evm.Address, beneficiary evm.Address) bool {
	if c.selfDestructed[addr] {
		return false
	}
	c.selfDestructed[addr] = true
	return true
}

func (c *testRunContext) HasSelfDestructed(addr evm.Address) bool {
	return c.selfDestructed[addr]
}

func (c *testRunContext) CreateSnapshot() evm.Snapshot {
	return 0
}

func (c *testRunContext) RestoreSnapshot(evm.Snapshot) {}

func (c *testRunContext) GetTransientStorage(addr evm.Address, key evm.Key) evm.Word {
	return c.transient[addr][key]
}

func (c *testRunContext) SetTransientStorage(addr evm.Address, key evm.Key, value evm.Word) {
	if c.transient[addr] == nil {
		c.transient[addr] = map[evm.Key]evm.Word{}
	}
	c.transient[addr][key] = value
}

func (c *testRunContext) AccessAccount(addr evm.Address) evm.AccessStatus {
	warm := c.warmAccounts[addr]
	c.warmAccounts[addr] = true
	if warm {
		return evm.WarmAccess
	}
	return evm.ColdAccess
}

func (c *testRunContext) AccessStorage(addr evm.Address, key evm.Key) evm.AccessStatus {
	warm := c.warmSlots[addr][key]
	if c.warmSlots[addr] == nil {
		c.warmSlots[addr] = map[evm.Key]bool{}
	}
	c.warmSlots[addr][key] = true
	if warm {
		return evm.WarmAccess
	}
	return evm.ColdAccess
}

func (c *testRunContext) EmitLog(log evm.Log) {
	c.logs = append(c.logs, log)
}

func (c *testRunContext) GetLogs() []evm.Log {
	return c.logs
}

func (c *testRunContext) GetBlockHash(number int64) evm.Hash {
	return c.blockHashes[number]
}

func (c *testRunContext) Call(kind evm.CallKind, params evm.CallParameters) (evm.CallResult, error) {
	if c.callHandler != nil {
		return c.callHandler(kind, params)
	}
	return evm.CallResult{Success: true, GasLeft: params.Gas}, nil
}

// getEmptyContext produces a context wired to a fresh testRunContext,
// suitable for driving individual instruction handlers.
func getEmptyContext() context {
	runCtx := newTestRunContext()
	return context{
		params: evm.Parameters{
			Context: runCtx,
		},
		context: runCtx,
		stack:   newStack(),
		memory:  newMemory(),
	}
}
