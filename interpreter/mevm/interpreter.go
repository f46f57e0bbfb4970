package mevm

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ArthurTh0mas/martinez/evm"
)

// status is an enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning        status = iota // < all fine, ops are processed
	statusStopped                      // < execution stopped with a STOP
	statusReverted                     // < execution stopped with a REVERT
	statusReturned                     // < execution stopped with a RETURN
	statusSelfDestructed               // < execution stopped with a SELFDESTRUCT
	statusFailed                       // < execution stopped with an exceptional halt
)

// context is the execution environment of a single frame. It holds the input
// parameters, the contract code with its jump-destination analysis, and the
// mutable execution state. A new context is created for every frame.
type context struct {
	// Inputs
	params    evm.Parameters
	context   evm.RunContext
	code      []byte
	jumpdests bitvec
	table     *instructionTable

	// Execution state
	status status
	pc     int64
	gas    evm.Gas
	refund evm.Gas
	stack  *stack
	memory *memory

	// returnData holds the result of the last nested contract call, and at
	// the end of a frame, the data handed to RETURN or REVERT.
	returnData []byte

	shaCache *hashCache // nil disables hash memoization
}

// useGas reduces the gas level by the given amount, reporting an
// out-of-gas condition if the level would drop below zero.
func (c *context) useGas(amount evm.Gas) error {
	if c.gas < 0 || amount < 0 || c.gas < amount {
		return evm.ErrOutOfGas
	}
	c.gas -= amount
	return nil
}

// isAtLeast returns true if the frame executes under the given revision or a
// newer one.
func (c *context) isAtLeast(revision evm.Revision) bool {
	return c.params.Revision >= revision
}

// jumpTo moves the program counter to the given destination, which must be a
// JUMPDEST instruction outside of any push data. The dispatch loop advances
// the counter after every instruction, so it is parked one position early.
func (c *context) jumpTo(dest *uint256.Int) error {
	if !dest.IsUint64() {
		return evm.ErrInvalidJump
	}
	target := dest.Uint64()
	if target >= uint64(len(c.code)) ||
		OpCode(c.code[target]) != JUMPDEST ||
		!c.jumpdests.isCode(target) {
		return evm.ErrInvalidJump
	}
	c.pc = int64(target) - 1
	return nil
}

// hash computes the Keccak-256 hash of the given data, memoizing short
// inputs when the cache is enabled.
func (c *context) hash(data []byte) evm.Hash {
	if c.shaCache != nil {
		return c.shaCache.hash(data)
	}
	return keccak256(data)
}

func run(params evm.Parameters, analysis *analysisCache, shaCache *hashCache) (evm.Result, error) {
	if int(params.Revision) >= evm.NumRevisions() {
		return evm.Result{}, &evm.ErrUnsupportedRevision{Revision: params.Revision}
	}

	// Don't bother with the execution if there's no code.
	if len(params.Code) == 0 {
		return evm.Result{
			Success: true,
			GasLeft: params.Gas,
		}, nil
	}

	ctxt := context{
		params:    params,
		context:   params.Context,
		code:      params.Code,
		jumpdests: analysis.get(params.CodeHash, params.Code),
		table:     getInstructionTable(params.Revision),
		gas:       params.Gas,
		stack:     newStack(),
		memory:    newMemory(),
		shaCache:  shaCache,
	}
	defer returnStack(ctxt.stack)

	return generateResult(execute(&ctxt), &ctxt)
}

// execute runs the frame's code to completion. Exceptional halts are mapped
// to statusFailed; the individual halt reason is not consensus relevant
// beyond the failure itself.
func execute(c *context) status {
	status, err := steps(c)
	if err != nil {
		return statusFailed
	}
	return status
}

// steps executes the frame's code until a terminal instruction, an
// exceptional halt, or the end of the code is reached. The returned error is
// the halt reason, nil for regular termination.
func steps(c *context) (status, error) {
	for c.status == statusRunning {
		if c.pc >= int64(len(c.code)) {
			return statusStopped, nil
		}
		op := OpCode(c.code[c.pc])
		inst := &c.table[op]

		if inst.execute == nil {
			return statusFailed, evm.ErrInvalidInstruction
		}
		if length := c.stack.len(); length < inst.minStack {
			return statusFailed, evm.ErrStackUnderflow
		} else if length > inst.maxStack {
			return statusFailed, evm.ErrStackOverflow
		}
		if c.params.Static && inst.writes {
			return statusFailed, evm.ErrStaticContextViolation
		}
		if err := c.useGas(inst.staticGas); err != nil {
			return statusFailed, err
		}
		if err := inst.execute(c); err != nil {
			return statusFailed, err
		}
		c.pc++
	}
	return c.status, nil
}

func generateResult(status status, c *context) (evm.Result, error) {
	switch status {
	case statusStopped, statusSelfDestructed:
		return evm.Result{
			Success:   true,
			GasLeft:   c.gas,
			GasRefund: c.refund,
		}, nil
	case statusReturned:
		return evm.Result{
			Success:   true,
			Output:    c.returnData,
			GasLeft:   c.gas,
			GasRefund: c.refund,
		}, nil
	case statusReverted:
		return evm.Result{
			Success: false,
			Output:  c.returnData,
			GasLeft: c.gas,
		}, nil
	case statusFailed:
		return evm.Result{
			Success: false,
		}, nil
	default:
		return evm.Result{}, fmt.Errorf("unexpected interpreter status: %v", status)
	}
}
