package mevm

import (
	"fmt"

	"github.com/ArthurTh0mas/martinez/evm"
)

// executionFn executes a single instruction on the given context. Returning
// a non-nil error ends the frame with an exceptional halt.
type executionFn func(c *context) error

// instruction is one entry of the dispatch table: the handler, the static
// gas price, the stack bounds checked before execution, and whether the
// instruction modifies state and is thus forbidden in static frames. A nil
// handler marks an instruction that is invalid under the table's revision.
type instruction struct {
	execute   executionFn
	staticGas evm.Gas
	minStack  int
	maxStack  int
	writes    bool
}

// instructionTable maps each opcode byte directly to its instruction. One
// table exists per revision; they are constructed once at startup and only
// read afterwards.
type instructionTable [numOpCodes]instruction

var instructionTables = buildInstructionTables()

func getInstructionTable(revision evm.Revision) *instructionTable {
	return &instructionTables[revision]
}

// newInstruction derives the stack bounds from the number of popped and
// pushed elements.
func newInstruction(fn executionFn, gas evm.Gas, pops, pushes int) instruction {
	maxStack := maxStackSize + pops - pushes
	if maxStack > maxStackSize {
		maxStack = maxStackSize
	}
	return instruction{
		execute:   fn,
		staticGas: gas,
		minStack:  pops,
		maxStack:  maxStack,
	}
}

func newWriteInstruction(fn executionFn, gas evm.Gas, pops, pushes int) instruction {
	res := newInstruction(fn, gas, pops, pushes)
	res.writes = true
	return res
}

func buildInstructionTables() []instructionTable {
	tables := make([]instructionTable, evm.NumRevisions())
	table := newFrontierInstructionTable()
	for revision := evm.Frontier; int(revision) < evm.NumRevisions(); revision++ {
		switch revision {
		case evm.Homestead:
			table[DELEGATECALL] = newInstruction(opDelegateCall, 40, 6, 1)
		case evm.Tangerine:
			table[BALANCE].staticGas = 400
			table[EXTCODESIZE].staticGas = 700
			table[EXTCODECOPY].staticGas = 700
			table[SLOAD].staticGas = 200
			table[CALL].staticGas = 700
			table[CALLCODE].staticGas = 700
			table[DELEGATECALL].staticGas = 700
		case evm.Byzantium:
			table[RETURNDATASIZE] = newInstruction(opReturnDataSize, 2, 0, 1)
			table[RETURNDATACOPY] = newInstruction(opReturnDataCopy, 3, 3, 0)
			table[STATICCALL] = newInstruction(opStaticCall, 700, 6, 1)
			table[REVERT] = newInstruction(opRevert, 0, 2, 0)
		case evm.Constantinople:
			table[SHL] = newInstruction(opShl, 3, 2, 1)
			table[SHR] = newInstruction(opShr, 3, 2, 1)
			table[SAR] = newInstruction(opSar, 3, 2, 1)
			table[EXTCODEHASH] = newInstruction(opExtCodeHash, 400, 1, 1)
			table[CREATE2] = newWriteInstruction(opCreate2, 32000, 4, 1)
		case evm.Istanbul:
			table[SLOAD].staticGas = 800
			table[BALANCE].staticGas = 700
			table[EXTCODEHASH].staticGas = 700
			table[CHAINID] = newInstruction(opChainId, 2, 0, 1)
			table[SELFBALANCE] = newInstruction(opSelfBalance, 5, 0, 1)
		case evm.Berlin:
			// Account and slot accesses become warm/cold dependent; the
			// full price moves into the dynamic part of each handler.
			table[SLOAD].staticGas = 0
			table[BALANCE].staticGas = 0
			table[EXTCODESIZE].staticGas = 0
			table[EXTCODECOPY].staticGas = 0
			table[EXTCODEHASH].staticGas = 0
			table[CALL].staticGas = 0
			table[CALLCODE].staticGas = 0
			table[DELEGATECALL].staticGas = 0
			table[STATICCALL].staticGas = 0
		case evm.London:
			table[BASEFEE] = newInstruction(opBaseFee, 2, 0, 1)
		case evm.Shanghai:
			table[PUSH0] = newInstruction(opPush0, 2, 0, 1)
		}
		validateInstructionTable(&table, revision)
		tables[revision] = table
	}
	return tables
}

// validateInstructionTable checks invariants of a constructed table once at
// startup: stack bounds within range and no handler without bounds.
func validateInstructionTable(table *instructionTable, revision evm.Revision) {
	for op := 0; op < numOpCodes; op++ {
		entry := table[op]
		if entry.execute == nil {
			continue
		}
		if entry.minStack < 0 || entry.minStack > maxStackSize ||
			entry.maxStack < 0 || entry.maxStack > maxStackSize {
			panic(fmt.Sprintf("invalid stack bounds for %v in %v table", OpCode(op), revision))
		}
	}
}

func newFrontierInstructionTable() instructionTable {
	var table instructionTable

	table[STOP] = newInstruction(opStop, 0, 0, 0)
	table[ADD] = newInstruction(opAdd, 3, 2, 1)
	table[MUL] = newInstruction(opMul, 5, 2, 1)
	table[SUB] = newInstruction(opSub, 3, 2, 1)
	table[DIV] = newInstruction(opDiv, 5, 2, 1)
	table[SDIV] = newInstruction(opSDiv, 5, 2, 1)
	table[MOD] = newInstruction(opMod, 5, 2, 1)
	table[SMOD] = newInstruction(opSMod, 5, 2, 1)
	table[ADDMOD] = newInstruction(opAddMod, 8, 3, 1)
	table[MULMOD] = newInstruction(opMulMod, 8, 3, 1)
	table[EXP] = newInstruction(opExp, 10, 2, 1)
	table[SIGNEXTEND] = newInstruction(opSignExtend, 5, 2, 1)

	table[LT] = newInstruction(opLt, 3, 2, 1)
	table[GT] = newInstruction(opGt, 3, 2, 1)
	table[SLT] = newInstruction(opSlt, 3, 2, 1)
	table[SGT] = newInstruction(opSgt, 3, 2, 1)
	table[EQ] = newInstruction(opEq, 3, 2, 1)
	table[ISZERO] = newInstruction(opIszero, 3, 1, 1)
	table[AND] = newInstruction(opAnd, 3, 2, 1)
	table[OR] = newInstruction(opOr, 3, 2, 1)
	table[XOR] = newInstruction(opXor, 3, 2, 1)
	table[NOT] = newInstruction(opNot, 3, 1, 1)
	table[BYTE] = newInstruction(opByte, 3, 2, 1)

	table[SHA3] = newInstruction(opSha3, 30, 2, 1)

	table[ADDRESS] = newInstruction(opAddress, 2, 0, 1)
	table[BALANCE] = newInstruction(opBalance, 20, 1, 1)
	table[ORIGIN] = newInstruction(opOrigin, 2, 0, 1)
	table[CALLER] = newInstruction(opCaller, 2, 0, 1)
	table[CALLVALUE] = newInstruction(opCallValue, 2, 0, 1)
	table[CALLDATALOAD] = newInstruction(opCallDataLoad, 3, 1, 1)
	table[CALLDATASIZE] = newInstruction(opCallDataSize, 2, 0, 1)
	table[CALLDATACOPY] = newInstruction(opCallDataCopy, 3, 3, 0)
	table[CODESIZE] = newInstruction(opCodeSize, 2, 0, 1)
	table[CODECOPY] = newInstruction(opCodeCopy, 3, 3, 0)
	table[GASPRICE] = newInstruction(opGasPrice, 2, 0, 1)
	table[EXTCODESIZE] = newInstruction(opExtCodeSize, 20, 1, 1)
	table[EXTCODECOPY] = newInstruction(opExtCodeCopy, 20, 4, 0)

	table[BLOCKHASH] = newInstruction(opBlockHash, 20, 1, 1)
	table[COINBASE] = newInstruction(opCoinbase, 2, 0, 1)
	table[TIMESTAMP] = newInstruction(opTimestamp, 2, 0, 1)
	table[NUMBER] = newInstruction(opNumber, 2, 0, 1)
	table[DIFFICULTY] = newInstruction(opDifficulty, 2, 0, 1)
	table[GASLIMIT] = newInstruction(opGasLimit, 2, 0, 1)

	table[POP] = newInstruction(opPop, 2, 1, 0)
	table[MLOAD] = newInstruction(opMload, 3, 1, 1)
	table[MSTORE] = newInstruction(opMstore, 3, 2, 0)
	table[MSTORE8] = newInstruction(opMstore8, 3, 2, 0)
	table[SLOAD] = newInstruction(opSload, 50, 1, 1)
	table[SSTORE] = newWriteInstruction(opSstore, 0, 2, 0)
	table[JUMP] = newInstruction(opJump, 8, 1, 0)
	table[JUMPI] = newInstruction(opJumpi, 10, 2, 0)
	table[PC] = newInstruction(opPc, 2, 0, 1)
	table[MSIZE] = newInstruction(opMsize, 2, 0, 1)
	table[GAS] = newInstruction(opGas, 2, 0, 1)
	table[JUMPDEST] = newInstruction(opJumpDest, 1, 0, 0)

	for i := 0; i < 32; i++ {
		table[int(PUSH1)+i] = newInstruction(makePush(i+1), 3, 0, 1)
	}
	for i := 0; i < 16; i++ {
		table[int(DUP1)+i] = newInstruction(makeDup(i), 3, i+1, i+2)
		table[int(SWAP1)+i] = newInstruction(makeSwap(i+1), 3, i+2, i+2)
	}
	for i := 0; i <= 4; i++ {
		table[int(LOG0)+i] = newWriteInstruction(makeLog(i), logTopicGas+logTopicGas*evm.Gas(i), i+2, 0)
	}

	table[CREATE] = newWriteInstruction(opCreate, 32000, 3, 1)
	table[CALL] = newInstruction(opCall, 40, 7, 1)
	table[CALLCODE] = newInstruction(opCallCode, 40, 7, 1)
	table[RETURN] = newInstruction(opReturn, 0, 2, 0)
	table[SELFDESTRUCT] = newWriteInstruction(opSelfdestruct, 0, 1, 0)

	return table
}
