package mevm

import (
	"testing"

	"github.com/ArthurTh0mas/martinez/evm"
)

func TestInstructionTables_OpCodeIntroductions(t *testing.T) {
	introductions := map[OpCode]evm.Revision{
		DELEGATECALL:   evm.Homestead,
		RETURNDATASIZE: evm.Byzantium,
		RETURNDATACOPY: evm.Byzantium,
		STATICCALL:     evm.Byzantium,
		REVERT:         evm.Byzantium,
		SHL:            evm.Constantinople,
		SHR:            evm.Constantinople,
		SAR:            evm.Constantinople,
		EXTCODEHASH:    evm.Constantinople,
		CREATE2:        evm.Constantinople,
		CHAINID:        evm.Istanbul,
		SELFBALANCE:    evm.Istanbul,
		BASEFEE:        evm.London,
		PUSH0:          evm.Shanghai,
	}

	for op, introduction := range introductions {
		for revision := evm.Frontier; int(revision) < evm.NumRevisions(); revision++ {
			available := getInstructionTable(revision)[op].execute != nil
			if want, got := revision >= introduction, available; want != got {
				t.Errorf("%v availability in %v is %t, wanted %t", op, revision, got, want)
			}
		}
	}
}

func TestInstructionTables_StaticGasRePricings(t *testing.T) {
	tests := []struct {
		op       OpCode
		revision evm.Revision
		gas      evm.Gas
	}{
		{SLOAD, evm.Frontier, 50},
		{SLOAD, evm.Tangerine, 200},
		{SLOAD, evm.Istanbul, 800},
		{SLOAD, evm.Berlin, 0},
		{BALANCE, evm.Frontier, 20},
		{BALANCE, evm.Tangerine, 400},
		{BALANCE, evm.Istanbul, 700},
		{BALANCE, evm.Berlin, 0},
		{CALL, evm.Frontier, 40},
		{CALL, evm.Tangerine, 700},
		{CALL, evm.Berlin, 0},
		{EXTCODESIZE, evm.Frontier, 20},
		{EXTCODESIZE, evm.Tangerine, 700},
		{EXTCODESIZE, evm.Berlin, 0},
	}
	for _, test := range tests {
		if want, got := test.gas, getInstructionTable(test.revision)[test.op].staticGas; want != got {
			t.Errorf("wrong static gas for %v in %v, wanted %d, got %d",
				test.op, test.revision, want, got)
		}
	}
}

func TestInstructionTables_WriteOpsAreMarked(t *testing.T) {
	table := getInstructionTable(evm.Shanghai)
	for _, op := range []OpCode{SSTORE, LOG0, LOG4, CREATE, CREATE2, SELFDESTRUCT} {
		if !table[op].writes {
			t.Errorf("%v must be marked as a state-changing instruction", op)
		}
	}
	for _, op := range []OpCode{SLOAD, CALL, STATICCALL, RETURN} {
		if table[op].writes {
			t.Errorf("%v must not be marked as a state-changing instruction", op)
		}
	}
}

func TestInstructionTables_StackBoundsPreventOverflow(t *testing.T) {
	table := getInstructionTable(evm.Shanghai)
	if want, got := maxStackSize-1, table[PUSH1].maxStack; want != got {
		t.Errorf("wrong PUSH1 stack bound, wanted %d, got %d", want, got)
	}
	if want, got := maxStackSize, table[POP].maxStack; want != got {
		t.Errorf("wrong POP stack bound, wanted %d, got %d", want, got)
	}
	if want, got := 17, table[SWAP16].minStack; want != got {
		t.Errorf("wrong SWAP16 stack requirement, wanted %d, got %d", want, got)
	}
	if want, got := 16, table[DUP16].minStack; want != got {
		t.Errorf("wrong DUP16 stack requirement, wanted %d, got %d", want, got)
	}
}
