package mevm

import (
	"bytes"
	"testing"

	"github.com/ArthurTh0mas/martinez/evm"
)

// runCode executes the given code with the provided parameters filled into
// an otherwise empty environment.
func runCode(t *testing.T, code []byte, gas evm.Gas, prepare func(*evm.Parameters, *testRunContext)) evm.Result {
	t.Helper()
	runCtx := newTestRunContext()
	params := evm.Parameters{
		Context: runCtx,
		Gas:     gas,
		Code:    code,
	}
	if prepare != nil {
		prepare(&params, runCtx)
	}
	interpreter := NewInterpreter(Config{WithShaCache: true})
	result, err := interpreter.Run(params)
	if err != nil {
		t.Fatalf("unexpected interpreter error: %v", err)
	}
	return result
}

func TestInterpreter_EmptyCodeSucceedsWithoutGasUse(t *testing.T) {
	result := runCode(t, nil, 400, nil)
	if !result.Success {
		t.Errorf("execution of empty code failed")
	}
	if want, got := evm.Gas(400), result.GasLeft; want != got {
		t.Errorf("wrong gas left, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_ComputesAndReturnsASum(t *testing.T) {
	code := []byte{
		byte(PUSH1), 2,
		byte(PUSH1), 3,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	result := runCode(t, code, 100000, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if want, got := 32, len(result.Output); want != got {
		t.Fatalf("wrong output size, wanted %d, got %d", want, got)
	}
	if want, got := byte(5), result.Output[31]; want != got {
		t.Errorf("wrong sum returned, wanted %d, got %d", want, got)
	}
	// 2x PUSH1 (3) + ADD (3) + PUSH1 (3) + MSTORE (3 + 3 memory) +
	// 2x PUSH1 (3) + RETURN (0)
	if want, got := evm.Gas(100000-24), result.GasLeft; want != got {
		t.Errorf("wrong gas left, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_RevertReturnsDataAndRemainingGas(t *testing.T) {
	code := []byte{
		byte(PUSH1), 42,
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(REVERT),
	}
	result := runCode(t, code, 100000, func(p *evm.Parameters, _ *testRunContext) {
		p.Revision = evm.Byzantium
	})
	if result.Success {
		t.Fatalf("reverted execution must not be successful")
	}
	if result.GasLeft == 0 {
		t.Errorf("a revert must preserve the remaining gas")
	}
	if want, got := byte(42), result.Output[31]; want != got {
		t.Errorf("wrong revert data, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_ExceptionalHaltsConsumeAllGas(t *testing.T) {
	tests := map[string][]byte{
		"invalid instruction": {byte(INVALID)},
		"stack underflow":     {byte(ADD)},
		"invalid jump":        {byte(PUSH1), 3, byte(JUMP), byte(STOP)},
		"jump into push data": {byte(PUSH1), 4, byte(JUMP), byte(PUSH1), byte(JUMPDEST)},
		"out of gas":          {byte(PUSH1), 0, byte(PUSH1), 0, byte(SHA3)},
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, code, 33, nil)
			if result.Success {
				t.Fatalf("execution must fail")
			}
			if want, got := evm.Gas(0), result.GasLeft; want != got {
				t.Errorf("an exceptional halt must consume all gas, %d left", got)
			}
			if len(result.Output) != 0 {
				t.Errorf("an exceptional halt must not produce output")
			}
		})
	}
}

func TestInterpreter_ValidJumpIsTaken(t *testing.T) {
	code := []byte{
		byte(PUSH1), 4,
		byte(JUMP),
		byte(INVALID),
		byte(JUMPDEST),
		byte(STOP),
	}
	result := runCode(t, code, 100000, nil)
	if !result.Success {
		t.Errorf("execution failed")
	}
}

func TestInterpreter_StackLimitIsEnforced(t *testing.T) {
	var fits []byte
	for i := 0; i < maxStackSize; i++ {
		fits = append(fits, byte(PUSH1), 0)
	}
	result := runCode(t, fits, 100000, nil)
	if !result.Success {
		t.Errorf("filling the stack to its limit must succeed")
	}

	overflow := append(append([]byte{}, fits...), byte(PUSH1), 0)
	result = runCode(t, overflow, 100000, nil)
	if result.Success {
		t.Errorf("exceeding the stack limit must fail")
	}
	if want, got := evm.Gas(0), result.GasLeft; want != got {
		t.Errorf("a stack overflow must consume all gas, %d left", got)
	}
}

func TestInterpreter_StaticFramesRejectStateChanges(t *testing.T) {
	tests := map[string][]byte{
		"sstore":       {byte(PUSH1), 1, byte(PUSH1), 1, byte(SSTORE)},
		"log0":         {byte(PUSH1), 0, byte(PUSH1), 0, byte(LOG0)},
		"create":       {byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(CREATE)},
		"selfdestruct": {byte(PUSH1), 0, byte(SELFDESTRUCT)},
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, code, 100000, func(p *evm.Parameters, _ *testRunContext) {
				p.Static = true
				p.Revision = evm.Istanbul
			})
			if result.Success {
				t.Errorf("state change in a static frame must fail")
			}
		})
	}
}

func TestInterpreter_CallWithValueInStaticFrameFails(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // ret size
		byte(PUSH1), 0, // ret offset
		byte(PUSH1), 0, // args size
		byte(PUSH1), 0, // args offset
		byte(PUSH1), 1, // value
		byte(PUSH1), 0, // address
		byte(PUSH1), 0, // gas
		byte(CALL),
	}
	result := runCode(t, code, 100000, func(p *evm.Parameters, _ *testRunContext) {
		p.Static = true
	})
	if result.Success {
		t.Errorf("a value transfer in a static frame must fail")
	}
}

func TestInterpreter_NestedCallForwardsAllButOneSixtyFourth(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // ret size
		byte(PUSH1), 0, // ret offset
		byte(PUSH1), 0, // args size
		byte(PUSH1), 0, // args offset
		byte(PUSH1), 0, // value
		byte(PUSH1), 0x42, // address
		byte(PUSH32), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // gas, more than available
		byte(CALL),
		byte(STOP),
	}

	var forwarded evm.Gas
	result := runCode(t, code, 100000, func(p *evm.Parameters, ctx *testRunContext) {
		p.Revision = evm.Istanbul
		ctx.callHandler = func(kind evm.CallKind, params evm.CallParameters) (evm.CallResult, error) {
			forwarded = params.Gas
			return evm.CallResult{Success: true, GasLeft: params.Gas}, nil
		}
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}

	// 7 pushes (21 gas) and the 700 static call cost are charged before
	// computing the 63/64 forwarding.
	available := evm.Gas(100000 - 21 - 700)
	if want, got := available-available/64, forwarded; want != got {
		t.Errorf("wrong gas forwarded, wanted %d, got %d", want, got)
	}
	// The callee returned all forwarded gas; only the retained gas and the
	// final STOP remain accounted.
	if want, got := evm.Gas(100000-21-700), result.GasLeft; want != got {
		t.Errorf("wrong gas left, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_CallResultIsWrittenToMemory(t *testing.T) {
	code := []byte{
		byte(PUSH1), 32, // ret size
		byte(PUSH1), 0, // ret offset
		byte(PUSH1), 0, // args size
		byte(PUSH1), 0, // args offset
		byte(PUSH1), 0, // value
		byte(PUSH1), 0x42, // address
		byte(PUSH1), 255, // gas
		byte(CALL),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	output := bytes.Repeat([]byte{0xab}, 32)
	result := runCode(t, code, 100000, func(p *evm.Parameters, ctx *testRunContext) {
		p.Revision = evm.Istanbul
		ctx.callHandler = func(kind evm.CallKind, params evm.CallParameters) (evm.CallResult, error) {
			return evm.CallResult{Success: true, Output: output, GasLeft: 0}, nil
		}
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if !bytes.Equal(output, result.Output) {
		t.Errorf("wrong output, wanted %x, got %x", output, result.Output)
	}
}

func TestInterpreter_ReturnBufferAfterCreate(t *testing.T) {
	// PUSH1 0 (size), PUSH1 0 (offset), PUSH1 0 (value), CREATE, POP,
	// RETURNDATASIZE, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	code := []byte{
		byte(PUSH1), 0,
		byte(PUSH1), 0,
		byte(PUSH1), 0,
		byte(CREATE),
		byte(POP),
		byte(RETURNDATASIZE),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}

	tests := map[string]struct {
		created  evm.CallResult
		wantSize byte
	}{
		"successful creation leaves the buffer empty": {
			created:  evm.CallResult{Success: true, Output: evm.Data{1, 2, 3}},
			wantSize: 0,
		},
		"reverted creation exposes its revert data": {
			created:  evm.CallResult{Success: false, Output: evm.Data{1, 2, 3}, GasLeft: 1},
			wantSize: 3,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, code, 100000, func(p *evm.Parameters, ctx *testRunContext) {
				p.Revision = evm.Istanbul
				ctx.callHandler = func(kind evm.CallKind, params evm.CallParameters) (evm.CallResult, error) {
					return test.created, nil
				}
			})
			if !result.Success {
				t.Fatalf("execution failed")
			}
			if want, got := test.wantSize, result.Output[31]; want != got {
				t.Errorf("wrong return data size, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestInterpreter_ColdAndWarmAccountAccessSinceBerlin(t *testing.T) {
	// Two BALANCE queries for the same address; the first is cold, the
	// second warm.
	code := []byte{
		byte(PUSH1), 0x42, byte(BALANCE), byte(POP),
		byte(PUSH1), 0x42, byte(BALANCE), byte(POP),
		byte(STOP),
	}
	result := runCode(t, code, 100000, func(p *evm.Parameters, _ *testRunContext) {
		p.Revision = evm.Berlin
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	// 2x (PUSH1 + POP) = 10, cold access 2600, warm access 100.
	if want, got := evm.Gas(100000-10-2600-100), result.GasLeft; want != got {
		t.Errorf("wrong gas left, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_SelfDestructEndsTheFrame(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x42,
		byte(SELFDESTRUCT),
		byte(INVALID), // never reached
	}
	result := runCode(t, code, 100000, func(p *evm.Parameters, _ *testRunContext) {
		p.Revision = evm.Istanbul
		p.Recipient = evm.Address{1}
	})
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if want, got := selfdestructRefundGas, result.GasRefund; want != got {
		t.Errorf("wrong refund, wanted %d, got %d", want, got)
	}
}

func TestInterpreter_UnsupportedRevisionIsRejected(t *testing.T) {
	interpreter := NewInterpreter(Config{})
	_, err := interpreter.Run(evm.Parameters{
		BlockParameters: evm.BlockParameters{Revision: evm.Revision(evm.NumRevisions())},
		Code:            []byte{byte(STOP)},
	})
	if _, ok := err.(*evm.ErrUnsupportedRevision); !ok {
		t.Errorf("expected an unsupported revision error, got %v", err)
	}
}

func TestInterpreter_Sha3HashesMemory(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // data: 32 zero bytes
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(SHA3),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	result := runCode(t, code, 100000, nil)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	want := keccak256(make([]byte, 32))
	if !bytes.Equal(want[:], result.Output) {
		t.Errorf("wrong hash, wanted %x, got %x", want, result.Output)
	}
}
