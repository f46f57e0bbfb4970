package processor

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ArthurTh0mas/martinez/chain"
	"github.com/ArthurTh0mas/martinez/evm"
	"github.com/ArthurTh0mas/martinez/precompiles"
)

var emptyCodeHash = evm.Hash(crypto.Keccak256(nil))

// runContext carries the per-message environment of a transaction and
// implements evm.RunContext. It is handed to the interpreter, which calls
// back into it for nested calls and creations.
type runContext struct {
	evm.TransactionContext
	interpreter           evm.Interpreter
	blockParameters       evm.BlockParameters
	transactionParameters evm.TransactionParameters
	precompiles           map[evm.Address]chain.PrecompileSpec
	depth                 int
	static                bool
}

func (r runContext) Call(kind evm.CallKind, parameters evm.CallParameters) (evm.CallResult, error) {
	if kind == evm.Create || kind == evm.Create2 {
		return r.executeCreate(kind, parameters)
	}
	return r.executeCall(kind, parameters)
}

func (r runContext) executeCall(kind evm.CallKind, parameters evm.CallParameters) (evm.CallResult, error) {
	errResult := evm.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > maxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	if kind == evm.Call || kind == evm.CallCode {
		if !canTransferValue(r, parameters.Value, parameters.Sender, parameters.Recipient) {
			return errResult, nil
		}
	}

	snapshot := r.CreateSnapshot()
	recipient := parameters.Recipient

	if kind == evm.StaticCall {
		r.static = true
	}
	if kind == evm.Call || kind == evm.CallCode {
		transferValue(r, parameters.Value, parameters.Sender, recipient)
	}

	codeAddress := recipient
	if kind == evm.DelegateCall || kind == evm.CallCode {
		codeAddress = parameters.CodeAddress
	}

	if spec, ok := r.precompiles[codeAddress]; ok {
		result := runPrecompiled(spec, parameters.Input, parameters.Gas)
		if !result.Success {
			r.RestoreSnapshot(snapshot)
		}
		return result, nil
	}

	code := r.GetCode(codeAddress)
	codeHash := r.GetCodeHash(codeAddress)

	result, err := r.interpreter.Run(evm.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1,
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 parameters.Input,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	})
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)
		if !isRevert(result, err) {
			result.GasLeft = 0
		}
	}

	return evm.CallResult{
		Output:    result.Output,
		GasLeft:   result.GasLeft,
		GasRefund: result.GasRefund,
		Success:   result.Success,
	}, err
}

func (r runContext) executeCreate(kind evm.CallKind, parameters evm.CallParameters) (evm.CallResult, error) {
	errResult := evm.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > maxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	if !canTransferValue(r, parameters.Value, parameters.Sender, parameters.Recipient) {
		return errResult, nil
	}
	if err := incrementNonce(r, parameters.Sender); err != nil {
		return errResult, nil
	}

	initCode := evm.Code(parameters.Input)
	initCodeHash := evm.Hash(crypto.Keccak256(initCode))

	createdAddress := createAddress(kind, parameters.Sender,
		r.GetNonce(parameters.Sender)-1, parameters.Salt, initCodeHash)

	if r.blockParameters.Revision >= evm.Berlin {
		r.AccessAccount(createdAddress)
	}

	// Address collision: a nonce or non-trivial code at the target aborts
	// the creation and consumes all gas.
	if r.GetNonce(createdAddress) != 0 ||
		(r.GetCodeHash(createdAddress) != (evm.Hash{}) &&
			r.GetCodeHash(createdAddress) != emptyCodeHash) {
		return evm.CallResult{}, nil
	}

	snapshot := r.CreateSnapshot()
	r.CreateAccount(createdAddress)
	if r.blockParameters.Revision >= evm.Spurious {
		r.SetNonce(createdAddress, 1)
	}
	transferValue(r, parameters.Value, parameters.Sender, createdAddress)

	result, err := r.interpreter.Run(evm.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1,
		Gas:                   parameters.Gas,
		Recipient:             createdAddress,
		Sender:                parameters.Sender,
		Input:                 nil,
		Value:                 parameters.Value,
		CodeHash:              nil,
		Code:                  initCode,
	})
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)
		if !isRevert(result, err) {
			return evm.CallResult{}, err
		}
		return evm.CallResult{
			Output:         result.Output,
			GasLeft:        result.GasLeft,
			CreatedAddress: createdAddress,
		}, nil
	}

	code := result.Output
	if len(code) > maxCodeSize {
		result.Success = false
	}
	if r.blockParameters.Revision >= evm.London && len(code) > 0 && code[0] == 0xEF {
		result.Success = false
	}
	depositGas := evm.Gas(len(code) * createGasCostPerByte)
	if result.GasLeft < depositGas {
		result.Success = false
	} else {
		result.GasLeft -= depositGas
	}

	if result.Success {
		r.SetCode(createdAddress, evm.Code(code))
	} else {
		r.RestoreSnapshot(snapshot)
		result.GasLeft = 0
		result.Output = nil
	}

	return evm.CallResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft,
		GasRefund:      result.GasRefund,
		Success:        result.Success,
		CreatedAddress: createdAddress,
	}, nil
}

// runPrecompiled prices and executes a native contract. Failures consume all
// provided gas.
func runPrecompiled(spec chain.PrecompileSpec, input []byte, gas evm.Gas) evm.CallResult {
	contract, err := precompiles.New(spec)
	if err != nil {
		return evm.CallResult{}
	}
	cost := contract.RequiredGas(input)
	if cost > uint64(gas) {
		return evm.CallResult{}
	}
	output, err := contract.Run(input)
	if err != nil {
		return evm.CallResult{}
	}
	return evm.CallResult{
		Output:  output,
		GasLeft: gas - evm.Gas(cost),
		Success: true,
	}
}

// isRevert distinguishes an orderly revert from an exceptional halt; only
// reverts keep their remaining gas and output.
func isRevert(result evm.Result, err error) bool {
	return err == nil && !result.Success && (result.GasLeft > 0 || len(result.Output) > 0)
}

func createAddress(
	kind evm.CallKind,
	sender evm.Address,
	nonce uint64,
	salt evm.Hash,
	initCodeHash evm.Hash,
) evm.Address {
	if kind == evm.Create {
		return evm.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return evm.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initCodeHash[:]))
}

func canTransferValue(
	context evm.TransactionContext,
	value evm.Value,
	sender evm.Address,
	recipient evm.Address,
) bool {
	if value == (evm.Value{}) {
		return true
	}
	senderBalance := context.GetBalance(sender)
	if senderBalance.Cmp(value) < 0 {
		return false
	}
	if sender == recipient {
		return true
	}
	receiverBalance := context.GetBalance(recipient)
	updated := evm.Add(receiverBalance, value)
	return updated.Cmp(receiverBalance) >= 0 && updated.Cmp(value) >= 0
}

// transferValue moves value between accounts; it must only be called after
// canTransferValue.
func transferValue(
	context evm.TransactionContext,
	value evm.Value,
	sender evm.Address,
	recipient evm.Address,
) {
	if value == (evm.Value{}) || sender == recipient {
		return
	}
	context.CreateAccount(recipient)
	context.SetBalance(sender, evm.Sub(context.GetBalance(sender), value))
	context.SetBalance(recipient, evm.Add(context.GetBalance(recipient), value))
}

func incrementNonce(context evm.TransactionContext, address evm.Address) error {
	nonce := context.GetNonce(address)
	if nonce+1 < nonce {
		return evm.ErrNonceOverflow
	}
	context.SetNonce(address, nonce+1)
	return nil
}
