// Package processor implements the transaction-level execution logic on top
// of an interpreter: gas purchase and refunds, nonce handling, intrinsic gas,
// recursive contract calls, contract creation, and the integration of the
// precompiled contracts priced by the chain specification.
package processor

import (
	"context"
	"fmt"

	"github.com/ArthurTh0mas/martinez/chain"
	"github.com/ArthurTh0mas/martinez/evm"
	"github.com/ArthurTh0mas/martinez/state"
)

const (
	txGas                     = 21_000
	txGasContractCreation     = 53_000
	txDataZeroGas             = 4
	txDataNonZeroGasFrontier  = 68
	txDataNonZeroGasIstanbul  = 16
	txAccessListAddressGas    = 2400
	txAccessListStorageKeyGas = 1900
	txInitCodeWordGas         = 2

	maxRecursiveDepth = 1024
	maxCodeSize       = 24576
	maxInitCodeSize   = 2 * maxCodeSize

	createGasCostPerByte = 200
)

func init() {
	evm.RegisterProcessorFactory("martinez", newProcessor)
}

func newProcessor(interpreter evm.Interpreter) evm.Processor {
	return NewProcessor(interpreter, chain.Mainnet())
}

// NewProcessor creates a processor executing transactions with the given
// interpreter; the chain specification provides the active precompiled
// contracts and their pricing per block.
func NewProcessor(interpreter evm.Interpreter, spec chain.Spec) evm.Processor {
	return &processor{
		interpreter: interpreter,
		spec:        spec,
	}
}

type processor struct {
	interpreter evm.Interpreter
	spec        chain.Spec
}

func (p *processor) Run(
	blockParams evm.BlockParameters,
	transaction evm.Transaction,
	context evm.TransactionContext,
) (evm.Receipt, error) {
	errorReceipt := evm.Receipt{
		Success: false,
		GasUsed: transaction.GasLimit,
	}
	revision := blockParams.Revision
	blockSpec := p.spec.BlockSpec(uint64(blockParams.BlockNumber), uint64(blockParams.Timestamp))

	if err := checkNonce(transaction, context); err != nil {
		return errorReceipt, nil
	}
	if transaction.Recipient == nil &&
		revision >= evm.Shanghai && len(transaction.Input) > maxInitCodeSize {
		return errorReceipt, nil
	}

	gas := transaction.GasLimit
	intrinsicGas := intrinsicGas(transaction, revision)
	if gas < intrinsicGas {
		return errorReceipt, nil
	}

	if err := buyGas(transaction, context); err != nil {
		return errorReceipt, nil
	}
	gas -= intrinsicGas

	// For plain calls the nonce is bumped here; creations bump it as part
	// of the creation itself, which derives the contract address from the
	// pre-increment value.
	if transaction.Recipient != nil {
		context.SetNonce(transaction.Sender, transaction.Nonce+1)
	}

	if revision >= evm.Berlin {
		warmUpAccessLists(transaction, context, blockSpec)
	}
	if revision >= evm.Shanghai {
		context.AccessAccount(blockParams.Coinbase)
	}

	runContext := &runContext{
		TransactionContext: context,
		interpreter:        p.interpreter,
		blockParameters:    blockParams,
		transactionParameters: evm.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
		precompiles: blockSpec.Precompiles,
	}

	kind := evm.Call
	callParameters := evm.CallParameters{
		Sender: transaction.Sender,
		Value:  transaction.Value,
		Input:  transaction.Input,
		Gas:    gas,
	}
	if transaction.Recipient == nil {
		kind = evm.Create
	} else {
		callParameters.Recipient = *transaction.Recipient
	}

	result, err := runContext.Call(kind, callParameters)
	if err != nil {
		return errorReceipt, err
	}

	gasLeft := refundGas(transaction, context, revision, result, blockParams.Coinbase)

	receipt := evm.Receipt{
		Success: result.Success,
		Output:  result.Output,
		GasUsed: transaction.GasLimit - gasLeft,
		Logs:    context.GetLogs(),
	}
	if kind == evm.Create && result.Success {
		created := result.CreatedAddress
		receipt.ContractAddress = &created
	}
	if lister, ok := context.(interface{ Destructed() []evm.Address }); ok {
		receipt.DestructedAccounts = lister.Destructed()
	}
	return receipt, nil
}

// refundGas caps the accumulated refund, credits the sender with the
// remaining gas, and pays the fee for the consumed portion to the coinbase.
// It returns the final amount of unused gas.
func refundGas(
	transaction evm.Transaction,
	context evm.TransactionContext,
	revision evm.Revision,
	result evm.CallResult,
	coinbase evm.Address,
) evm.Gas {
	gasLeft := result.GasLeft
	gasUsed := transaction.GasLimit - gasLeft

	maxRefund := gasUsed / 2
	if revision >= evm.London {
		maxRefund = gasUsed / 5
	}
	refund := result.GasRefund
	if refund > maxRefund {
		refund = maxRefund
	}
	gasLeft += refund

	sender := context.GetBalance(transaction.Sender)
	sender = evm.Add(sender, transaction.GasPrice.Scale(uint64(gasLeft)))
	context.SetBalance(transaction.Sender, sender)

	fee := transaction.GasPrice.Scale(uint64(transaction.GasLimit - gasLeft))
	context.SetBalance(coinbase, evm.Add(context.GetBalance(coinbase), fee))
	return gasLeft
}

// intrinsicGas computes the up-front gas charge of a transaction: the base
// cost, the calldata cost, the access list cost, and the init code cost for
// creations.
func intrinsicGas(transaction evm.Transaction, revision evm.Revision) evm.Gas {
	gas := evm.Gas(txGas)
	if transaction.Recipient == nil {
		gas = txGasContractCreation
	}

	if len(transaction.Input) > 0 {
		nonZeroGas := evm.Gas(txDataNonZeroGasFrontier)
		if revision >= evm.Istanbul {
			nonZeroGas = txDataNonZeroGasIstanbul
		}
		for _, b := range transaction.Input {
			if b != 0 {
				gas += nonZeroGas
			} else {
				gas += txDataZeroGas
			}
		}
	}

	for _, tuple := range transaction.AccessList {
		gas += txAccessListAddressGas
		gas += evm.Gas(len(tuple.Keys)) * txAccessListStorageKeyGas
	}

	if transaction.Recipient == nil && revision >= evm.Shanghai {
		gas += evm.Gas(evm.SizeInWords(uint64(len(transaction.Input)))) * txInitCodeWordGas
	}
	return gas
}

func checkNonce(transaction evm.Transaction, context evm.TransactionContext) error {
	stateNonce := context.GetNonce(transaction.Sender)
	if transaction.Nonce != stateNonce {
		return fmt.Errorf("nonce mismatch: %v != %v", transaction.Nonce, stateNonce)
	}
	if stateNonce+1 < stateNonce {
		return fmt.Errorf("nonce overflow")
	}
	return nil
}

func buyGas(transaction evm.Transaction, context evm.TransactionContext) error {
	cost := transaction.GasPrice.Scale(uint64(transaction.GasLimit))

	balance := context.GetBalance(transaction.Sender)
	if balance.Cmp(cost) < 0 {
		return fmt.Errorf("insufficient balance: %v < %v", balance, cost)
	}
	context.SetBalance(transaction.Sender, evm.Sub(balance, cost))
	return nil
}

// warmUpAccessLists marks the sender, the recipient, the active precompiled
// contracts, and all access list entries as warm.
func warmUpAccessLists(
	transaction evm.Transaction,
	context evm.TransactionContext,
	blockSpec chain.BlockSpec,
) {
	context.AccessAccount(transaction.Sender)
	if transaction.Recipient != nil {
		context.AccessAccount(*transaction.Recipient)
	}
	for address := range blockSpec.Precompiles {
		context.AccessAccount(address)
	}
	for _, tuple := range transaction.AccessList {
		context.AccessAccount(tuple.Address)
		for _, key := range tuple.Keys {
			context.AccessStorage(tuple.Address, key)
		}
	}
}

// ApplyBlockOverlays credits the balance overlays the chain specification
// schedules for the given block. It must run before the block's
// transactions.
func ApplyBlockOverlays(blockSpec chain.BlockSpec, store *state.MemoryState) {
	for address, balance := range blockSpec.BalanceChanges {
		store.SetBalance(address, evm.Add(store.GetBalance(address), balance))
	}
}

// RunTransactions executes the given transactions in order against the given
// state, committing the effect of each transaction before starting the next.
// Cancellation is only checked between transactions.
func RunTransactions(
	ctx context.Context,
	processor evm.Processor,
	blockParams evm.BlockParameters,
	transactions []evm.Transaction,
	store *state.MemoryState,
) ([]evm.Receipt, error) {
	receipts := make([]evm.Receipt, 0, len(transactions))
	for i, transaction := range transactions {
		if err := ctx.Err(); err != nil {
			return receipts, err
		}
		transactionState := state.NewTransactionState(store)
		receipt, err := processor.Run(blockParams, transaction, transactionState)
		if err != nil {
			return receipts, fmt.Errorf("transaction %d failed: %w", i, err)
		}
		transactionState.Apply(store)
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}
