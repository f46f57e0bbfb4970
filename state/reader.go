// Package state provides the transaction-scoped state buffer of the
// execution engine. All modifications performed during a transaction are
// collected in a TransactionState backed by a journal of undo records;
// nested call frames snapshot and revert the journal, and the net effect of
// a successful transaction is applied to a StateWriter at finalization.
package state

import (
	"github.com/ArthurTh0mas/martinez/evm"
)

//go:generate mockgen -source reader.go -destination reader_mock.go -package state

// StateReader provides read access to the committed world state a
// transaction executes on. Implementations are expected to represent a fixed
// snapshot; values observed through a reader never change during a
// transaction.
type StateReader interface {
	AccountExists(evm.Address) bool
	GetBalance(evm.Address) evm.Value
	GetNonce(evm.Address) uint64
	GetCode(evm.Address) evm.Code
	GetCodeHash(evm.Address) evm.Hash
	GetStorage(evm.Address, evm.Key) evm.Word

	// GetBlockHash returns the hash of the block with the given number.
	GetBlockHash(number int64) evm.Hash
}

// StateWriter receives the net state effects of a finalized transaction.
type StateWriter interface {
	SetBalance(evm.Address, evm.Value)
	SetNonce(evm.Address, uint64)
	SetCode(evm.Address, evm.Code)
	SetStorage(evm.Address, evm.Key, evm.Word)
	DeleteAccount(evm.Address)
}
