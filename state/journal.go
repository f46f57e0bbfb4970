package state

import (
	"github.com/ArthurTh0mas/martinez/evm"
)

// journalEntry is a single undo record. Reverting an entry restores the
// state modification it recorded, and must be performed in the exact
// reverse order of recording.
type journalEntry interface {
	revert(*TransactionState)
}

// journal is a flat, append-only log of undo records spanning a full
// transaction. A snapshot is simply the current length of the log; reverting
// to a snapshot undoes all entries recorded after it, which implicitly
// invalidates any snapshot nested inside the reverted range.
type journal struct {
	entries []journalEntry
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() evm.Snapshot {
	return evm.Snapshot(len(j.entries))
}

func (j *journal) revertTo(s *TransactionState, snapshot evm.Snapshot) {
	for i := len(j.entries) - 1; i >= int(snapshot); i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:snapshot]
}

// ----------------------------------------------------------------------------
// Undo records
// ----------------------------------------------------------------------------

type balanceChange struct {
	account evm.Address
	prev    evm.Value
}

func (e balanceChange) revert(s *TransactionState) {
	s.balances[e.account] = e.prev
}

type nonceChange struct {
	account evm.Address
	prev    uint64
}

func (e nonceChange) revert(s *TransactionState) {
	s.nonces[e.account] = e.prev
}

type codeChange struct {
	account evm.Address
	prev    evm.Code
}

func (e codeChange) revert(s *TransactionState) {
	s.codes[e.account] = e.prev
}

type storageChange struct {
	account evm.Address
	key     evm.Key
	prev    evm.Word
}

func (e storageChange) revert(s *TransactionState) {
	s.storage[e.account][e.key] = e.prev
}

type transientStorageChange struct {
	account evm.Address
	key     evm.Key
	prev    evm.Word
}

func (e transientStorageChange) revert(s *TransactionState) {
	s.transient[e.account][e.key] = e.prev
}

// accountCreation marks the first materialization of an account within the
// transaction.
type accountCreation struct {
	account evm.Address
}

func (e accountCreation) revert(s *TransactionState) {
	delete(s.created, e.account)
}

// selfDestruct marks the first destruction of an account within the
// transaction. Balance movements surrounding it are recorded separately.
type selfDestruct struct {
	account evm.Address
}

func (e selfDestruct) revert(s *TransactionState) {
	delete(s.destructed, e.account)
}

// logEmission records an appended log; reverting drops it again.
type logEmission struct{}

func (e logEmission) revert(s *TransactionState) {
	s.logs = s.logs[:len(s.logs)-1]
}
