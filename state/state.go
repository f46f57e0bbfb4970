package state

import (
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ArthurTh0mas/martinez/evm"
)

// slotID identifies a single storage slot across all accounts.
type slotID struct {
	account evm.Address
	key     evm.Key
}

// TransactionState buffers all state modifications of a single transaction
// on top of a read-only StateReader. It implements evm.TransactionContext:
// every mutation is recorded in a journal of undo records so that nested
// call frames can snapshot and revert, while the warm account and slot sets
// are transaction-scoped and survive reverts. The net effect of a completed
// transaction is materialized through Apply.
//
// A TransactionState is not safe for concurrent use.
type TransactionState struct {
	reader StateReader

	journal journal

	balances   map[evm.Address]evm.Value
	nonces     map[evm.Address]uint64
	codes      map[evm.Address]evm.Code
	storage    map[evm.Address]map[evm.Key]evm.Word
	transient  map[evm.Address]map[evm.Key]evm.Word
	created    map[evm.Address]struct{}
	destructed map[evm.Address]struct{}

	warmAccounts map[evm.Address]struct{}
	warmSlots    map[slotID]struct{}

	logs []evm.Log
}

// NewTransactionState creates an empty transaction buffer on top of the
// given committed state.
func NewTransactionState(reader StateReader) *TransactionState {
	return &TransactionState{
		reader:       reader,
		balances:     map[evm.Address]evm.Value{},
		nonces:       map[evm.Address]uint64{},
		codes:        map[evm.Address]evm.Code{},
		storage:      map[evm.Address]map[evm.Key]evm.Word{},
		transient:    map[evm.Address]map[evm.Key]evm.Word{},
		created:      map[evm.Address]struct{}{},
		destructed:   map[evm.Address]struct{}{},
		warmAccounts: map[evm.Address]struct{}{},
		warmSlots:    map[slotID]struct{}{},
	}
}

// ----------------------------------------------------------------------------
// Accounts
// ----------------------------------------------------------------------------

func (s *TransactionState) AccountExists(addr evm.Address) bool {
	if _, ok := s.created[addr]; ok {
		return true
	}
	return s.reader.AccountExists(addr)
}

// CreateAccount marks the given account as existing within the ongoing
// transaction. It is used by the processor when deploying contracts and
// when an account is implicitly materialized by a value transfer.
func (s *TransactionState) CreateAccount(addr evm.Address) {
	if s.AccountExists(addr) {
		return
	}
	s.journal.append(accountCreation{account: addr})
	s.created[addr] = struct{}{}
}

func (s *TransactionState) GetBalance(addr evm.Address) evm.Value {
	if balance, ok := s.balances[addr]; ok {
		return balance
	}
	return s.reader.GetBalance(addr)
}

func (s *TransactionState) SetBalance(addr evm.Address, balance evm.Value) {
	s.journal.append(balanceChange{account: addr, prev: s.GetBalance(addr)})
	s.balances[addr] = balance
}

func (s *TransactionState) GetNonce(addr evm.Address) uint64 {
	if nonce, ok := s.nonces[addr]; ok {
		return nonce
	}
	return s.reader.GetNonce(addr)
}

func (s *TransactionState) SetNonce(addr evm.Address, nonce uint64) {
	s.journal.append(nonceChange{account: addr, prev: s.GetNonce(addr)})
	s.nonces[addr] = nonce
}

func (s *TransactionState) GetCode(addr evm.Address) evm.Code {
	if code, ok := s.codes[addr]; ok {
		return code
	}
	return s.reader.GetCode(addr)
}

func (s *TransactionState) GetCodeSize(addr evm.Address) int {
	return len(s.GetCode(addr))
}

func (s *TransactionState) GetCodeHash(addr evm.Address) evm.Hash {
	if code, ok := s.codes[addr]; ok {
		return evm.Hash(crypto.Keccak256Hash(code))
	}
	if _, ok := s.created[addr]; ok {
		return evm.Hash(crypto.Keccak256Hash(nil))
	}
	return s.reader.GetCodeHash(addr)
}

func (s *TransactionState) SetCode(addr evm.Address, code evm.Code) {
	prev, ok := s.codes[addr]
	if !ok {
		prev = s.reader.GetCode(addr)
	}
	s.journal.append(codeChange{account: addr, prev: prev})
	s.codes[addr] = code
}

// ----------------------------------------------------------------------------
// Storage
// ----------------------------------------------------------------------------

func (s *TransactionState) GetStorage(addr evm.Address, key evm.Key) evm.Word {
	if slots, ok := s.storage[addr]; ok {
		if value, ok := slots[key]; ok {
			return value
		}
	}
	return s.reader.GetStorage(addr, key)
}

func (s *TransactionState) GetCommittedStorage(addr evm.Address, key evm.Key) evm.Word {
	return s.reader.GetStorage(addr, key)
}

func (s *TransactionState) SetStorage(addr evm.Address, key evm.Key, value evm.Word) evm.StorageStatus {
	original := s.reader.GetStorage(addr, key)
	current := s.GetStorage(addr, key)

	status := evm.GetStorageStatus(original, current, value)
	if current == value {
		return status
	}

	s.journal.append(storageChange{account: addr, key: key, prev: current})
	slots, ok := s.storage[addr]
	if !ok {
		slots = map[evm.Key]evm.Word{}
		s.storage[addr] = slots
	}
	slots[key] = value
	return status
}

func (s *TransactionState) GetTransientStorage(addr evm.Address, key evm.Key) evm.Word {
	return s.transient[addr][key]
}

func (s *TransactionState) SetTransientStorage(addr evm.Address, key evm.Key, value evm.Word) {
	slots, ok := s.transient[addr]
	if !ok {
		slots = map[evm.Key]evm.Word{}
		s.transient[addr] = slots
	}
	s.journal.append(transientStorageChange{account: addr, key: key, prev: slots[key]})
	slots[key] = value
}

// ----------------------------------------------------------------------------
// Self destruction
// ----------------------------------------------------------------------------

func (s *TransactionState) SelfDestruct(addr evm.Address, beneficiary evm.Address) bool {
	balance := s.GetBalance(addr)
	if beneficiary != addr {
		s.SetBalance(beneficiary, evm.Add(s.GetBalance(beneficiary), balance))
	}
	s.SetBalance(addr, evm.Value{})

	if _, ok := s.destructed[addr]; ok {
		return false
	}
	s.journal.append(selfDestruct{account: addr})
	s.destructed[addr] = struct{}{}
	return true
}

func (s *TransactionState) HasSelfDestructed(addr evm.Address) bool {
	_, ok := s.destructed[addr]
	return ok
}

// ----------------------------------------------------------------------------
// Snapshots
// ----------------------------------------------------------------------------

func (s *TransactionState) CreateSnapshot() evm.Snapshot {
	return s.journal.snapshot()
}

func (s *TransactionState) RestoreSnapshot(snapshot evm.Snapshot) {
	s.journal.revertTo(s, snapshot)
}

// ----------------------------------------------------------------------------
// Access sets
// ----------------------------------------------------------------------------

func (s *TransactionState) AccessAccount(addr evm.Address) evm.AccessStatus {
	if _, ok := s.warmAccounts[addr]; ok {
		return evm.WarmAccess
	}
	s.warmAccounts[addr] = struct{}{}
	return evm.ColdAccess
}

func (s *TransactionState) AccessStorage(addr evm.Address, key evm.Key) evm.AccessStatus {
	id := slotID{account: addr, key: key}
	if _, ok := s.warmSlots[id]; ok {
		return evm.WarmAccess
	}
	s.warmSlots[id] = struct{}{}
	return evm.ColdAccess
}

// IsAccountWarm reports whether the account has already been accessed within
// the ongoing transaction, without marking it warm.
func (s *TransactionState) IsAccountWarm(addr evm.Address) bool {
	_, ok := s.warmAccounts[addr]
	return ok
}

// ----------------------------------------------------------------------------
// Logs
// ----------------------------------------------------------------------------

func (s *TransactionState) EmitLog(log evm.Log) {
	s.journal.append(logEmission{})
	s.logs = append(s.logs, log)
}

func (s *TransactionState) GetLogs() []evm.Log {
	return s.logs
}

// ----------------------------------------------------------------------------
// Block data
// ----------------------------------------------------------------------------

func (s *TransactionState) GetBlockHash(number int64) evm.Hash {
	return s.reader.GetBlockHash(number)
}

// ----------------------------------------------------------------------------
// Finalization
// ----------------------------------------------------------------------------

// Destructed lists the accounts marked for destruction, in deterministic
// order, without applying the removal.
func (s *TransactionState) Destructed() []evm.Address {
	res := make([]evm.Address, 0, len(s.destructed))
	for addr := range s.destructed {
		res = append(res, addr)
	}
	sort.Slice(res, func(i, j int) bool {
		return string(res[i][:]) < string(res[j][:])
	})
	return res
}

// Apply writes the net effect of the transaction to the given writer and
// returns the list of destructed accounts, in deterministic order. Accounts
// destructed during the transaction are removed after all other updates,
// discarding any buffered modifications targeting them.
func (s *TransactionState) Apply(writer StateWriter) []evm.Address {
	for addr, balance := range s.balances {
		if _, gone := s.destructed[addr]; gone {
			continue
		}
		writer.SetBalance(addr, balance)
	}
	for addr, nonce := range s.nonces {
		if _, gone := s.destructed[addr]; gone {
			continue
		}
		writer.SetNonce(addr, nonce)
	}
	for addr, code := range s.codes {
		if _, gone := s.destructed[addr]; gone {
			continue
		}
		writer.SetCode(addr, code)
	}
	for addr, slots := range s.storage {
		if _, gone := s.destructed[addr]; gone {
			continue
		}
		for key, value := range slots {
			writer.SetStorage(addr, key, value)
		}
	}

	removed := s.Destructed()
	for _, addr := range removed {
		writer.DeleteAccount(addr)
	}
	return removed
}
