package state

import (
	"maps"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ArthurTh0mas/martinez/evm"
)

// ----------------------------------------------------------------------------
// MemoryState
// ----------------------------------------------------------------------------

// MemoryState is an in-memory committed state. It implements both StateReader
// and StateWriter and is the backing store used by the command line runner
// and by tests. Empty accounts are treated as non-existing.
type MemoryState struct {
	Accounts    map[evm.Address]*Account
	BlockHashes map[int64]evm.Hash
}

// NewMemoryState creates an empty in-memory state.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		Accounts:    map[evm.Address]*Account{},
		BlockHashes: map[int64]evm.Hash{},
	}
}

func (s *MemoryState) AccountExists(addr evm.Address) bool {
	account, ok := s.Accounts[addr]
	return ok && !account.Empty()
}

func (s *MemoryState) GetBalance(addr evm.Address) evm.Value {
	if account, ok := s.Accounts[addr]; ok {
		return account.Balance
	}
	return evm.Value{}
}

func (s *MemoryState) SetBalance(addr evm.Address, balance evm.Value) {
	s.account(addr).Balance = balance
}

func (s *MemoryState) GetNonce(addr evm.Address) uint64 {
	if account, ok := s.Accounts[addr]; ok {
		return account.Nonce
	}
	return 0
}

func (s *MemoryState) SetNonce(addr evm.Address, nonce uint64) {
	s.account(addr).Nonce = nonce
}

func (s *MemoryState) GetCode(addr evm.Address) evm.Code {
	if account, ok := s.Accounts[addr]; ok {
		return account.Code
	}
	return nil
}

func (s *MemoryState) GetCodeHash(addr evm.Address) evm.Hash {
	account, ok := s.Accounts[addr]
	if !ok || account.Empty() {
		return evm.Hash{}
	}
	return evm.Hash(crypto.Keccak256Hash(account.Code))
}

func (s *MemoryState) SetCode(addr evm.Address, code evm.Code) {
	s.account(addr).Code = code
}

func (s *MemoryState) GetStorage(addr evm.Address, key evm.Key) evm.Word {
	if account, ok := s.Accounts[addr]; ok {
		return account.Storage[key]
	}
	return evm.Word{}
}

func (s *MemoryState) SetStorage(addr evm.Address, key evm.Key, value evm.Word) {
	account := s.account(addr)
	if value == (evm.Word{}) {
		delete(account.Storage, key)
		return
	}
	if account.Storage == nil {
		account.Storage = Storage{}
	}
	account.Storage[key] = value
}

func (s *MemoryState) DeleteAccount(addr evm.Address) {
	delete(s.Accounts, addr)
}

func (s *MemoryState) GetBlockHash(number int64) evm.Hash {
	return s.BlockHashes[number]
}

func (s *MemoryState) Clone() *MemoryState {
	res := NewMemoryState()
	for addr, account := range s.Accounts {
		clone := account.Clone()
		res.Accounts[addr] = &clone
	}
	res.BlockHashes = maps.Clone(s.BlockHashes)
	return res
}

func (s *MemoryState) account(addr evm.Address) *Account {
	account, ok := s.Accounts[addr]
	if !ok {
		account = &Account{}
		s.Accounts[addr] = account
	}
	return account
}

// ----------------------------------------------------------------------------
// Account
// ----------------------------------------------------------------------------

// Account represents a single account of the in-memory state. The zero value
// is an empty account.
type Account struct {
	Balance evm.Value
	Nonce   uint64
	Code    evm.Code
	Storage Storage
}

// Empty reports whether the account has no balance, no nonce, and no code.
func (a *Account) Empty() bool {
	return a.Balance == (evm.Value{}) && a.Nonce == 0 && len(a.Code) == 0
}

func (a *Account) Clone() Account {
	return Account{
		Balance: a.Balance,
		Nonce:   a.Nonce,
		Code:    append(evm.Code(nil), a.Code...),
		Storage: a.Storage.Clone(),
	}
}

// ----------------------------------------------------------------------------
// Storage
// ----------------------------------------------------------------------------

// Storage represents the storage of an account. Zero-valued entries are not
// retained.
type Storage map[evm.Key]evm.Word

func (s Storage) Clone() Storage {
	return maps.Clone(s)
}
