package evm

// Processor is an interface for a component capable of executing
// transactions. Implementations execute individual transactions to progress
// the world state of a chain. In particular, they handle the charging of gas
// fees, the checking of nonces, the execution of transactions using
// (potentially) recursive calls of contracts, the integration of precompiled
// contracts, and the creation of new contracts.
type Processor interface {
	// Run executes the transaction provided by the parameters in the
	// specified context. The returned error is reserved for engine-internal
	// failures; transaction-level failures (invalid nonce, insufficient
	// balance, reverted or exceptionally halted execution) are reported
	// through the Receipt.
	Run(BlockParameters, Transaction, TransactionContext) (Receipt, error)
}

// Transaction summarizes the parameters of a transaction to be executed on
// a chain.
type Transaction struct {
	Sender     Address       // the sender of the transaction, paying for its execution
	Recipient  *Address      // the receiver of the transaction, nil if a new contract is to be created
	Nonce      uint64        // the nonce of the sender account, used to prevent replay attacks
	Input      Data          // the input data (or init code, for creations)
	Value      Value         // the amount of network currency to transfer to the recipient
	GasLimit   Gas           // the maximum amount of gas that can be used by the transaction
	GasPrice   Value         // the effective price of a unit of gas for this transaction
	AccessList []AccessTuple // the accounts and storage slots to be pre-warmed (Berlin onwards)
}

// AccessTuple lists accounts and storage slots expected to be accessed by a
// transaction. Those are intended as hints for the actual access pattern;
// transactions are not required to provide them, nor can completeness or
// correctness be assumed.
type AccessTuple struct {
	Address Address
	Keys    []Key
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success            bool      // false if the execution ended in a revert or exceptional halt
	Output             Data      // the output produced by the transaction
	ContractAddress    *Address  // filled if a contract was created by this transaction
	GasUsed            Gas       // gas consumed by the transaction, fees included
	Logs               []Log     // ordered logs emitted by the transaction
	DestructedAccounts []Address // accounts removed at the end of this transaction
}
