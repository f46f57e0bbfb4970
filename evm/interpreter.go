package evm

// Interpreter is a component capable of executing EVM byte-code. It is the
// inner part of the execution engine; the surrounding processor adds the
// handling of recursive contract calls and transaction billing.
// To obtain an Interpreter instance, client code should use NewInterpreter()
// provided by the registry in this package.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified
	// context and returns the processing result. The resulting error is nil
	// whenever the code was correctly executed, including executions ending
	// in a code-defined halt such as a revert or an out-of-gas condition.
	// The error is not nil only if an engine-internal problem prevented the
	// interpreter from correctly processing the provided program; in this
	// case the result is undefined and consensus may not be derived from it.
	// Interpreters are required to be thread-safe. Thus, multiple runs may
	// be conducted in parallel.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the list of input parameters required for executing
// code in a single frame.
type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters contains the block-scoped execution environment. It is
// resolved once per top-level message from the chain specification and
// passed by reference into every component; individual opcodes never query
// the fork schedule themselves.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	Difficulty  Word
	BaseFee     Value
	Revision    Revision
}

// TransactionParameters contains information about the current transaction.
type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

// RunContext provides an interface to access and manipulate state and
// transaction properties as needed by individual EVM instructions.
type RunContext interface {
	TransactionContext

	Call(kind CallKind, parameters CallParameters) (CallResult, error)
}

// TransactionContext is an interface to access and manipulate the world
// state within a transaction. All modifications on the world state are
// buffered in the transaction context, which can be snapshot and restored.
// Additionally, a transaction context tracks transaction state beyond the
// world state: transient storage, warm/cold access sets, and logs.
type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	GetTransientStorage(Address, Key) Word
	SetTransientStorage(Address, Key, Word)

	// AccessAccount and AccessStorage mark the given account or slot as
	// warm and report its previous status. The warm marking is scoped to
	// the transaction and is deliberately not part of snapshot handling:
	// it persists even if the call that caused it is reverted.
	AccessAccount(Address) AccessStatus
	AccessStorage(Address, Key) AccessStatus

	EmitLog(Log)
	GetLogs() []Log

	// GetBlockHash returns the hash of the block with the given number.
	GetBlockHash(number int64) Hash
}

// AccessStatus is an enum utilized to indicate cold and warm account or
// storage slot accesses.
type AccessStatus bool

const (
	ColdAccess AccessStatus = false
	WarmAccess AccessStatus = true
)

// Result summarizes the result of an EVM code computation.
type Result struct {
	Success   bool // false if the execution ended in a revert or exceptional halt
	Output    Data
	GasLeft   Gas
	GasRefund Gas
}

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents the type used to represent gas amounts.
type Gas int64

// Snapshot is a handle identifying a recoverable world-state checkpoint
// within a transaction context.
type Snapshot int

// Log summarizes a log message emitted as a side effect of contract
// execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}

// CallKind is an enum enabling the differentiation of the different types
// of recursive contract calls supported by the EVM.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for CREATE and CREATE2
	Value       Value   // < ignored by static calls, considered to be 0
	Input       Data
	Gas         Gas
	Salt        Hash    // < only relevant for CREATE2 calls
	CodeAddress Address // < only relevant for DELEGATECALL and CALLCODE
}

type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // < only meaningful for CREATE and CREATE2
	Success        bool    // false if the execution ended in a revert, true otherwise
}
