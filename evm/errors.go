package evm

// ConstError is an error type for using constant strings as errors. Unlike
// errors created using errors.New or fmt.Errorf, ConstError instances can be
// used in switch statements and compared with ==.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Exceptional halt conditions. These are protocol-defined, consensus-relevant
// outcomes of contract execution, not engine defects: an interpreter ending a
// frame with one of these consumes all remaining frame gas and reverts the
// frame's state changes, then reports a failed (non-error) Result.
const (
	ErrOutOfGas               = ConstError("out of gas")
	ErrStackOverflow          = ConstError("stack overflow")
	ErrStackUnderflow         = ConstError("stack underflow")
	ErrInvalidJump            = ConstError("invalid jump destination")
	ErrInvalidInstruction     = ConstError("invalid instruction")
	ErrStaticContextViolation = ConstError("static context violation")
	ErrDepthExceeded          = ConstError("max call depth exceeded")
	ErrCodeSizeExceeded       = ConstError("max code size exceeded")
	ErrInitCodeSizeExceeded   = ConstError("max init code size exceeded")
	ErrGasUintOverflow        = ConstError("gas uint64 overflow")
	ErrReturnDataOutOfBounds  = ConstError("return data out of bounds")
	ErrNonceOverflow          = ConstError("nonce overflow")
	ErrInsufficientBalance    = ConstError("insufficient balance")
)
