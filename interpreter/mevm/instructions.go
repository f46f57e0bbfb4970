package mevm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/ArthurTh0mas/martinez/evm"
)

// ----------------------------------------------------------------------------
// Arithmetic operations

func opAdd(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
	return nil
}

func opMul(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
	return nil
}

func opSub(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(a, b)
	return nil
}

func opDiv(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(a, b)
	return nil
}

func opSDiv(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(a, b)
	return nil
}

func opMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(a, b)
	return nil
}

func opSMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(a, b)
	return nil
}

func opAddMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.AddMod(a, b, n)
	return nil
}

func opMulMod(c *context) error {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.MulMod(a, b, n)
	return nil
}

func opExp(c *context) error {
	base := c.stack.pop()
	exponent := c.stack.peek()
	if err := c.useGas(expGas(c.params.Revision, exponent)); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSignExtend(c *context) error {
	b := c.stack.pop()
	x := c.stack.peek()
	x.ExtendSign(x, b)
	return nil
}

// ----------------------------------------------------------------------------
// Comparison and bitwise operations

func opLt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Lt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opGt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Gt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opSlt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Slt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opSgt(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Sgt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opEq(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Eq(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
	return nil
}

func opIszero(c *context) error {
	a := c.stack.peek()
	if a.IsZero() {
		a.SetOne()
	} else {
		a.Clear()
	}
	return nil
}

func opAnd(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
	return nil
}

func opOr(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
	return nil
}

func opXor(c *context) error {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
	return nil
}

func opNot(c *context) error {
	a := c.stack.peek()
	a.Not(a)
	return nil
}

func opByte(c *context) error {
	i := c.stack.pop()
	x := c.stack.peek()
	x.Byte(i)
	return nil
}

func opShl(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opShr(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSar(c *context) error {
	shift := c.stack.pop()
	value := c.stack.peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil
}

// ----------------------------------------------------------------------------
// Hashing

func opSha3(c *context) error {
	offset := c.stack.pop()
	size := c.stack.peek()
	if !offset.IsUint64() || !size.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	cost, err := wordCost(keccakWordGas, size.Uint64())
	if err != nil {
		return err
	}
	if err := c.useGas(cost); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	hash := c.hash(data)
	size.SetBytes32(hash[:])
	return nil
}

// ----------------------------------------------------------------------------
// Environment access

func opAddress(c *context) error {
	c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
	return nil
}

func opBalance(c *context) error {
	top := c.stack.peek()
	address := evm.Address(top.Bytes20())
	if err := chargeAccountAccess(c, address); err != nil {
		return err
	}
	balance := c.context.GetBalance(address)
	top.SetBytes32(balance[:])
	return nil
}

func opOrigin(c *context) error {
	c.stack.pushUndefined().SetBytes20(c.params.Origin[:])
	return nil
}

func opCaller(c *context) error {
	c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
	return nil
}

func opCallValue(c *context) error {
	c.stack.pushUndefined().SetBytes32(c.params.Value[:])
	return nil
}

func opCallDataLoad(c *context) error {
	top := c.stack.peek()
	data := getData(c.params.Input, top, 32)
	top.SetBytes32(data)
	return nil
}

func opCallDataSize(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(len(c.params.Input)))
	return nil
}

func opCallDataCopy(c *context) error {
	return genericDataCopy(c, c.params.Input)
}

func opCodeSize(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(len(c.code)))
	return nil
}

func opCodeCopy(c *context) error {
	return genericDataCopy(c, c.code)
}

func opGasPrice(c *context) error {
	c.stack.pushUndefined().SetBytes32(c.params.GasPrice[:])
	return nil
}

func opExtCodeSize(c *context) error {
	top := c.stack.peek()
	address := evm.Address(top.Bytes20())
	if err := chargeAccountAccess(c, address); err != nil {
		return err
	}
	top.SetUint64(uint64(c.context.GetCodeSize(address)))
	return nil
}

func opExtCodeCopy(c *context) error {
	address := evm.Address(c.stack.pop().Bytes20())
	if err := chargeAccountAccess(c, address); err != nil {
		return err
	}
	return genericDataCopy(c, c.context.GetCode(address))
}

func opReturnDataSize(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
	return nil
}

func opReturnDataCopy(c *context) error {
	destOffset := c.stack.pop()
	srcOffset := c.stack.pop()
	size := c.stack.pop()

	if !srcOffset.IsUint64() || !size.IsUint64() {
		return evm.ErrReturnDataOutOfBounds
	}
	end := srcOffset.Uint64() + size.Uint64()
	if end < srcOffset.Uint64() || end > uint64(len(c.returnData)) {
		return evm.ErrReturnDataOutOfBounds
	}

	if !destOffset.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	cost, err := wordCost(copyWordGas, size.Uint64())
	if err != nil {
		return err
	}
	if err := c.useGas(cost); err != nil {
		return err
	}
	return c.memory.set(destOffset.Uint64(), size.Uint64(), c.returnData[srcOffset.Uint64():end], c)
}

func opExtCodeHash(c *context) error {
	top := c.stack.peek()
	address := evm.Address(top.Bytes20())
	if err := chargeAccountAccess(c, address); err != nil {
		return err
	}
	if !c.context.AccountExists(address) {
		top.Clear()
		return nil
	}
	hash := c.context.GetCodeHash(address)
	top.SetBytes32(hash[:])
	return nil
}

// ----------------------------------------------------------------------------
// Block information

func opBlockHash(c *context) error {
	top := c.stack.peek()
	current := c.params.BlockNumber
	if !top.IsUint64() {
		top.Clear()
		return nil
	}
	number := top.Uint64()
	// Only the 256 most recent blocks, excluding the current one, are
	// addressable.
	if number >= uint64(current) || number+256 < uint64(current) {
		top.Clear()
		return nil
	}
	hash := c.context.GetBlockHash(int64(number))
	top.SetBytes32(hash[:])
	return nil
}

func opCoinbase(c *context) error {
	c.stack.pushUndefined().SetBytes20(c.params.Coinbase[:])
	return nil
}

func opTimestamp(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.Timestamp))
	return nil
}

func opNumber(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.BlockNumber))
	return nil
}

func opDifficulty(c *context) error {
	c.stack.pushUndefined().SetBytes32(c.params.Difficulty[:])
	return nil
}

func opGasLimit(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.params.GasLimit))
	return nil
}

func opChainId(c *context) error {
	c.stack.pushUndefined().SetBytes32(c.params.ChainID[:])
	return nil
}

func opSelfBalance(c *context) error {
	balance := c.context.GetBalance(c.params.Recipient)
	c.stack.pushUndefined().SetBytes32(balance[:])
	return nil
}

func opBaseFee(c *context) error {
	c.stack.pushUndefined().SetBytes32(c.params.BaseFee[:])
	return nil
}

// ----------------------------------------------------------------------------
// Stack, memory, and storage

func opPop(c *context) error {
	c.stack.pop()
	return nil
}

func opMload(c *context) error {
	top := c.stack.peek()
	if !top.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	return c.memory.readWord(top.Uint64(), top, c)
}

func opMstore(c *context) error {
	offset := c.stack.pop()
	value := c.stack.pop()
	if !offset.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	return c.memory.setWord(offset.Uint64(), value, c)
}

func opMstore8(c *context) error {
	offset := c.stack.pop()
	value := c.stack.pop()
	if !offset.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	return c.memory.setByte(offset.Uint64(), byte(value.Uint64()), c)
}

func opSload(c *context) error {
	top := c.stack.peek()
	key := evm.Key(top.Bytes32())
	if c.isAtLeast(evm.Berlin) {
		cost := warmStorageReadCost
		if c.context.AccessStorage(c.params.Recipient, key) == evm.ColdAccess {
			cost = coldSloadCost
		}
		if err := c.useGas(cost); err != nil {
			return err
		}
	}
	value := c.context.GetStorage(c.params.Recipient, key)
	top.SetBytes32(value[:])
	return nil
}

func opSstore(c *context) error {
	cost, err := gasSstore(c)
	if err != nil {
		return err
	}
	if err := c.useGas(cost); err != nil {
		return err
	}
	key := evm.Key(c.stack.pop().Bytes32())
	value := evm.Word(c.stack.pop().Bytes32())
	c.context.SetStorage(c.params.Recipient, key, value)
	return nil
}

func opJump(c *context) error {
	dest := c.stack.pop()
	return c.jumpTo(dest)
}

func opJumpi(c *context) error {
	dest := c.stack.pop()
	condition := c.stack.pop()
	if condition.IsZero() {
		return nil
	}
	return c.jumpTo(dest)
}

func opPc(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.pc))
	return nil
}

func opMsize(c *context) error {
	c.stack.pushUndefined().SetUint64(c.memory.length())
	return nil
}

func opGas(c *context) error {
	c.stack.pushUndefined().SetUint64(uint64(c.gas))
	return nil
}

func opJumpDest(c *context) error {
	return nil
}

// ----------------------------------------------------------------------------
// Push, dup, swap, and log

func opPush0(c *context) error {
	c.stack.pushUndefined().Clear()
	return nil
}

func makePush(size int) executionFn {
	return func(c *context) error {
		data := c.code[c.pc+1:]
		if len(data) >= size {
			c.stack.pushUndefined().SetBytes(data[:size])
		} else {
			// Push data truncated by the end of the code is padded with
			// zeros on the right.
			var padded [32]byte
			copy(padded[:size], data)
			c.stack.pushUndefined().SetBytes(padded[:size])
		}
		c.pc += int64(size)
		return nil
	}
}

func makeDup(n int) executionFn {
	return func(c *context) error {
		c.stack.dup(n)
		return nil
	}
}

func makeSwap(n int) executionFn {
	return func(c *context) error {
		c.stack.swap(n)
		return nil
	}
}

func makeLog(n int) executionFn {
	return func(c *context) error {
		offset := c.stack.pop()
		size := c.stack.pop()
		topics := make([]evm.Hash, n)
		for i := 0; i < n; i++ {
			topics[i] = evm.Hash(c.stack.pop().Bytes32())
		}

		if !offset.IsUint64() || !size.IsUint64() {
			return evm.ErrGasUintOverflow
		}
		if size.Uint64() > math.MaxInt64/uint64(logDataGas) {
			return evm.ErrGasUintOverflow
		}
		if err := c.useGas(logDataGas * evm.Gas(size.Uint64())); err != nil {
			return err
		}
		data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
		if err != nil {
			return err
		}
		// The memory slice is reused by later instructions; the log keeps
		// its own copy.
		c.context.EmitLog(evm.Log{
			Address: c.params.Recipient,
			Topics:  topics,
			Data:    append(evm.Data{}, data...),
		})
		return nil
	}
}

// ----------------------------------------------------------------------------
// Frame termination

func opStop(c *context) error {
	c.status = statusStopped
	return nil
}

func opReturn(c *context) error {
	c.status = statusReturned
	return opEndWithResult(c)
}

func opRevert(c *context) error {
	c.status = statusReverted
	return opEndWithResult(c)
}

func opEndWithResult(c *context) error {
	offset := c.stack.pop()
	size := c.stack.pop()
	if !offset.IsUint64() || !size.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	c.returnData = data
	return nil
}

func opSelfdestruct(c *context) error {
	if err := c.useGas(gasSelfdestruct(c)); err != nil {
		return err
	}
	beneficiary := evm.Address(c.stack.pop().Bytes20())
	c.context.SelfDestruct(c.params.Recipient, beneficiary)
	c.status = statusSelfDestructed
	return nil
}

// ----------------------------------------------------------------------------
// Calls and creates

func opCall(c *context) error {
	return genericCall(c, evm.Call)
}

func opCallCode(c *context) error {
	return genericCall(c, evm.CallCode)
}

func opDelegateCall(c *context) error {
	return genericCall(c, evm.DelegateCall)
}

func opStaticCall(c *context) error {
	return genericCall(c, evm.StaticCall)
}

func genericCall(c *context, kind evm.CallKind) error {
	requested := c.stack.pop()
	address := evm.Address(c.stack.pop().Bytes20())
	value := uint256.NewInt(0)
	if kind == evm.Call || kind == evm.CallCode {
		value = c.stack.pop()
	}
	inOffset := c.stack.pop()
	inSize := c.stack.pop()
	outOffset := c.stack.pop()
	outSize := c.stack.pop()

	if !inOffset.IsUint64() || !inSize.IsUint64() ||
		!outOffset.IsUint64() || !outSize.IsUint64() {
		return evm.ErrGasUintOverflow
	}

	transfersValue := !value.IsZero()
	if kind == evm.Call && transfersValue && c.params.Static {
		return evm.ErrStaticContextViolation
	}

	if err := chargeAccountAccess(c, address); err != nil {
		return err
	}

	// Expand both memory regions before taking the input slice; a later
	// expansion would invalidate it.
	if err := c.memory.expand(inOffset.Uint64(), inSize.Uint64(), c); err != nil {
		return err
	}
	if err := c.memory.expand(outOffset.Uint64(), outSize.Uint64(), c); err != nil {
		return err
	}
	input, err := c.memory.getSlice(inOffset.Uint64(), inSize.Uint64(), c)
	if err != nil {
		return err
	}

	baseGas := evm.Gas(0)
	if transfersValue {
		baseGas += callValueTransferGas
	}
	if kind == evm.Call {
		// Calling a not-yet-existing account creates it. Since the Spurious
		// state-clearing rules the creation charge only applies to calls
		// that actually endow the new account.
		if c.isAtLeast(evm.Spurious) {
			if transfersValue && !c.context.AccountExists(address) {
				baseGas += callNewAccountGas
			}
		} else if !c.context.AccountExists(address) {
			baseGas += callNewAccountGas
		}
	}
	if err := c.useGas(baseGas); err != nil {
		return err
	}

	endowment := callGas(c.params.Revision, c.gas, requested)
	if err := c.useGas(endowment); err != nil {
		return err
	}
	if transfersValue {
		endowment += callStipend
	}

	callParams := evm.CallParameters{
		Input: input,
		Gas:   endowment,
		Value: evm.ValueFromUint256(value),
	}
	switch kind {
	case evm.Call, evm.StaticCall:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = address
	case evm.CallCode:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = address
	case evm.DelegateCall:
		callParams.Sender = c.params.Sender
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = address
		callParams.Value = c.params.Value
	}

	result, err := c.context.Call(kind, callParams)
	if err != nil {
		return err
	}

	c.gas += result.GasLeft
	c.refund += result.GasRefund
	c.returnData = result.Output

	if len(result.Output) > 0 {
		size := outSize.Uint64()
		if uint64(len(result.Output)) < size {
			size = uint64(len(result.Output))
		}
		if err := c.memory.set(outOffset.Uint64(), size, result.Output, c); err != nil {
			return err
		}
	}

	top := c.stack.pushUndefined()
	if result.Success {
		top.SetOne()
	} else {
		top.Clear()
	}
	return nil
}

func opCreate(c *context) error {
	return genericCreate(c, evm.Create)
}

func opCreate2(c *context) error {
	return genericCreate(c, evm.Create2)
}

func genericCreate(c *context, kind evm.CallKind) error {
	value := c.stack.pop()
	offset := c.stack.pop()
	size := c.stack.pop()
	var salt evm.Hash
	if kind == evm.Create2 {
		salt = evm.Hash(c.stack.pop().Bytes32())
	}

	if !offset.IsUint64() || !size.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	initCodeSize := size.Uint64()

	if c.isAtLeast(evm.Shanghai) {
		if initCodeSize > maxInitCodeSize {
			return evm.ErrInitCodeSizeExceeded
		}
		cost, err := wordCost(initCodeWordGas, initCodeSize)
		if err != nil {
			return err
		}
		if err := c.useGas(cost); err != nil {
			return err
		}
	}
	if kind == evm.Create2 {
		// The address derivation hashes the full initialization code.
		cost, err := wordCost(keccakWordGas, initCodeSize)
		if err != nil {
			return err
		}
		if err := c.useGas(cost); err != nil {
			return err
		}
	}

	input, err := c.memory.getSlice(offset.Uint64(), initCodeSize, c)
	if err != nil {
		return err
	}

	endowment := c.gas
	if c.isAtLeast(evm.Tangerine) {
		endowment = c.gas - c.gas/64
	}
	if err := c.useGas(endowment); err != nil {
		return err
	}

	result, err := c.context.Call(kind, evm.CallParameters{
		Sender: c.params.Recipient,
		Value:  evm.ValueFromUint256(value),
		Input:  input,
		Gas:    endowment,
		Salt:   salt,
	})
	if err != nil {
		return err
	}

	c.gas += result.GasLeft
	c.refund += result.GasRefund

	// A successful creation leaves the return buffer empty; only the revert
	// data of a failed creation is observable through RETURNDATA*.
	if result.Success {
		c.returnData = nil
	} else {
		c.returnData = result.Output
	}

	top := c.stack.pushUndefined()
	if result.Success {
		top.SetBytes20(result.CreatedAddress[:])
	} else {
		top.Clear()
	}
	return nil
}

// ----------------------------------------------------------------------------
// Helpers

// genericDataCopy implements the shared semantics of CALLDATACOPY, CODECOPY,
// and EXTCODECOPY: copy a data range into memory, zero-padding reads past
// the end of the source.
func genericDataCopy(c *context, data []byte) error {
	destOffset := c.stack.pop()
	srcOffset := c.stack.pop()
	size := c.stack.pop()

	if !destOffset.IsUint64() || !size.IsUint64() {
		return evm.ErrGasUintOverflow
	}
	cost, err := wordCost(copyWordGas, size.Uint64())
	if err != nil {
		return err
	}
	if err := c.useGas(cost); err != nil {
		return err
	}
	target, err := c.memory.getSlice(destOffset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	copy(target, getData(data, srcOffset, uint64(len(target))))
	return nil
}

// getData returns a size-byte slice of data starting at the given offset,
// zero-padded where the source is shorter.
func getData(data []byte, offset *uint256.Int, size uint64) []byte {
	res := make([]byte, size)
	if !offset.IsUint64() {
		return res
	}
	start := offset.Uint64()
	if start > uint64(len(data)) {
		return res
	}
	copy(res, data[start:])
	return res
}

// wordCost computes per-word costs with an overflow guard.
func wordCost(price evm.Gas, size uint64) (evm.Gas, error) {
	words := evm.SizeInWords(size)
	if words > math.MaxInt64/uint64(price) {
		return 0, evm.ErrGasUintOverflow
	}
	return price * evm.Gas(words), nil
}
