package mevm

import (
	"github.com/holiman/uint256"

	"github.com/ArthurTh0mas/martinez/evm"
)

const (
	callValueTransferGas    evm.Gas = 9000  // paid for CALL-family ops transferring a non-zero value
	callNewAccountGas       evm.Gas = 25000 // paid for CALL when the destination account must be created
	callStipend             evm.Gas = 2300  // free gas given to the callee of a non-zero value transfer
	createBySelfdestructGas evm.Gas = 25000 // paid when a self-destruct credits a non-existing account

	selfdestructGas       evm.Gas = 5000  // base cost of SELFDESTRUCT since the Tangerine re-pricing
	selfdestructRefundGas evm.Gas = 24000 // refunded per first self-destruct of an account, dropped in London

	coldSloadCost         evm.Gas = 2100 // cost of a cold storage slot read since Berlin
	coldAccountAccessCost evm.Gas = 2600 // cost of a cold account access since Berlin
	warmStorageReadCost   evm.Gas = 100  // cost of warm storage and account reads since Berlin

	sstoreSetGas   evm.Gas = 20000 // storing a non-zero value into a committed zero slot
	sstoreResetGas evm.Gas = 5000  // storing into a committed non-zero slot
	sstoreNoopGas  evm.Gas = 200   // no-op store under the Constantinople net-metering rules

	// Refund for clearing a committed non-zero slot. The smaller value
	// applies since London, where it was reduced to remove the gas-token
	// incentive (SSTORE_RESET_GAS - COLD_SLOAD_COST + ACCESS_LIST_STORAGE_KEY_COST).
	sstoreClearsScheduleRefund       evm.Gas = 15000
	sstoreClearsScheduleRefundLondon evm.Gas = 4800

	// Minimum gas that must be present for an SSTORE since Istanbul; not
	// consumed, merely required. Prevents state changes within the stipend
	// of a plain value transfer.
	sstoreSentryGas evm.Gas = 2300

	expByteGas         evm.Gas = 10 // per exponent byte before the Spurious re-pricing
	expByteGasSpurious evm.Gas = 50

	keccakWordGas evm.Gas = 6 // per word hashed by SHA3
	copyWordGas   evm.Gas = 3 // per word copied by the *COPY ops
	logTopicGas   evm.Gas = 375
	logDataGas    evm.Gas = 8

	initCodeWordGas evm.Gas = 2 // per word of initialization code since Shanghai

	maxInitCodeSize = 2 * 24576 // initialization code size limit since Shanghai
)

// callGas determines the gas forwarded to a callee given the gas remaining
// after the base charges and the amount requested on the stack. Since the
// Tangerine re-pricing the caller always retains a 64th of its remaining
// gas; before it, the requested amount is forwarded verbatim and running
// short surfaces as an out-of-gas when charging it.
func callGas(revision evm.Revision, available evm.Gas, requested *uint256.Int) evm.Gas {
	if revision < evm.Tangerine {
		if !requested.IsUint64() || requested.Uint64() > uint64(available) {
			return available + 1 // unpayable, caller runs out of gas
		}
		return evm.Gas(requested.Uint64())
	}
	allButOne64th := available - available/64
	if !requested.IsUint64() || requested.Uint64() > uint64(allButOne64th) {
		return allButOne64th
	}
	return evm.Gas(requested.Uint64())
}

// sloadGas is the static cost of an SLOAD before Berlin, where it became
// access dependent.
func sloadGas(revision evm.Revision) evm.Gas {
	switch {
	case revision >= evm.Istanbul:
		return 800
	case revision >= evm.Tangerine:
		return 200
	default:
		return 50
	}
}

// gasSstore computes the cost of an SSTORE and applies refund adjustments.
// The net-metering rules changed repeatedly: plain set/reset accounting up
// to Byzantium and again in Petersburg, EIP-1283 net metering in
// Constantinople, EIP-2200 in Istanbul, and access-dependent EIP-2929
// accounting since Berlin.
func gasSstore(c *context) (evm.Gas, error) {
	switch {
	case c.isAtLeast(evm.Berlin):
		return gasSstoreBerlin(c)
	case c.isAtLeast(evm.Istanbul):
		return gasSstoreNetMetered(c, sloadGas(evm.Istanbul), true)
	case c.params.Revision == evm.Constantinople:
		return gasSstoreNetMetered(c, sstoreNoopGas, false)
	default:
		return gasSstorePlain(c), nil
	}
}

// gasSstorePlain implements the original accounting: 20000 for storing a
// non-zero value into a zero slot, 5000 otherwise, and a 15000 refund for
// clearing a non-zero slot. Only the current value matters.
func gasSstorePlain(c *context) evm.Gas {
	var (
		zero    = evm.Word{}
		key     = evm.Key(c.stack.peekN(0).Bytes32())
		value   = evm.Word(c.stack.peekN(1).Bytes32())
		current = c.context.GetStorage(c.params.Recipient, key)
	)
	if current == zero && value != zero {
		return sstoreSetGas
	}
	if current != zero && value == zero {
		c.refund += sstoreClearsScheduleRefund
	}
	return sstoreResetGas
}

// gasSstoreNetMetered implements the net gas metering of EIP-1283 and its
// Istanbul revision EIP-2200. The two differ only in the cost of no-op and
// dirty stores (200 vs. the contemporary SLOAD cost) and in the reentrancy
// sentry introduced by EIP-2200.
func gasSstoreNetMetered(c *context, dirtyGas evm.Gas, withSentry bool) (evm.Gas, error) {
	if withSentry && c.gas <= sstoreSentryGas {
		return 0, evm.ErrOutOfGas
	}
	var (
		zero    = evm.Word{}
		key     = evm.Key(c.stack.peekN(0).Bytes32())
		value   = evm.Word(c.stack.peekN(1).Bytes32())
		current = c.context.GetStorage(c.params.Recipient, key)
	)
	if current == value { // noop
		return dirtyGas, nil
	}
	original := c.context.GetCommittedStorage(c.params.Recipient, key)
	if original == current {
		if original == zero { // create slot
			return sstoreSetGas, nil
		}
		if value == zero { // delete slot
			c.refund += sstoreClearsScheduleRefund
		}
		return sstoreResetGas, nil // write existing slot
	}
	// Dirty slot, already modified in this transaction.
	if original != zero {
		if current == zero { // recreate slot
			c.refund -= sstoreClearsScheduleRefund
		} else if value == zero { // delete slot
			c.refund += sstoreClearsScheduleRefund
		}
	}
	if original == value {
		if original == zero { // restored to the original non-existent state
			c.refund += sstoreSetGas - dirtyGas
		} else { // restored to the original existing state
			c.refund += sstoreResetGas - dirtyGas
		}
	}
	return dirtyGas, nil
}

// gasSstoreBerlin implements the access-dependent accounting of EIP-2929,
// with the reduced clearing refund of EIP-3529 since London.
func gasSstoreBerlin(c *context) (evm.Gas, error) {
	clearingRefund := sstoreClearsScheduleRefund
	if c.isAtLeast(evm.London) {
		clearingRefund = sstoreClearsScheduleRefundLondon
	}
	if c.gas <= sstoreSentryGas {
		return 0, evm.ErrOutOfGas
	}
	var (
		zero    = evm.Word{}
		key     = evm.Key(c.stack.peekN(0).Bytes32())
		value   = evm.Word(c.stack.peekN(1).Bytes32())
		current = c.context.GetStorage(c.params.Recipient, key)
		cost    = evm.Gas(0)
	)
	if c.context.AccessStorage(c.params.Recipient, key) == evm.ColdAccess {
		cost = coldSloadCost
	}
	if current == value { // noop
		return cost + warmStorageReadCost, nil
	}
	original := c.context.GetCommittedStorage(c.params.Recipient, key)
	if original == current {
		if original == zero { // create slot
			return cost + sstoreSetGas, nil
		}
		if value == zero { // delete slot
			c.refund += clearingRefund
		}
		return cost + sstoreResetGas - coldSloadCost, nil // write existing slot
	}
	if original != zero {
		if current == zero { // recreate slot
			c.refund -= clearingRefund
		} else if value == zero { // delete slot
			c.refund += clearingRefund
		}
	}
	if original == value {
		if original == zero { // restored to the original non-existent state
			c.refund += sstoreSetGas - warmStorageReadCost
		} else { // restored to the original existing state
			c.refund += (sstoreResetGas - coldSloadCost) - warmStorageReadCost
		}
	}
	return cost + warmStorageReadCost, nil
}

// chargeAccountAccess charges the access-dependent account cost introduced
// in Berlin and marks the account warm. Before Berlin this is a no-op; the
// historic flat prices live in the static gas tables.
func chargeAccountAccess(c *context, address evm.Address) error {
	if !c.isAtLeast(evm.Berlin) {
		return nil
	}
	if c.context.AccessAccount(address) == evm.ColdAccess {
		return c.useGas(coldAccountAccessCost)
	}
	return c.useGas(warmStorageReadCost)
}

// gasSelfdestruct computes the dynamic cost of a SELFDESTRUCT and applies
// the refund granted up to Berlin.
func gasSelfdestruct(c *context) evm.Gas {
	beneficiary := evm.Address(c.stack.peekN(0).Bytes20())
	gas := evm.Gas(0)

	if c.isAtLeast(evm.Berlin) {
		if c.context.AccessAccount(beneficiary) == evm.ColdAccess {
			gas += coldAccountAccessCost
		}
	}

	if c.isAtLeast(evm.Tangerine) {
		gas += selfdestructGas
		// Paying out to a not-yet-existing account costs extra. Since the
		// Spurious state-clearing rules the charge only applies if there is
		// an actual payout.
		if c.isAtLeast(evm.Spurious) {
			if !c.context.AccountExists(beneficiary) && c.context.GetBalance(c.params.Recipient) != (evm.Value{}) {
				gas += callNewAccountGas
			}
		} else if !c.context.AccountExists(beneficiary) {
			gas += callNewAccountGas
		}
	}

	if !c.isAtLeast(evm.London) && !c.context.HasSelfDestructed(c.params.Recipient) {
		c.refund += selfdestructRefundGas
	}
	return gas
}

// expGas is the dynamic cost of an EXP, linear in the byte length of the
// exponent. The per-byte price was raised in the Spurious fork.
func expGas(revision evm.Revision, exponent *uint256.Int) evm.Gas {
	perByte := expByteGas
	if revision >= evm.Spurious {
		perByte = expByteGasSpurious
	}
	return perByte * evm.Gas(exponent.ByteLen())
}
