package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// BidIncrementPercent is the minimum raise over the current highest bid.
	BidIncrementPercent int64 = 5

	// CommissionPercent is the share of the winning bid withheld from the beneficiary.
	CommissionPercent int64 = 2

	// ExtensionWindow is both the near-deadline threshold and the deadline push.
	ExtensionWindow = 10 * time.Minute

	// MaxAmountDigits bounds amounts to the uint256 range of on-chain base units.
	MaxAmountDigits = 78
)

var (
	hundred       = decimal.NewFromInt(100)
	firstBidFloor = decimal.NewFromInt(1)
)

// PercentOf returns amount*percent/100 truncated toward zero.
// Amounts are whole base units, so QuoRem at precision 0 gives exact integer division.
func PercentOf(amount decimal.Decimal, percent int64) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(percent)).QuoRem(hundred, 0)
	return q
}

// MinimumBid returns the smallest acceptable bid given the current highest bid.
// The first bid only has to be positive; later bids must beat the leader by
// BidIncrementPercent, with the increment truncated.
func MinimumBid(highestBid decimal.Decimal) decimal.Decimal {
	if highestBid.IsZero() {
		return firstBidFloor
	}
	return highestBid.Add(PercentOf(highestBid, BidIncrementPercent))
}

// BidMeetsMinimum returns true if amount is at least MinimumBid(highestBid).
func BidMeetsMinimum(amount, highestBid decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(MinimumBid(highestBid))
}

// Commission returns the commission withheld from a winning bid.
func Commission(winningBid decimal.Decimal) decimal.Decimal {
	return PercentOf(winningBid, CommissionPercent)
}

// Payout returns what the beneficiary receives for a winning bid.
func Payout(winningBid decimal.Decimal) decimal.Decimal {
	return winningBid.Sub(Commission(winningBid))
}

// ValidAmount reports whether amount is a non-negative whole number of base units
// with at most MaxAmountDigits digits. The exponent is bounded before anything
// expands the coefficient, so a short input like "1e20000000" is rejected in constant time.
func ValidAmount(amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	exp := amount.Exponent()
	if exp > MaxAmountDigits || exp < -MaxAmountDigits {
		return false
	}
	if !amount.IsInteger() {
		return false
	}
	return amount.NumDigits()+int(exp) <= MaxAmountDigits
}
