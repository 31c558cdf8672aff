// Package yield implements the fixed-rate yield formula used by the staking
// pool contract. All arithmetic is done on arbitrary-precision integers in
// token base units; conversion to decimal token units happens only at the
// display boundary.
package yield

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// SecondsPerYear is the 365-day year the contract accrues over.
	SecondsPerYear = 365 * 24 * 60 * 60

	// RateNumerator / RateDenominator is the fixed annual rate (10%).
	RateNumerator   = 10
	RateDenominator = 100

	// TokenDecimals is the number of decimals of the staked token.
	TokenDecimals = 18
)

var yearTimesDenom = new(big.Int).Mul(big.NewInt(SecondsPerYear), big.NewInt(RateDenominator))

// Expected returns the yield in base units accrued by amount over duration
// seconds:
//
//	floor(amount * duration * RateNumerator / (SecondsPerYear * RateDenominator))
//
// Nil, zero and negative inputs yield exactly zero.
func Expected(amount, duration *big.Int) *big.Int {
	if amount == nil || duration == nil || amount.Sign() <= 0 || duration.Sign() <= 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(amount, duration)
	n.Mul(n, big.NewInt(RateNumerator))
	return n.Quo(n, yearTimesDenom)
}

// Accrued returns the yield earned after elapsed seconds of a position
// locked for lockDuration. elapsed is clamped into [0, lockDuration].
func Accrued(amount, lockDuration, elapsed *big.Int) *big.Int {
	if elapsed == nil || lockDuration == nil {
		return new(big.Int)
	}
	e := elapsed
	if e.Cmp(lockDuration) > 0 {
		e = lockDuration
	}
	return Expected(amount, e)
}

// ToTokenUnits converts base units to token units with TokenDecimals
// decimals. The conversion is exact.
func ToTokenUnits(base *big.Int) decimal.Decimal {
	if base == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(base, -TokenDecimals)
}

// FormatFixed renders d rounded to exactly places decimals.
func FormatFixed(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
