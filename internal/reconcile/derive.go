package reconcile

import (
	"math"
	"math/big"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/yield"
)

// secondsPerDay is the unit of the displayed time left.
const secondsPerDay = 24 * 60 * 60

// Derive recomputes the full ActivePosition list from raw ledger positions
// and the transaction log as of now.
func Derive(raw []domain.RawPosition, txs []domain.TransactionRecord, now time.Time, window time.Duration) []domain.ActivePosition {
	matches := Reconcile(raw, txs, window)
	nowSec := big.NewInt(now.Unix())

	out := make([]domain.ActivePosition, 0, len(raw))
	for i, rp := range raw {
		lock := orZero(rp.LockDuration)
		start := orZero(rp.StartTime)
		amount := orZero(rp.Amount)

		unlocksAt := new(big.Int).Add(start, lock)
		remaining := new(big.Int).Sub(unlocksAt, nowSec)
		if remaining.Sign() < 0 {
			remaining.SetInt64(0)
		}

		status := domain.PositionStatusActive
		if remaining.Sign() > 0 {
			status = domain.PositionStatusLocked
		}

		expected := yield.Expected(amount, lock)
		accrued := yield.Accrued(amount, lock, new(big.Int).Sub(nowSec, start))

		ap := domain.ActivePosition{
			ID:               orZero(rp.ID).String(),
			PositionAddress:  rp.PositionAddress,
			Amount:           yield.ToTokenUnits(amount),
			AmountWei:        amount.String(),
			LockDuration:     clampInt64(lock),
			StartTime:        clampInt64(start),
			UnlocksAt:        clampInt64(unlocksAt),
			TimeLeft:         clampInt64(ceilDays(remaining)),
			ExpectedYield:    yield.ToTokenUnits(expected),
			ExpectedYieldWei: expected.String(),
			AccruedYield:     yield.ToTokenUnits(accrued),
			AccruedYieldWei:  accrued.String(),
			Status:           status,
		}
		if tx := matches[i]; tx != nil {
			ap.TransactionHash = tx.TransactionHash
		}
		out = append(out, ap)
	}
	return out
}

// ceilDays converts non-negative seconds to whole days, rounding up.
func ceilDays(sec *big.Int) *big.Int {
	d := new(big.Int).Add(sec, big.NewInt(secondsPerDay-1))
	return d.Quo(d, big.NewInt(secondsPerDay))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func clampInt64(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}
