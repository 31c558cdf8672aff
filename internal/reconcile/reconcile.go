// Package reconcile pairs on-chain stake positions with the off-chain
// transactions that created them and derives the display fields of each
// position.
package reconcile

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// DefaultWindow is the maximum distance between a position's start time and
// the logged creation time of its transaction.
const DefaultWindow = 30 * time.Second

// maxWindowSeconds is the largest distance expressible as a time.Duration.
const maxWindowSeconds = int64(math.MaxInt64 / time.Second)

// Reconcile returns, for each position, the first transaction in txs that
// plausibly created it, or nil. The result is aligned with positions.
//
// Matching is greedy and single-pass: a transaction consumed by an earlier
// position is not offered to later ones, and ties go to source order. The
// consumed set is local to the call; txs is never modified.
func Reconcile(positions []domain.RawPosition, txs []domain.TransactionRecord, window time.Duration) []*domain.TransactionRecord {
	out := make([]*domain.TransactionRecord, len(positions))
	if len(txs) == 0 {
		return out
	}

	consumed := make(map[int]struct{}, len(positions))

	for i, pos := range positions {
		for j := range txs {
			if _, ok := consumed[j]; ok {
				continue
			}
			if !Matches(pos, txs[j], window) {
				continue
			}
			consumed[j] = struct{}{}
			out[i] = &txs[j]
			break
		}
	}
	return out
}

// Matches reports whether tx satisfies every pairing criterion for pos.
// window is the exclusive bound on |start - created_at|.
func Matches(pos domain.RawPosition, tx domain.TransactionRecord, window time.Duration) bool {
	if tx.Used {
		return false
	}
	if !strings.EqualFold(tx.Owner, pos.PositionAddress) {
		return false
	}
	if tx.Amount == nil || pos.Amount == nil || tx.Amount.Cmp(pos.Amount) != 0 {
		return false
	}
	if tx.LockDuration != nil && *tx.LockDuration != 0 {
		if pos.LockDuration == nil || pos.LockDuration.Cmp(big.NewInt(*tx.LockDuration)) != 0 {
			return false
		}
	}
	if pos.StartTime == nil {
		return false
	}
	diff := new(big.Int).Sub(pos.StartTime, big.NewInt(tx.CreatedAt.Unix()))
	diff.Abs(diff)
	if !diff.IsInt64() || diff.Int64() > maxWindowSeconds {
		return false
	}
	return time.Duration(diff.Int64())*time.Second < window
}
