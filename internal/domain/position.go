package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus tells whether a stake can be withdrawn yet.
type PositionStatus string

const (
	// PositionStatusActive means the lock period has elapsed and the stake
	// is withdrawable.
	PositionStatusActive PositionStatus = "Active"
	// PositionStatusLocked means the lock period is still running.
	PositionStatusLocked PositionStatus = "Locked"
)

// RawPosition is a stake position as returned by the yield-pool contract.
// All numeric fields are base-unit or second counts and may exceed int64.
type RawPosition struct {
	ID              *big.Int
	PositionAddress string
	Amount          *big.Int
	LockDuration    *big.Int
	StartTime       *big.Int
}

// TransactionRecord is a stake transaction logged off-chain by the frontend
// right after the deposit was mined.
type TransactionRecord struct {
	ID              int64
	Owner           string
	Amount          *big.Int
	LockDuration    *int64 // nil when the frontend did not record it
	CreatedAt       time.Time
	TransactionHash string
	Used            bool
}

// ActivePosition is a RawPosition enriched with derived display fields.
type ActivePosition struct {
	ID               string          `json:"id"`
	PositionAddress  string          `json:"positionAddress"`
	Amount           decimal.Decimal `json:"amount"`
	AmountWei        string          `json:"amountWei"`
	LockDuration     int64           `json:"lockDuration"`
	StartTime        int64           `json:"startTime"`
	UnlocksAt        int64           `json:"unlocksAt"`
	TimeLeft         int64           `json:"timeLeft"`
	ExpectedYield    decimal.Decimal `json:"expectedYield"`
	ExpectedYieldWei string          `json:"expectedYieldWei"`
	// AccruedYield is the part of ExpectedYield earned as of the refresh.
	AccruedYield    decimal.Decimal `json:"accruedYield"`
	AccruedYieldWei string          `json:"accruedYieldWei"`
	Status          PositionStatus  `json:"status"`
	TransactionHash string          `json:"transactionHash,omitempty"`
}

// OwnedBy reports whether the position belongs to account. Addresses are
// compared case-insensitively.
func (p ActivePosition) OwnedBy(account string) bool {
	return account != "" && strings.EqualFold(p.PositionAddress, account)
}

// FilterOwned returns the positions owned by account, preserving order.
func FilterOwned(positions []ActivePosition, account string) []ActivePosition {
	var out []ActivePosition
	for _, p := range positions {
		if p.OwnedBy(account) {
			out = append(out, p)
		}
	}
	return out
}
