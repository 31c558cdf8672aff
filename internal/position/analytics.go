package position

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// OwnerSummary aggregates the positions of one staker.
type OwnerSummary struct {
	Owner         string          `json:"owner"`
	Positions     int             `json:"positions"`
	Staked        decimal.Decimal `json:"staked"`
	ExpectedYield decimal.Decimal `json:"expectedYield"`
}

// AnalyticsView is the analytics tab over every position in the pool.
type AnalyticsView struct {
	TotalPositions     int             `json:"totalPositions"`
	ActivePositions    int             `json:"activePositions"`
	LockedPositions    int             `json:"lockedPositions"`
	Stakers            int             `json:"stakers"`
	TotalStaked        decimal.Decimal `json:"totalStaked"`
	TotalExpectedYield decimal.Decimal `json:"totalExpectedYield"`
	AverageLockDays    decimal.Decimal `json:"averageLockDays"`
	Owners             []OwnerSummary  `json:"owners"`
}

// Analyze summarizes positions. Owners are sorted by staked amount,
// largest first, then by address.
func Analyze(positions []domain.ActivePosition) AnalyticsView {
	v := AnalyticsView{
		TotalPositions:     len(positions),
		TotalStaked:        decimal.Zero,
		TotalExpectedYield: decimal.Zero,
		AverageLockDays:    decimal.Zero,
		Owners:             []OwnerSummary{},
	}
	if len(positions) == 0 {
		return v
	}

	byOwner := make(map[string]*OwnerSummary)
	var lockSeconds int64
	for _, p := range positions {
		switch p.Status {
		case domain.PositionStatusActive:
			v.ActivePositions++
		case domain.PositionStatusLocked:
			v.LockedPositions++
		}
		v.TotalStaked = v.TotalStaked.Add(p.Amount)
		v.TotalExpectedYield = v.TotalExpectedYield.Add(p.ExpectedYield)
		lockSeconds += p.LockDuration

		k := strings.ToLower(p.PositionAddress)
		s, ok := byOwner[k]
		if !ok {
			s = &OwnerSummary{Owner: k, Staked: decimal.Zero, ExpectedYield: decimal.Zero}
			byOwner[k] = s
		}
		s.Positions++
		s.Staked = s.Staked.Add(p.Amount)
		s.ExpectedYield = s.ExpectedYield.Add(p.ExpectedYield)
	}

	v.Stakers = len(byOwner)
	v.AverageLockDays = decimal.NewFromInt(lockSeconds).
		Div(decimal.NewFromInt(int64(len(positions)) * secondsPerDay)).
		Round(2)

	for _, s := range byOwner {
		v.Owners = append(v.Owners, *s)
	}
	sort.Slice(v.Owners, func(i, j int) bool {
		if c := v.Owners[i].Staked.Cmp(v.Owners[j].Staked); c != 0 {
			return c > 0
		}
		return v.Owners[i].Owner < v.Owners[j].Owner
	})
	return v
}
