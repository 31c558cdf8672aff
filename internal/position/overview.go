package position

import (
	"fmt"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/yield"
)

// TokenSymbol is the ticker shown next to staked amounts.
const TokenSymbol = "FYT"

const (
	notAvailable     = "N/A"
	alertNotLinked   = "Connect your wallet to see this info"
	alertNoPositions = "You have no active positions. Stake to see this info"
)

// OverviewView is the overview tab of the position card for one account.
type OverviewView struct {
	Account      string                 `json:"account"`
	Connected    bool                   `json:"connected"`
	Index        int                    `json:"index"`
	Total        int                    `json:"total"`
	Label        string                 `json:"label,omitempty"`
	Deposited    string                 `json:"deposited"`
	CurrentYield string                 `json:"currentYield"`
	AccruedYield string                 `json:"accruedYield"`
	LockDuration string                 `json:"lockDuration"`
	TimeLeft     string                 `json:"timeLeft"`
	Alert        string                 `json:"alert,omitempty"`
	Position     *domain.ActivePosition `json:"position,omitempty"`
}

// Overview builds the overview cards for the account's position at index.
// An empty account renders the disconnected state.
func Overview(positions []domain.ActivePosition, account string, index int) OverviewView {
	owned := domain.FilterOwned(positions, account)
	v := OverviewView{
		Account:      account,
		Connected:    account != "",
		Index:        index,
		Total:        len(owned),
		Deposited:    notAvailable,
		CurrentYield: notAvailable,
		AccruedYield: notAvailable,
		LockDuration: notAvailable,
		TimeLeft:     notAvailable,
	}

	switch {
	case !v.Connected:
		v.Alert = alertNotLinked
	case len(owned) == 0:
		v.Alert = alertNoPositions
	}

	if index < 0 || index >= len(owned) {
		return v
	}
	p := owned[index]
	v.Position = &p

	if len(owned) > 1 {
		v.Label = fmt.Sprintf("Position %d of %d", index+1, len(owned))
	}
	if !p.Amount.IsZero() {
		v.Deposited = fmt.Sprintf("%s %s", p.Amount.String(), TokenSymbol)
	}
	if !p.ExpectedYield.IsZero() {
		v.CurrentYield = fmt.Sprintf("%s %s", yield.FormatFixed(p.ExpectedYield, 8), TokenSymbol)
	}
	if !p.AccruedYield.IsZero() {
		v.AccruedYield = fmt.Sprintf("%s %s", yield.FormatFixed(p.AccruedYield, 8), TokenSymbol)
	}
	v.LockDuration = days(p.LockDuration / secondsPerDay)
	v.TimeLeft = days(p.TimeLeft)
	return v
}

const secondsPerDay = 24 * 60 * 60

func days(n int64) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
