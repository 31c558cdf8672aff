package position_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/position"
)

const alice = "0xA11CE00000000000000000000000000000000001"

func active(id, owner, amount, yield string, lock, left int64, status domain.PositionStatus) domain.ActivePosition {
	return domain.ActivePosition{
		ID:              id,
		PositionAddress: owner,
		Amount:          decimal.RequireFromString(amount),
		ExpectedYield:   decimal.RequireFromString(yield),
		LockDuration:    lock,
		TimeLeft:        left,
		Status:          status,
	}
}

func TestOverviewDisconnected(t *testing.T) {
	v := position.Overview(nil, "", 0)
	if v.Connected {
		t.Errorf("connected: got true")
	}
	if v.Alert != "Connect your wallet to see this info" {
		t.Errorf("alert: got %q", v.Alert)
	}
	if v.Deposited != "N/A" || v.TimeLeft != "N/A" {
		t.Errorf("cards: got %q / %q, want N/A", v.Deposited, v.TimeLeft)
	}
}

func TestOverviewNoPositions(t *testing.T) {
	v := position.Overview([]domain.ActivePosition{
		active("1", "0xother", "1", "0.1", 86400, 1, domain.PositionStatusLocked),
	}, alice, 0)
	if v.Alert != "You have no active positions. Stake to see this info" {
		t.Errorf("alert: got %q", v.Alert)
	}
	if v.Total != 0 || v.Position != nil {
		t.Errorf("total: got %d, position %v", v.Total, v.Position)
	}
}

func TestOverviewCards(t *testing.T) {
	positions := []domain.ActivePosition{
		active("1", "0xa11ce00000000000000000000000000000000001", "12.5", "0.00821917808219178", 30*86400, 1, domain.PositionStatusLocked),
		active("2", alice, "3", "0.3", 86400, 0, domain.PositionStatusActive),
	}

	v := position.Overview(positions, alice, 0)
	if v.Label != "Position 1 of 2" {
		t.Errorf("label: got %q", v.Label)
	}
	if v.Deposited != "12.5 FYT" {
		t.Errorf("deposited: got %q", v.Deposited)
	}
	if v.CurrentYield != "0.00821918 FYT" {
		t.Errorf("current yield: got %q", v.CurrentYield)
	}
	if v.LockDuration != "30 days" {
		t.Errorf("lock duration: got %q", v.LockDuration)
	}
	if v.TimeLeft != "1 day" {
		t.Errorf("time left: got %q", v.TimeLeft)
	}

	v = position.Overview(positions, alice, 1)
	if v.LockDuration != "1 day" || v.TimeLeft != "0 days" {
		t.Errorf("second position: got %q / %q", v.LockDuration, v.TimeLeft)
	}
	if v.Alert != "" {
		t.Errorf("alert: got %q, want none", v.Alert)
	}
}

func TestOverviewSinglePositionHasNoLabel(t *testing.T) {
	v := position.Overview([]domain.ActivePosition{
		active("1", alice, "1", "0", 86400, 1, domain.PositionStatusLocked),
	}, alice, 0)
	if v.Label != "" {
		t.Errorf("label: got %q, want empty", v.Label)
	}
	if v.CurrentYield != "N/A" {
		t.Errorf("zero yield: got %q, want N/A", v.CurrentYield)
	}
	if v.AccruedYield != "N/A" {
		t.Errorf("zero accrued: got %q, want N/A", v.AccruedYield)
	}
}

func TestOverviewAccruedYield(t *testing.T) {
	p := active("1", alice, "2", "0.2", 365*86400, 183, domain.PositionStatusLocked)
	p.AccruedYield = decimal.RequireFromString("0.1")
	v := position.Overview([]domain.ActivePosition{p}, alice, 0)
	if v.AccruedYield != "0.10000000 FYT" {
		t.Errorf("accrued yield: got %q", v.AccruedYield)
	}
	if v.CurrentYield != "0.20000000 FYT" {
		t.Errorf("current yield: got %q", v.CurrentYield)
	}
}
