package position_test

import (
	"testing"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/position"
)

func TestAnalyzeEmpty(t *testing.T) {
	v := position.Analyze(nil)
	if v.TotalPositions != 0 || !v.TotalStaked.IsZero() || len(v.Owners) != 0 {
		t.Errorf("empty analytics: %+v", v)
	}
}

func TestAnalyzeTotals(t *testing.T) {
	positions := []domain.ActivePosition{
		active("1", "0xAAA", "10", "1", 86400, 1, domain.PositionStatusLocked),
		active("2", "0xaaa", "5", "0.5", 3*86400, 0, domain.PositionStatusActive),
		active("3", "0xBBB", "20", "2", 2*86400, 2, domain.PositionStatusLocked),
	}

	v := position.Analyze(positions)
	if v.TotalPositions != 3 || v.ActivePositions != 1 || v.LockedPositions != 2 {
		t.Errorf("counts: %+v", v)
	}
	if v.Stakers != 2 {
		t.Errorf("stakers: got %d, want 2", v.Stakers)
	}
	if v.TotalStaked.String() != "35" {
		t.Errorf("total staked: got %s, want 35", v.TotalStaked)
	}
	if v.TotalExpectedYield.String() != "3.5" {
		t.Errorf("total yield: got %s, want 3.5", v.TotalExpectedYield)
	}
	if v.AverageLockDays.String() != "2" {
		t.Errorf("average lock days: got %s, want 2", v.AverageLockDays)
	}
	if v.Owners[0].Owner != "0xbbb" || v.Owners[1].Staked.String() != "15" {
		t.Errorf("owners: %+v", v.Owners)
	}
}
