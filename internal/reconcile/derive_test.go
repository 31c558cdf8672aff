package reconcile_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/reconcile"
)

func TestDeriveElapsedLockIsActive(t *testing.T) {
	raw := []domain.RawPosition{position(7, 1000, 86400, t0)}

	got := reconcile.Derive(raw, nil, t0.Add(90000*time.Second), reconcile.DefaultWindow)
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
	if got[0].TimeLeft != 0 {
		t.Errorf("timeLeft: got %d, want 0", got[0].TimeLeft)
	}
	if got[0].Status != domain.PositionStatusActive {
		t.Errorf("status: got %s, want Active", got[0].Status)
	}
	if got[0].ID != "7" {
		t.Errorf("id: got %s, want 7", got[0].ID)
	}
}

func TestDeriveTimeLeftRoundsUp(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		days    int64
		status  domain.PositionStatus
	}{
		{"just started", 0, 30, domain.PositionStatusLocked},
		{"one second in", time.Second, 30, domain.PositionStatusLocked},
		{"one day in", 24 * time.Hour, 29, domain.PositionStatusLocked},
		{"one second left", 30*24*time.Hour - time.Second, 1, domain.PositionStatusLocked},
		{"exactly unlocked", 30 * 24 * time.Hour, 0, domain.PositionStatusActive},
		{"long past", 365 * 24 * time.Hour, 0, domain.PositionStatusActive},
	}
	raw := []domain.RawPosition{position(1, 1000, 30*86400, t0)}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcile.Derive(raw, nil, t0.Add(tc.elapsed), reconcile.DefaultWindow)[0]
			if got.TimeLeft != tc.days {
				t.Errorf("timeLeft: got %d, want %d", got.TimeLeft, tc.days)
			}
			if got.TimeLeft < 0 {
				t.Errorf("timeLeft negative: %d", got.TimeLeft)
			}
			if got.Status != tc.status {
				t.Errorf("status: got %s, want %s", got.Status, tc.status)
			}
		})
	}
}

func TestDeriveAmountsAndYield(t *testing.T) {
	amount, _ := new(big.Int).SetString("2000000000000000000", 10)
	rp := position(1, 0, 365*86400, t0)
	rp.Amount = amount

	got := reconcile.Derive([]domain.RawPosition{rp}, nil, t0, reconcile.DefaultWindow)[0]
	if got.Amount.String() != "2" {
		t.Errorf("amount: got %s, want 2", got.Amount)
	}
	if got.AmountWei != "2000000000000000000" {
		t.Errorf("amountWei: got %s", got.AmountWei)
	}
	if got.ExpectedYield.String() != "0.2" {
		t.Errorf("expectedYield: got %s, want 0.2", got.ExpectedYield)
	}
	if got.ExpectedYieldWei != "200000000000000000" {
		t.Errorf("expectedYieldWei: got %s", got.ExpectedYieldWei)
	}
	if got.UnlocksAt != t0.Unix()+365*86400 {
		t.Errorf("unlocksAt: got %d", got.UnlocksAt)
	}
}

func TestDeriveAccruedYield(t *testing.T) {
	amount, _ := new(big.Int).SetString("2000000000000000000", 10)
	rp := position(1, 0, 365*86400, t0)
	rp.Amount = amount

	cases := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"at start", 0, "0"},
		{"half way", 365 * 12 * time.Hour, "0.1"},
		{"after unlock", 2 * 365 * 24 * time.Hour, "0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcile.Derive([]domain.RawPosition{rp}, nil, t0.Add(tc.elapsed), reconcile.DefaultWindow)[0]
			if got.AccruedYield.String() != tc.want {
				t.Errorf("accruedYield: got %s, want %s", got.AccruedYield, tc.want)
			}
		})
	}
}

func TestDeriveAttachesTransactionHash(t *testing.T) {
	raw := []domain.RawPosition{
		position(1, 1000, 86400, t0),
		position(2, 5000, 86400, t0),
	}
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0.Add(2*time.Second))}

	got := reconcile.Derive(raw, txs, t0, reconcile.DefaultWindow)
	if got[0].TransactionHash != "0xaa" {
		t.Errorf("position 1 hash: got %q, want 0xaa", got[0].TransactionHash)
	}
	if got[1].TransactionHash != "" {
		t.Errorf("position 2 hash: got %q, want empty", got[1].TransactionHash)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	raw := []domain.RawPosition{position(1, 1000, 86400, t0)}
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0)}

	a := reconcile.Derive(raw, txs, t0, reconcile.DefaultWindow)
	b := reconcile.Derive(raw, txs, t0, reconcile.DefaultWindow)
	if a[0].TransactionHash != b[0].TransactionHash || a[0].TimeLeft != b[0].TimeLeft {
		t.Errorf("derive not idempotent: %+v vs %+v", a[0], b[0])
	}
}
