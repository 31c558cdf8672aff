package reconcile_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/reconcile"
)

const owner = "0xAbC0000000000000000000000000000000000001"

var t0 = time.Unix(1_700_000_000, 0).UTC()

func position(id int64, amount int64, lock int64, start time.Time) domain.RawPosition {
	return domain.RawPosition{
		ID:              big.NewInt(id),
		PositionAddress: owner,
		Amount:          big.NewInt(amount),
		LockDuration:    big.NewInt(lock),
		StartTime:       big.NewInt(start.Unix()),
	}
}

func tx(hash string, amount int64, created time.Time) domain.TransactionRecord {
	return domain.TransactionRecord{
		Owner:           "0xabc0000000000000000000000000000000000001",
		Amount:          big.NewInt(amount),
		CreatedAt:       created,
		TransactionHash: hash,
	}
}

func hashes(matches []*domain.TransactionRecord) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		if m != nil {
			out[i] = m.TransactionHash
		}
	}
	return out
}

func TestReconcileTimeWindow(t *testing.T) {
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0.Add(5*time.Second))}

	got := reconcile.Reconcile([]domain.RawPosition{position(1, 1000, 86400, t0)}, txs, reconcile.DefaultWindow)
	if got[0] == nil || got[0].TransactionHash != "0xaa" {
		t.Fatalf("5s apart: got %v, want match 0xaa", hashes(got))
	}

	got = reconcile.Reconcile([]domain.RawPosition{position(1, 1000, 86400, t0.Add(40*time.Second))}, txs, reconcile.DefaultWindow)
	if got[0] != nil {
		t.Fatalf("35s apart: got %v, want no match", hashes(got))
	}
}

func TestReconcileWindowIsExclusive(t *testing.T) {
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0.Add(30*time.Second))}
	got := reconcile.Reconcile([]domain.RawPosition{position(1, 1000, 86400, t0)}, txs, reconcile.DefaultWindow)
	if got[0] != nil {
		t.Errorf("exactly 30s apart: got match, want none")
	}
}

func TestReconcileSubSecondWindow(t *testing.T) {
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0)}
	got := reconcile.Reconcile([]domain.RawPosition{position(1, 1000, 86400, t0)}, txs, 500*time.Millisecond)
	if got[0] == nil {
		t.Fatalf("same second with 500ms window: got no match")
	}
	got = reconcile.Reconcile([]domain.RawPosition{position(1, 1000, 86400, t0.Add(time.Second))}, txs, 500*time.Millisecond)
	if got[0] != nil {
		t.Errorf("1s apart with 500ms window: got match, want none")
	}
}

func TestReconcileFarApartStartTime(t *testing.T) {
	pos := position(1, 1000, 86400, t0)
	pos.StartTime, _ = new(big.Int).SetString("99999999999999999999999", 10)
	got := reconcile.Reconcile([]domain.RawPosition{pos}, []domain.TransactionRecord{tx("0xaa", 1000, t0)}, reconcile.DefaultWindow)
	if got[0] != nil {
		t.Errorf("start time beyond int64: got match, want none")
	}
}

func TestReconcileCriteria(t *testing.T) {
	lock := int64(86400)
	otherLock := int64(3600)
	zero := int64(0)

	cases := []struct {
		name  string
		tx    domain.TransactionRecord
		match bool
	}{
		{"all equal", tx("0x1", 1000, t0), true},
		{"amount differs", tx("0x1", 999, t0), false},
		{"owner differs", func() domain.TransactionRecord {
			r := tx("0x1", 1000, t0)
			r.Owner = "0x0000000000000000000000000000000000000002"
			return r
		}(), false},
		{"lock equal", func() domain.TransactionRecord {
			r := tx("0x1", 1000, t0)
			r.LockDuration = &lock
			return r
		}(), true},
		{"lock differs", func() domain.TransactionRecord {
			r := tx("0x1", 1000, t0)
			r.LockDuration = &otherLock
			return r
		}(), false},
		{"lock zero is unspecified", func() domain.TransactionRecord {
			r := tx("0x1", 1000, t0)
			r.LockDuration = &zero
			return r
		}(), true},
		{"already used", func() domain.TransactionRecord {
			r := tx("0x1", 1000, t0)
			r.Used = true
			return r
		}(), false},
		{"created before start", tx("0x1", 1000, t0.Add(-29*time.Second)), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcile.Reconcile([]domain.RawPosition{position(1, 1000, lock, t0)}, []domain.TransactionRecord{tc.tx}, reconcile.DefaultWindow)
			if (got[0] != nil) != tc.match {
				t.Errorf("match: got %v, want %v", got[0] != nil, tc.match)
			}
		})
	}
}

func TestReconcileAmountsBeyondFloatPrecision(t *testing.T) {
	a, _ := new(big.Int).SetString("1000000000000000001", 10)
	b, _ := new(big.Int).SetString("1000000000000000000", 10)

	pos := position(1, 0, 86400, t0)
	pos.Amount = a
	rec := tx("0x1", 0, t0)
	rec.Amount = b

	got := reconcile.Reconcile([]domain.RawPosition{pos}, []domain.TransactionRecord{rec}, reconcile.DefaultWindow)
	if got[0] != nil {
		t.Errorf("amounts differing by one base unit must not match")
	}
}

func TestReconcileNoDoubleMatch(t *testing.T) {
	positions := []domain.RawPosition{
		position(1, 1000, 86400, t0),
		position(2, 1000, 86400, t0.Add(2*time.Second)),
	}
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0.Add(time.Second))}

	got := hashes(reconcile.Reconcile(positions, txs, reconcile.DefaultWindow))
	if got[0] != "0xaa" || got[1] != "" {
		t.Errorf("matches: got %v, want [0xaa \"\"]", got)
	}
}

func TestReconcileFirstMatchWins(t *testing.T) {
	positions := []domain.RawPosition{
		position(1, 1000, 86400, t0),
		position(2, 1000, 86400, t0),
	}
	txs := []domain.TransactionRecord{
		tx("0xfirst", 1000, t0),
		tx("0xsecond", 1000, t0),
	}

	got := hashes(reconcile.Reconcile(positions, txs, reconcile.DefaultWindow))
	if got[0] != "0xfirst" || got[1] != "0xsecond" {
		t.Errorf("matches: got %v, want [0xfirst 0xsecond]", got)
	}
}

func TestReconcileStableUnderUnrelatedReordering(t *testing.T) {
	positions := []domain.RawPosition{position(1, 1000, 86400, t0)}
	target := tx("0xtarget", 1000, t0.Add(3*time.Second))
	noiseA := tx("0xnoise-a", 2000, t0)
	noiseB := tx("0xnoise-b", 1000, t0.Add(time.Hour))

	orders := [][]domain.TransactionRecord{
		{target, noiseA, noiseB},
		{noiseA, target, noiseB},
		{noiseB, noiseA, target},
	}
	for i, txs := range orders {
		got := hashes(reconcile.Reconcile(positions, txs, reconcile.DefaultWindow))
		if got[0] != "0xtarget" {
			t.Errorf("order %d: got %v, want 0xtarget", i, got)
		}
	}
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	txs := []domain.TransactionRecord{tx("0xaa", 1000, t0)}
	positions := []domain.RawPosition{position(1, 1000, 86400, t0)}

	first := reconcile.Reconcile(positions, txs, reconcile.DefaultWindow)
	second := reconcile.Reconcile(positions, txs, reconcile.DefaultWindow)

	if txs[0].Used {
		t.Errorf("input record flagged used")
	}
	if first[0] == nil || second[0] == nil {
		t.Errorf("repeated passes must match again: first=%v second=%v", hashes(first), hashes(second))
	}
}
