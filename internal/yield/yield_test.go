package yield_test

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/fixedyield/internal/yield"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}

func TestExpectedZeroInputs(t *testing.T) {
	cases := []struct {
		name     string
		amount   *big.Int
		duration *big.Int
	}{
		{"zero duration", wei("1000000000000000000"), big.NewInt(0)},
		{"zero amount", big.NewInt(0), big.NewInt(yield.SecondsPerYear)},
		{"nil amount", nil, big.NewInt(10)},
		{"nil duration", big.NewInt(10), nil},
		{"negative amount", big.NewInt(-5), big.NewInt(10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := yield.Expected(tc.amount, tc.duration)
			if got.Sign() != 0 {
				t.Errorf("yield: got %s, want 0", got)
			}
		})
	}
}

func TestExpectedOneYear(t *testing.T) {
	amounts := []string{"1", "9", "10", "1000", "1000000000000000000", "123456789012345678901234567890"}
	year := big.NewInt(yield.SecondsPerYear)
	for _, a := range amounts {
		p := wei(a)
		want := new(big.Int).Quo(new(big.Int).Mul(p, big.NewInt(10)), big.NewInt(100))
		got := yield.Expected(p, year)
		if got.Cmp(want) != 0 {
			t.Errorf("yield(%s, year): got %s, want %s", a, got, want)
		}
	}
}

func TestExpectedFloors(t *testing.T) {
	// 1 FYT for 30 days: 1e18 * 2592000 * 10 / (31536000 * 100)
	got := yield.Expected(wei("1000000000000000000"), big.NewInt(30*24*60*60))
	want := wei("8219178082191780")
	if got.Cmp(want) != 0 {
		t.Errorf("yield: got %s, want %s", got, want)
	}
}

func TestExpectedDoesNotMutateInputs(t *testing.T) {
	amount := wei("5000")
	duration := big.NewInt(yield.SecondsPerYear)
	_ = yield.Expected(amount, duration)
	if amount.String() != "5000" || duration.Int64() != yield.SecondsPerYear {
		t.Errorf("inputs mutated: amount=%s duration=%s", amount, duration)
	}
}

func TestAccruedClampsElapsed(t *testing.T) {
	amount := wei("1000")
	lock := big.NewInt(yield.SecondsPerYear)

	if got := yield.Accrued(amount, lock, big.NewInt(2*yield.SecondsPerYear)); got.Int64() != 100 {
		t.Errorf("accrued past lock: got %s, want 100", got)
	}
	if got := yield.Accrued(amount, lock, big.NewInt(-10)); got.Sign() != 0 {
		t.Errorf("accrued negative elapsed: got %s, want 0", got)
	}
	if got := yield.Accrued(amount, lock, big.NewInt(yield.SecondsPerYear/2)); got.Int64() != 50 {
		t.Errorf("accrued half year: got %s, want 50", got)
	}
}

func TestToTokenUnitsIsExact(t *testing.T) {
	got := yield.ToTokenUnits(wei("1234567890123456789"))
	if got.String() != "1.234567890123456789" {
		t.Errorf("token units: got %s, want 1.234567890123456789", got)
	}
	if got := yield.ToTokenUnits(big.NewInt(1)); got.String() != "0.000000000000000001" {
		t.Errorf("smallest unit: got %s", got)
	}
	if got := yield.ToTokenUnits(nil); !got.IsZero() {
		t.Errorf("nil: got %s, want 0", got)
	}
}

func TestFormatFixed(t *testing.T) {
	d := yield.ToTokenUnits(wei("8219178082191780"))
	if got := yield.FormatFixed(d, 8); got != "0.00821918" {
		t.Errorf("format: got %s, want 0.00821918", got)
	}
}
