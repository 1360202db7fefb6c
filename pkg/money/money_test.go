package money

import "testing"

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		3150:  "31.50",
		-1250: "-12.50",
	}
	for cents, want := range cases {
		if got := FormatCents(cents); got != want {
			t.Fatalf("FormatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{
		"31.50":  3150,
		"0.05":   5,
		"100":    10000,
		" 12.3 ": 1230,
	}
	for raw, want := range cases {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", raw, got, want)
		}
	}

	for _, raw := range []string{"", "abc", "1.005", "10.123"} {
		if _, err := ParseAmount(raw); err == nil {
			t.Fatalf("ParseAmount(%q): expected error", raw)
		}
	}
}

func TestProrateThirtySeventy(t *testing.T) {
	// $10 shipping across a $30 and a $70 order.
	parts := Prorate(1000, []int64{3000, 7000})
	if parts[0] != 300 || parts[1] != 700 {
		t.Fatalf("expected [300 700], got %v", parts)
	}
}

func TestProrateLastLineAbsorbsRemainder(t *testing.T) {
	// 100 cents across three equal weights cannot split evenly.
	parts := Prorate(100, []int64{1, 1, 1})
	if parts[0] != 33 || parts[1] != 33 || parts[2] != 34 {
		t.Fatalf("expected [33 33 34], got %v", parts)
	}
}

func TestProrateSumsToTotal(t *testing.T) {
	cases := []struct {
		total   int64
		weights []int64
	}{
		{999, []int64{1, 2, 3}},
		{1, []int64{500, 500}},
		{12345, []int64{1}},
		{10001, []int64{3333, 3333, 3334}},
		{777, []int64{0, 0, 0}},
		{-500, []int64{100, 300}},
	}
	for _, tc := range cases {
		parts := Prorate(tc.total, tc.weights)
		if len(parts) != len(tc.weights) {
			t.Fatalf("expected %d parts, got %d", len(tc.weights), len(parts))
		}
		var sum int64
		for _, p := range parts {
			sum += p
		}
		if sum != tc.total {
			t.Fatalf("Prorate(%d, %v) parts %v sum to %d", tc.total, tc.weights, parts, sum)
		}
	}
}

func TestProrateManyLines(t *testing.T) {
	weights := make([]int64, 50)
	for i := range weights {
		weights[i] = int64(i + 1)
	}
	parts := Prorate(100003, weights)
	var sum int64
	for _, p := range parts {
		sum += p
	}
	if sum != 100003 {
		t.Fatalf("expected parts to sum to 100003, got %d", sum)
	}
}

func TestProrateZeroWeightsSplitsEqually(t *testing.T) {
	parts := Prorate(900, []int64{0, 0, 0})
	if parts[0] != 300 || parts[1] != 300 || parts[2] != 300 {
		t.Fatalf("expected equal split, got %v", parts)
	}
}

func TestApplyBasisPoints(t *testing.T) {
	// 5% of $100.00.
	if got := ApplyBasisPoints(10000, 500); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	// Half-up rounding: 5% of $0.10 = 0.5 cents -> 1 cent.
	if got := ApplyBasisPoints(10, 500); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := ApplyBasisPoints(10000, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestShareRoundsHalfUp(t *testing.T) {
	// 1/3 of 100 = 33.33... -> 33; 2/3 of 100 = 66.66... -> 67.
	if got := Share(100, 1, 3); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := Share(100, 2, 3); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := Share(100, 1, 0); got != 0 {
		t.Fatalf("expected 0 for zero total weight, got %d", got)
	}
}
