package fixedprice

import "testing"

func TestNewValidatesBounds(t *testing.T) {
	cases := []struct {
		name     string
		mantissa uint32
		exponent int32
		wantErr  bool
	}{
		{"mantissa zero", 0, 0, true},
		{"mantissa max ok", MantissaMax, 0, false},
		{"mantissa min ok", MantissaMin, 0, false},
		{"exponent below min", 100, ExponentMin - 1, true},
		{"exponent above max", 100, ExponentMax + 1, true},
		{"exponent min ok", 100, ExponentMin, false},
		{"exponent max ok", 100, ExponentMax, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.mantissa, tc.exponent)
			if (err != nil) != tc.wantErr {
				t.Fatalf("New(%d, %d) err = %v, wantErr %v", tc.mantissa, tc.exponent, err, tc.wantErr)
			}
		})
	}
}

func TestExponentDirection(t *testing.T) {
	// A smaller exponent (closer to ExponentMin) encodes a LARGER price for
	// the same mantissa, per spec §3.6's mantissa*10^(8-exponent)*10^18.
	low, err := New(100, ExponentMin)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	high, err := New(100, ExponentMax)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if low.Cmp(high) <= 0 {
		t.Fatalf("New(100, ExponentMin) should encode a larger value than New(100, ExponentMax)")
	}
}

func TestCmp(t *testing.T) {
	a, _ := New(100, 0)
	b, _ := New(200, 0)
	if a.Cmp(b) >= 0 {
		t.Fatalf("a.Cmp(b) should be negative, a < b")
	}
	if b.Cmp(a) <= 0 {
		t.Fatalf("b.Cmp(a) should be positive, b > a")
	}
	c, _ := New(100, 0)
	if a.Cmp(c) != 0 {
		t.Fatalf("a.Cmp(c) should be zero for equal encodings")
	}
}

func TestToQuoteRoundTrip(t *testing.T) {
	// price = 1 quote atom per base atom (mantissa=1, exponent=8 -> 10^0 * Scale).
	p, err := New(1, ExponentMax)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.ToQuote(1000, RoundDown); got != 1000 {
		t.Fatalf("ToQuote(1000) = %d, want 1000", got)
	}
	if got := p.ToBase(1000, RoundDown); got != 1000 {
		t.Fatalf("ToBase(1000) = %d, want 1000", got)
	}
}

func TestToQuoteRoundingDirections(t *testing.T) {
	// Use an exact price of 3 quote atoms per base atom and a quote amount
	// that 3 does not divide evenly, then check floor vs ceil.
	p, err := New(3, ExponentMax) // price = 3 (quote per base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 7 quote atoms / price 3 = 2 remainder 1: floor=2, ceil=3.
	if got := p.ToBase(7, RoundDown); got != 2 {
		t.Fatalf("ToBase(7, RoundDown) = %d, want 2", got)
	}
	if got := p.ToBase(7, RoundUp); got != 3 {
		t.Fatalf("ToBase(7, RoundUp) = %d, want 3", got)
	}

	// 7 base atoms * price 3 = 21 quote atoms, exact either way.
	if got := p.ToQuote(7, RoundDown); got != 21 {
		t.Fatalf("ToQuote(7, RoundDown) = %d, want 21", got)
	}
	if got := p.ToQuote(7, RoundUp); got != 21 {
		t.Fatalf("ToQuote(7, RoundUp) = %d, want 21", got)
	}
}

func TestMid(t *testing.T) {
	a, _ := New(100, ExponentMax)
	b, _ := New(200, ExponentMax)
	mid := Mid(a, b)
	want, _ := New(150, ExponentMax)
	if mid.Cmp(want) != 0 {
		t.Fatalf("Mid(100,200) != 150 in raw terms")
	}
}

func TestIsZero(t *testing.T) {
	var zero Price
	if !zero.IsZero() {
		t.Fatal("zero-value Price should report IsZero")
	}
	nonzero, _ := New(1, 0)
	if nonzero.IsZero() {
		t.Fatal("non-zero Price should not report IsZero")
	}
}

func TestFromRawRoundTrip(t *testing.T) {
	p, _ := New(42, ExponentMax)
	raw := p.Raw()
	p2 := FromRaw(&raw)
	if p.Cmp(p2) != 0 {
		t.Fatal("FromRaw(p.Raw()) should equal p")
	}
}
