package fixed

import (
	"math"
	"testing"
)

func TestFromFloatRoundTrip(t *testing.T) {
	epsilon := math.Pow(2, -31)
	values := []float64{0, 1, -1, 0.5, -0.5, 3.141592653589793, -2.718281828459045, 1234.5678, -99999.125, 0.000001}

	for _, v := range values {
		n := FromFloat(v)
		if got := n.Float(); math.Abs(got-v) >= epsilon {
			t.Errorf("FromFloat(%v).Float() = %v, want within 2^-31", v, got)
		}
	}
}

func TestFromInt(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -1000, 1 << 30} {
		n := FromInt(v)
		if n.Int() != v {
			t.Errorf("FromInt(%d).Int() = %d", v, n.Int())
		}
		if n.Frac() != 0 {
			t.Errorf("FromInt(%d).Frac() = %v, want 0", v, n.Frac())
		}
	}
}

func TestMulExact(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{1.5, 2, 3},
		{0.5, 0.5, 0.25},
		{-1.5, 2, -3},
		{-0.25, -4, 1},
		{3, 0, 0},
	}
	for _, tt := range tests {
		got := FromFloat(tt.a).Mul(FromFloat(tt.b))
		if !got.Eq(FromFloat(tt.want)) {
			t.Errorf("%v * %v = %v, want %v", tt.a, tt.b, got.Float(), tt.want)
		}
	}
}

func TestDivExact(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{3, 1.5, 2},
		{1, 4, 0.25},
		{-3, 2, -1.5},
		{-1, -8, 0.125},
	}
	for _, tt := range tests {
		got, ok := FromFloat(tt.a).Div(FromFloat(tt.b))
		if !ok {
			t.Errorf("%v / %v reported out of range", tt.a, tt.b)
			continue
		}
		if !got.Eq(FromFloat(tt.want)) {
			t.Errorf("%v / %v = %v, want %v", tt.a, tt.b, got.Float(), tt.want)
		}
	}
}

func TestDivOutOfRange(t *testing.T) {
	tests := []struct {
		a, b float64
	}{
		{1, 0},
		{2000000000, 0.0001},
		{-2000000000, 0.0001},
		{1000000, 0.0000001},
	}
	for _, tt := range tests {
		if got, ok := FromFloat(tt.a).Div(FromFloat(tt.b)); ok {
			t.Errorf("%v / %v = %v, want out-of-range report", tt.a, tt.b, got.Float())
		}
	}
}

func TestMod(t *testing.T) {
	got := FromFloat(5.5).Mod(FromFloat(2))
	if !got.Eq(FromFloat(1.5)) {
		t.Errorf("5.5 mod 2 = %v, want 1.5", got.Float())
	}
	got = FromFloat(-5.5).Mod(FromFloat(2))
	if !got.Eq(FromFloat(-1.5)) {
		t.Errorf("-5.5 mod 2 = %v, want -1.5", got.Float())
	}
}

func TestRounding(t *testing.T) {
	tests := []struct {
		v                               float64
		floor, ceil, round, trunc, frac float64
	}{
		{2.75, 2, 3, 3, 2, 0.75},
		{-2.75, -3, -2, -3, -2, -0.75},
		{2.25, 2, 3, 2, 2, 0.25},
		{-0.5, -1, 0, -1, 0, -0.5},
		{4, 4, 4, 4, 4, 0},
	}
	for _, tt := range tests {
		n := FromFloat(tt.v)
		if got := n.Floor(); !got.Eq(FromFloat(tt.floor)) {
			t.Errorf("Floor(%v) = %v, want %v", tt.v, got.Float(), tt.floor)
		}
		if got := n.Ceil(); !got.Eq(FromFloat(tt.ceil)) {
			t.Errorf("Ceil(%v) = %v, want %v", tt.v, got.Float(), tt.ceil)
		}
		if got := n.Round(); !got.Eq(FromFloat(tt.round)) {
			t.Errorf("Round(%v) = %v, want %v", tt.v, got.Float(), tt.round)
		}
		if got := n.Trunc(); !got.Eq(FromFloat(tt.trunc)) {
			t.Errorf("Trunc(%v) = %v, want %v", tt.v, got.Float(), tt.trunc)
		}
		if got := n.Frac(); !got.Eq(FromFloat(tt.frac)) {
			t.Errorf("Frac(%v) = %v, want %v", tt.v, got.Float(), tt.frac)
		}
	}
}

func TestOrdering(t *testing.T) {
	a, b := FromFloat(1.25), FromFloat(1.5)
	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected %v < %v", a.Float(), b.Float())
	}
	if !a.Eq(FromFloat(1.25)) {
		t.Error("identical constructions must compare equal on raw bits")
	}
	neg := FromFloat(-3)
	if !neg.Less(a) {
		t.Errorf("expected %v < %v", neg.Float(), a.Float())
	}
}
