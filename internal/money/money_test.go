package money

import (
	"encoding/json"
	"testing"
)

func TestParseValidAmounts(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"12.34", 1234},
		{"0.05", 5},
		{"100", 10000},
		{"0", 0},
		{" 7.50 ", 750},
		{"-3.25", -325},
	}
	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.raw, err)
		}
		if got.MinorUnits() != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.raw, got.MinorUnits(), tc.want)
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "abc", "12.345", "1,000.00", "1e3.5"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("expected Parse(%q) to fail", raw)
		}
	}
}

func TestArithmeticKeepsMinorUnits(t *testing.T) {
	a := FromMinorUnits(10000)
	b := FromMinorUnits(2550)

	if got := a.Add(b); got != 12550 {
		t.Fatalf("add: got %d", got)
	}
	if got := a.Sub(b); got != 7450 {
		t.Fatalf("sub: got %d", got)
	}
	if got := b.MulQty(3); got != 7650 {
		t.Fatalf("mul: got %d", got)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Fatalf("cmp ordering wrong")
	}
}

func TestRepeatedAdditionHasNoDrift(t *testing.T) {
	// 0.10 added 1000 times must be exactly 100.00.
	step, err := Parse("0.10")
	if err != nil {
		t.Fatalf("parse step: %v", err)
	}
	total := FromMinorUnits(0)
	for i := 0; i < 1000; i++ {
		total = total.Add(step)
	}
	if total.MinorUnits() != 10000 {
		t.Fatalf("expected 10000 minor units, got %d", total.MinorUnits())
	}
}

func TestUnmarshalJSONAcceptsNumberAndDecimalString(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount_cents"`
	}

	var fromNumber payload
	if err := json.Unmarshal([]byte(`{"amount_cents": 1234}`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if fromNumber.Amount != 1234 {
		t.Fatalf("number form: got %d, want 1234", fromNumber.Amount)
	}

	var fromString payload
	if err := json.Unmarshal([]byte(`{"amount_cents": "12.34"}`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if fromString.Amount != 1234 {
		t.Fatalf("string form: got %d, want 1234", fromString.Amount)
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"amount_cents": "12.345"}`), &bad); err == nil {
		t.Fatalf("expected three-decimal string to be rejected")
	}

	out, err := json.Marshal(payload{Amount: 1234})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount_cents":1234}` {
		t.Fatalf("marshal must emit the number form, got %s", out)
	}
}

func TestStringFormatting(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{0, "0.00"},
		{-325, "-3.25"},
		{10000, "100.00"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("Money(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}
